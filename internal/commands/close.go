package commands

import (
	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// Close builds the blobctl "close" subcommand (CLOSE_FILE).
func Close() *cobra.Command {
	var cfg client.Config

	cmd := cobra.Command{
		Use:   "close name",
		Short: "Close a blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doSimple(cmd, &cfg, wire.CloseFile(args[0]))
		},
	}

	cfg.Flags(&cmd)
	return &cmd
}
