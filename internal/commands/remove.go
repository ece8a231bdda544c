package commands

import (
	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// Remove builds the blobctl "remove" subcommand (REMOVE_FILE).
func Remove() *cobra.Command {
	var cfg client.Config

	cmd := cobra.Command{
		Use:   "remove name",
		Short: "Destroy a blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doSimple(cmd, &cfg, wire.RemoveFile(args[0]))
		},
	}

	cfg.Flags(&cmd)
	return &cmd
}
