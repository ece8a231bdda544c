package commands

import (
	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// Unlock builds the blobctl "unlock" subcommand (UNLOCK_FILE).
func Unlock() *cobra.Command {
	var cfg client.Config

	cmd := cobra.Command{
		Use:   "unlock name",
		Short: "Release a blob's lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doSimple(cmd, &cfg, wire.UnlockFile(args[0]))
		},
	}

	cfg.Flags(&cmd)
	return &cmd
}
