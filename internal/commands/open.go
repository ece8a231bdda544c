package commands

import (
	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// Open builds the blobctl "open" subcommand (OPEN_FILE).
func Open() *cobra.Command {
	var cfg client.Config
	var create, lock bool

	cmd := cobra.Command{
		Use:   "open [flags] name",
		Short: "Open (and optionally create or lock) a blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var flags byte
			if create {
				flags |= wire.OCreate
			}
			if lock {
				flags |= wire.OLock
			}
			return doSimple(cmd, &cfg, wire.OpenFile(args[0], flags))
		},
	}

	cfg.Flags(&cmd)
	cmd.Flags().BoolVar(&create, "create", false, "create the blob if it does not exist")
	cmd.Flags().BoolVar(&lock, "lock", false, "acquire the lock as part of opening")

	return &cmd
}
