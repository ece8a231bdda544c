package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// Write builds the blobctl "write" subcommand (WRITE_FILE): the payload is
// read from stdin, matching a Unix pipeline-friendly CLI shape.
func Write() *cobra.Command {
	var cfg client.Config

	cmd := cobra.Command{
		Use:   "write name",
		Short: "Write a blob's contents (first write only), reading the payload from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			return doSimple(cmd, &cfg, wire.WriteFile(args[0], data))
		},
	}

	cfg.Flags(&cmd)
	return &cmd
}
