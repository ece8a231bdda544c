package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// Append builds the blobctl "append" subcommand (APPEND_FILE): the payload
// is read from stdin.
func Append() *cobra.Command {
	var cfg client.Config

	cmd := cobra.Command{
		Use:   "append name",
		Short: "Append to a blob's contents, reading the payload from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			return doSimple(cmd, &cfg, wire.AppendFile(args[0], data))
		},
	}

	cfg.Flags(&cmd)
	return &cmd
}
