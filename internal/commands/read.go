package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/clientwire"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// Read builds the blobctl "read" subcommand (READ_FILE), writing the
// blob's bytes to stdout.
func Read() *cobra.Command {
	var cfg client.Config

	cmd := cobra.Command{
		Use:   "read name",
		Short: "Read a blob's contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(&cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Do(wire.ReadFile(args[0]))
			if err != nil {
				return err
			}
			if respErr := clientwire.AsError(resp); respErr != nil {
				return respErr
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), string(resp.Data))
			return err
		},
	}

	cfg.Flags(&cmd)
	return &cmd
}
