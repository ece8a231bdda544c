package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// ReadN builds the blobctl "readn" subcommand (READ_N_FILES), printing
// each streamed blob's name and size until the terminating COMP.
func ReadN() *cobra.Command {
	var cfg client.Config
	var count uint64

	cmd := cobra.Command{
		Use:   "readn",
		Short: "List the first N blobs (0 = all) in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := dial(&cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Send(wire.ReadNFiles(count)); err != nil {
				return err
			}

			for {
				resp, err := c.ReadOne()
				if err != nil {
					return err
				}
				if resp.Op == wire.OpComp {
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\n", resp.Name, len(resp.Data))
			}
		},
	}

	cfg.Flags(&cmd)
	cmd.Flags().Uint64Var(&count, "count", 0, "maximum number of blobs to list (0 = all)")
	return &cmd
}
