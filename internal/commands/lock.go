package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/clientwire"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// Lock builds the blobctl "lock" subcommand (LOCK_FILE). If another client
// already holds the lock, the reply is deferred server-side until handoff,
// so this call simply blocks until the server eventually sends COMP.
func Lock() *cobra.Command {
	var cfg client.Config

	cmd := cobra.Command{
		Use:   "lock name",
		Short: "Acquire a blob's lock, blocking if another client holds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(&cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Do(wire.LockFile(args[0]))
			if err != nil {
				return err
			}
			if respErr := clientwire.AsError(resp); respErr != nil {
				return respErr
			}

			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	cfg.Flags(&cmd)
	return &cmd
}
