package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/client"
	"github.com/joshuarubin/blobstore/internal/clientwire"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// dial connects to the server named by cfg, grounded on the teacher's
// per-command client.Config.Flags pattern generalized to a single unix
// socket dial target.
func dial(cfg *client.Config) (*clientwire.Client, error) {
	return clientwire.Dial(cfg.SocketName)
}

// doSimple sends req and prints "ok" on a COMP reply, or returns the
// ERROR packet's code as a Go error.
func doSimple(cmd *cobra.Command, cfg *client.Config, req *wire.Packet) error {
	c, err := dial(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	if respErr := clientwire.AsError(resp); respErr != nil {
		return respErr
	}

	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
