// Package client holds blobctl's connection flags, the CLI-side analogue of
// the teacher's internal/client.Config (grpc addr + TLS flags) generalized
// to this protocol's single unix-socket dial target.
package client

import "github.com/spf13/cobra"

// Config is the connection configuration every blobctl subcommand shares.
type Config struct {
	SocketName string
}

// Flags registers the --socketname flag shared by every blobctl subcommand.
func (c *Config) Flags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.SocketName, "socketname", "/tmp/blobstore.sock", "unix domain socket the blobstore server is listening on")
}
