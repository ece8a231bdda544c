// Command blobstored is the blobstore server daemon.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/commands"
)

func main() {
	root := cobra.Command{
		Use:           "blobstored",
		Short:         "An in-memory blob storage server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(commands.Serve())

	if err := root.ExecuteContext(context.Background()); err != nil {
		root.PrintErrln(root.ErrPrefix(), err.Error())
		os.Exit(1)
	}
}
