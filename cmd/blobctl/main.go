// Command blobctl is a thin command-line client for a running blobstore
// server, one cobra subcommand per wire protocol opcode (grounded on the
// teacher's cmd/job-worker one-subcommand-per-verb layout).
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/commands"
)

func main() {
	root := cobra.Command{
		Use:           "blobctl",
		Short:         "A command-line client for the blobstore server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(commands.Open())
	root.AddCommand(commands.Close())
	root.AddCommand(commands.Read())
	root.AddCommand(commands.ReadN())
	root.AddCommand(commands.Write())
	root.AddCommand(commands.Append())
	root.AddCommand(commands.Lock())
	root.AddCommand(commands.Unlock())
	root.AddCommand(commands.Remove())

	if err := root.ExecuteContext(context.Background()); err != nil {
		root.PrintErrln(root.ErrPrefix(), err.Error())
		os.Exit(1)
	}
}
