package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"discord-core-bot/internal/version"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           version.AppName,
		Short:         "Discord command bot",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBot()
		},
	}
	root.AddCommand(
		newRunCommand(),
		newTreeCommand(),
		newVersionCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
