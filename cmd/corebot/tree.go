package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/commands/core"
	"discord-core-bot/internal/config"
	"discord-core-bot/internal/discord"
)

func newTreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the command registration payload as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config.LoadDotEnv()
			cfg, err := config.New()
			if err != nil {
				return err
			}
			reg, err := command.NewRegistry(definitions(cfg, core.Deps{}, nil)...)
			if err != nil {
				return err
			}
			cmds := reg.ApplicationCommands()
			data, err := json.MarshalIndent(cmds, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			fmt.Fprintf(cmd.ErrOrStderr(), "fingerprint %016x\n", discord.Fingerprint(cmds))
			return nil
		},
	}
}
