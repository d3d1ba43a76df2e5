package core

import (
	"context"
	"fmt"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/report"
)

func pingCommand(deps Deps) *command.Definition {
	return &command.Definition{
		Path:          "ping",
		Description:   "Checks that the bot is responsive",
		LegacyAliases: []string{"ping"},
		Handler: command.HandlerFunc(func(ctx context.Context, ev command.Event) error {
			r := report.ForEvent(ev)
			r.AddField("Pong", "The bot is up.", false)

			if deps.Latency != nil {
				if l := deps.Latency(); l > 0 {
					r.AddField("Gateway Latency", fmt.Sprintf("%dms", l.Milliseconds()), true)
				} else {
					r.AddWarning("No heartbeat acknowledged yet")
				}
			}
			return r.Send(ctx, ev)
		}),
	}
}
