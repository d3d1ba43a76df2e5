package core

import (
	"context"
	"fmt"
	"strings"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/report"
)

const (
	maxMessageLength = 2000
	codeBlockOpen    = "```md"
	codeBlockClose   = "```"
)

func historyCommand(deps Deps) *command.Definition {
	return &command.Definition{
		Path:         "history",
		Description:  "Lists the most recent commands used on this server",
		Restrictions: command.AdminOnly | command.GuildChannelOnly | command.Ephemeral,
		Handler: command.HandlerFunc(func(ctx context.Context, ev command.Event) error {
			records, err := deps.Settings.FetchCommandHistory(ev.Invocation().GuildID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				r := report.ForEvent(ev)
				r.AddField("History", "No commands recorded yet.", false)
				return r.Send(ctx, ev)
			}

			limit := maxMessageLength - len(codeBlockOpen) - len(codeBlockClose) - 2
			var b strings.Builder
			fmt.Fprintf(&b, "%-19s  %-15s  %s\n", "# Datetime", "# Username", "# Command")
			// newest first
			for i := len(records) - 1; i >= 0; i-- {
				rec := records[i]
				line := fmt.Sprintf("%-19s  %-15s  /%s\n",
					rec.Datetime.Format("2006-01-02 15:04:05"),
					report.LimitContent(15, rec.Username),
					strings.ReplaceAll(rec.Command, command.PathSeparator, " "))
				if b.Len()+len(line) > limit {
					break
				}
				b.WriteString(line)
			}

			_, err = ev.Reply(ctx, &command.Reply{Content: codeBlockOpen + "\n" + b.String() + codeBlockClose})
			return err
		}),
	}
}
