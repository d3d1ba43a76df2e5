package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/report"
)

const maxPrefixLength = 8

// validatePrefix rejects prefixes that the legacy router could never match
// or that would swallow mentions.
func validatePrefix(p string) error {
	switch {
	case p == "":
		return errors.New("prefix is empty")
	case utf8.RuneCountInString(p) > maxPrefixLength:
		return fmt.Errorf("prefix is longer than %d characters", maxPrefixLength)
	case strings.IndexFunc(p, unicode.IsSpace) >= 0:
		return errors.New("prefix contains whitespace")
	case strings.HasPrefix(p, "<@") || strings.HasPrefix(p, "/"):
		return fmt.Errorf("prefix %q clashes with mentions or slash commands", p)
	}
	return nil
}

func prefixCommand(deps Deps) *command.Definition {
	return &command.Definition{
		Path:        "prefix",
		Description: "Shows or changes the legacy command prefix of this server",
		Options: []command.Option{
			{Name: "value", Type: discordgo.ApplicationCommandOptionString, Description: "New prefix"},
			{Name: "reset", Type: discordgo.ApplicationCommandOptionBoolean, Description: "Go back to the default prefix"},
		},
		Restrictions:  command.AdminOnly | command.GuildChannelOnly,
		LegacyAliases: []string{"prefix"},
		Handler: command.HandlerFunc(func(ctx context.Context, ev command.Event) error {
			se, ok := ev.(*command.SlashEvent)
			if !ok {
				return fmt.Errorf("prefix: unexpected event %T", ev)
			}
			guildID := ev.Invocation().GuildID

			settings, err := deps.Settings.GuildSettings(guildID)
			if err != nil {
				return err
			}
			r := report.ForEvent(ev)

			value := strings.TrimSpace(se.StringOption("value"))
			reset := false
			if o, ok := se.Option("reset"); ok {
				reset = o.BoolValue()
			}

			switch {
			case reset:
				settings.Prefix = ""
			case value != "":
				if err := validatePrefix(value); err != nil {
					r.AddWarning(err.Error())
					r.AddField("Prefix", describePrefix(settings.Prefix, deps.DefaultPrefix), true)
					return r.Send(ctx, ev)
				}
				settings.Prefix = value
			default:
				r.AddField("Prefix", describePrefix(settings.Prefix, deps.DefaultPrefix), true)
				return r.Send(ctx, ev)
			}

			if err := deps.Settings.SaveGuildSettings(guildID, settings); err != nil {
				return fmt.Errorf("save prefix: %w", err)
			}
			r.AddField("Prefix", describePrefix(settings.Prefix, deps.DefaultPrefix), true)
			r.SetAttention()
			return r.Send(ctx, ev)
		}),
	}
}

func describePrefix(guild, fallback string) string {
	switch {
	case guild != "":
		return "`" + guild + "`"
	case fallback != "":
		return "`" + fallback + "` (default)"
	default:
		return "none, mention the bot instead"
	}
}
