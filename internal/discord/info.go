package discord

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"discord-core-bot/internal/command"
)

// InfoPath is the path of the built-in info command.
const InfoPath = "info"

// invitePermissions are requested by the invite link: view channels, send
// messages, embed links, attach files, read message history, add reactions.
const invitePermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionEmbedLinks |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAddReactions

// BotInfo is the static description shown by the info command.
type BotInfo struct {
	Name        string
	Version     string
	Support     string
	AllowInvite bool
	// Technologies are markdown lines; the defaults are used when empty.
	Technologies []string
	// Credits are shown after the technologies, one field per group.
	Credits []CreditGroup
	// Custom fields close the embed, inline.
	Custom []InfoField
}

// CreditGroup lists the people credited under one heading.
type CreditGroup struct {
	Group string
	Names []string
}

type InfoField struct {
	Name  string
	Value string
}

// Stats are the live numbers shown by the info command.
type Stats interface {
	AppID() string
	GuildCount() int
	Latency() time.Duration
	Started() time.Time
}

func defaultTechnologies() []string {
	return []string{
		"[discordgo](https://github.com/bwmarrin/discordgo)",
		"[Go](https://go.dev) " + strings.TrimPrefix(runtime.Version(), "go"),
	}
}

// InfoCommand returns the definition of the info command.
func InfoCommand(info BotInfo, stats Stats) *command.Definition {
	return &command.Definition{
		Path:        InfoPath,
		Description: "Shows information about this bot.",
		Handler: command.HandlerFunc(func(ctx context.Context, ev command.Event) error {
			_, err := ev.Reply(ctx, &command.Reply{Embeds: []*discordgo.MessageEmbed{infoEmbed(info, stats, time.Now())}})
			return err
		}),
	}
}

// WithInfo appends info to defs unless a definition already claims its path.
func WithInfo(defs []*command.Definition, info *command.Definition) []*command.Definition {
	for _, d := range defs {
		if d.Kind == command.KindSlash && d.Path == info.Path {
			return defs
		}
	}
	return append(defs, info)
}

func infoEmbed(info BotInfo, stats Stats, now time.Time) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{}
	add := func(name, value string, inline bool) {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline})
	}

	if info.Support != "" {
		add("Support", info.Support, false)
	}
	if info.Name != "" {
		add("Bot Name", info.Name, true)
	}
	if info.Version != "" {
		add("Bot Version", info.Version, true)
	}
	if info.AllowInvite && stats.AppID() != "" {
		add("Server Invite", "[Link]("+InviteURL(stats.AppID())+")", true)
	}
	tech := info.Technologies
	if len(tech) == 0 {
		tech = defaultTechnologies()
	}
	add("Technologies", strings.Join(tech, "\n"), false)
	for _, c := range info.Credits {
		add(c.Group, strings.Join(c.Names, "\n"), false)
	}

	add("Total Servers", fmt.Sprintf("%d servers", stats.GuildCount()), true)
	add("Uptime", FormatUptime(stats.Started(), now), true)
	add("Ping to Discord", fmt.Sprintf("%d ms", stats.Latency().Milliseconds()), true)
	for _, f := range info.Custom {
		add(f.Name, f.Value, true)
	}
	return e
}

// InviteURL is the OAuth2 link that adds the bot to a server.
func InviteURL(appID string) string {
	return fmt.Sprintf("https://discord.com/oauth2/authorize?client_id=%s&scope=bot%%20applications.commands&permissions=%d",
		appID, invitePermissions)
}

// FormatUptime renders the time between then and now from years down to
// seconds, skipping zero units ("1 day, 2 hours"). Calendar units follow the
// calendar, so a month is not a fixed number of days.
func FormatUptime(then, now time.Time) string {
	if !now.After(then) {
		return "0 seconds"
	}

	var parts []string
	add := func(n int64, unit string) {
		if n <= 0 {
			return
		}
		if n > 1 {
			unit += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, unit))
	}

	acc := then
	for _, u := range []struct {
		name             string
		years, months, d int
	}{
		{"year", 1, 0, 0},
		{"month", 0, 1, 0},
		{"day", 0, 0, 1},
	} {
		n := 0
		for !acc.AddDate(u.years*(n+1), u.months*(n+1), u.d*(n+1)).After(now) {
			n++
		}
		acc = acc.AddDate(u.years*n, u.months*n, u.d*n)
		add(int64(n), u.name)
	}

	rest := now.Sub(acc)
	add(int64(rest/time.Hour), "hour")
	rest %= time.Hour
	add(int64(rest/time.Minute), "minute")
	rest %= time.Minute
	add(int64(rest/time.Second), "second")

	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}
