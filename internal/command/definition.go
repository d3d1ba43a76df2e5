// Package command holds the transport-agnostic command core: definitions, the
// registry built from them, the registration tree, restriction checks and the
// router that maps gateway events back to definitions.
package command

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// PathSeparator separates the segments of a command path ("admin/user/ban").
const PathSeparator = "/"

// MaxPathDepth is the deepest path Discord accepts: command, group, subcommand.
const MaxPathDepth = 3

// Kind tells how a definition is exposed to users.
type Kind int

const (
	// KindSlash is a chat input command addressed by its path.
	KindSlash Kind = iota
	// KindMessage is a message context menu command addressed by its name.
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindSlash:
		return "slash"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Restriction is a set of access flags checked before a command runs.
type Restriction uint8

const (
	// AdminOnly requires a guild member with the administrator permission.
	AdminOnly Restriction = 1 << iota
	// GuildChannelOnly requires a guild text channel.
	GuildChannelOnly
	// PrivateChannelOnly requires a direct message channel.
	PrivateChannelOnly
	// Ephemeral makes the deferred reply visible to the invoking user only.
	Ephemeral
)

// Has reports whether all flags in f are set.
func (r Restriction) Has(f Restriction) bool {
	return r&f == f
}

// Option is a typed argument of a slash command.
type Option struct {
	Name        string
	Type        discordgo.ApplicationCommandOptionType
	Description string
	Required    bool
}

// Handler runs a command. ev is a *SlashEvent or a *MessageCommandEvent
// depending on the definition's Kind.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Definition describes one invokable command. Definitions are owned by the
// Registry once registered and must not be modified afterwards.
type Definition struct {
	Path          string
	Kind          Kind
	Description   string
	Options       []Option
	Restrictions  Restriction
	LegacyAliases []string
	Handler       Handler
}

// Segments returns the path split on PathSeparator.
func (d *Definition) Segments() []string {
	return strings.Split(d.Path, PathSeparator)
}

// Name returns the last path segment.
func (d *Definition) Name() string {
	segs := d.Segments()
	return segs[len(segs)-1]
}

// HasRestriction reports whether the definition carries flag f.
func (d *Definition) HasRestriction(f Restriction) bool {
	return d.Restrictions.Has(f)
}

// SlashUsage renders the path the way users type it ("/admin user ban").
func (d *Definition) SlashUsage() string {
	return "/" + strings.ReplaceAll(d.Path, PathSeparator, " ")
}
