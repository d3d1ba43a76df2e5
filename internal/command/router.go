package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ErrResolutionMiss is returned when a structured interaction names a command
// the registry does not know. It points at a registration that is out of sync
// and is never shown to users.
var ErrResolutionMiss = errors.New("no command registered for interaction")

// PrefixSource supplies per-guild legacy prefixes.
type PrefixSource interface {
	GuildPrefix(guildID string) (string, bool)
}

// RouterConfig holds the process-wide legacy text settings.
type RouterConfig struct {
	DefaultPrefix         string
	IgnorePrivateChannels bool
}

// Router resolves gateway events to definitions. It only reads the registry
// and never performs network I/O.
type Router struct {
	reg      *Registry
	prefixes PrefixSource
	cfg      RouterConfig
}

// NewRouter returns a router over reg. prefixes may be nil.
func NewRouter(reg *Registry, prefixes PrefixSource, cfg RouterConfig) *Router {
	return &Router{reg: reg, prefixes: prefixes, cfg: cfg}
}

// Registry returns the registry the router resolves against.
func (r *Router) Registry() *Registry { return r.reg }

// Structured looks up the definition for an application command interaction.
func (r *Router) Structured(kind Kind, path string) (*Definition, error) {
	var (
		d  *Definition
		ok bool
	)
	switch kind {
	case KindSlash:
		d, ok = r.reg.Slash(path)
	case KindMessage:
		d, ok = r.reg.Message(path)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrResolutionMiss, kind, path)
	}
	return d, nil
}

// SlashPath rebuilds the command path from interaction data by following the
// subcommand group and subcommand options. The remaining leaf options are
// returned alongside.
func SlashPath(data discordgo.ApplicationCommandInteractionData) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	segs := []string{data.Name}
	opts := data.Options
	for len(opts) == 1 {
		o := opts[0]
		if o.Type != discordgo.ApplicationCommandOptionSubCommandGroup && o.Type != discordgo.ApplicationCommandOptionSubCommand {
			break
		}
		segs = append(segs, o.Name)
		opts = o.Options
	}
	return strings.Join(segs, PathSeparator), opts
}

// TextMessage is the part of a plain chat message the legacy path looks at.
type TextMessage struct {
	Content      string
	AuthorBot    bool
	ChannelKind  ChannelKind
	GuildID      string
	SelfID       string
	MentionsSelf bool
	Member       *Member
}

// Trigger strips the trigger from msg and reports whether the message
// addresses the bot at all. A leading self-mention is consumed first, then the
// effective prefix. Private channels need no trigger.
func (r *Router) Trigger(msg TextMessage) (string, bool) {
	if msg.AuthorBot {
		return "", false
	}
	if msg.ChannelKind == ChannelPrivate && r.cfg.IgnorePrivateChannels {
		return "", false
	}

	content := strings.TrimSpace(msg.Content)

	mentioned := false
	if msg.MentionsSelf && msg.SelfID != "" {
		for _, m := range []string{"<@" + msg.SelfID + ">", "<@!" + msg.SelfID + ">"} {
			if strings.HasPrefix(content, m) {
				content = strings.TrimSpace(content[len(m):])
				mentioned = true
				break
			}
		}
	}

	prefixed := false
	if prefix, ok := r.effectivePrefix(msg); ok && strings.HasPrefix(content, prefix) {
		content = strings.TrimSpace(content[len(prefix):])
		prefixed = true
	}

	if !mentioned && !prefixed && msg.ChannelKind != ChannelPrivate {
		return "", false
	}
	return content, true
}

func (r *Router) effectivePrefix(msg TextMessage) (string, bool) {
	prefix, ok := r.cfg.DefaultPrefix, r.cfg.DefaultPrefix != ""
	if msg.ChannelKind == ChannelGuildText && msg.GuildID != "" && r.prefixes != nil {
		if p, found := r.prefixes.GuildPrefix(msg.GuildID); found && p != "" {
			prefix, ok = p, true
		}
	}
	return prefix, ok
}

// Legacy resolves a plain message to the definition whose legacy alias it
// names. Only a triggered message whose first word is a known alias and which
// passes the restriction checks resolves. Legacy commands are never executed;
// the caller answers with RedirectNotice.
func (r *Router) Legacy(msg TextMessage) (*Definition, bool) {
	content, ok := r.Trigger(msg)
	if !ok {
		return nil, false
	}
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return nil, false
	}
	d, ok := r.reg.Legacy(fields[0])
	if !ok {
		return nil, false
	}
	inv := &Invocation{Member: msg.Member, ChannelKind: msg.ChannelKind, GuildID: msg.GuildID}
	if !Permitted(d, inv) {
		return nil, false
	}
	return d, true
}

// RedirectNotice is the text sent in answer to a legacy command.
func RedirectNotice(d *Definition) string {
	return "Please use " + d.SlashUsage()
}
