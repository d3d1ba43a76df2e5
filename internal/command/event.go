package command

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// ChannelKind classifies the channel an event originated from.
type ChannelKind int

const (
	ChannelOther ChannelKind = iota
	ChannelGuildText
	ChannelPrivate
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelGuildText:
		return "guild-text"
	case ChannelPrivate:
		return "private"
	default:
		return "other"
	}
}

// User identifies whoever triggered an event.
type User struct {
	ID        string
	Name      string
	AvatarURL string
}

// Member is the guild-side view of the invoking user. It is nil for events
// without a resolvable member, such as direct messages and webhooks.
type Member struct {
	Permissions int64
}

// Administrator reports whether the member holds the administrator permission.
func (m *Member) Administrator() bool {
	return m != nil && m.Permissions&discordgo.PermissionAdministrator != 0
}

// Invocation is the per-event context handed to restriction checks and
// handlers. It is created by the transport adapter and dropped once the
// handler has finished.
type Invocation struct {
	ID          string
	User        User
	Member      *Member
	ChannelID   string
	ChannelKind ChannelKind
	GuildID     string
	Start       time.Time
}

// NewInvocation stamps a fresh invocation id and start time.
func NewInvocation(user User, member *Member, channelID string, kind ChannelKind, guildID string) *Invocation {
	return &Invocation{
		ID:          uuid.NewString(),
		User:        user,
		Member:      member,
		ChannelID:   channelID,
		ChannelKind: kind,
		GuildID:     guildID,
		Start:       time.Now(),
	}
}

// Reply is an outgoing message on the deferred reply handle.
type Reply struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
	Files   []*discordgo.File
}

// Responder is the deferred reply handle acquired by the transport before a
// job is queued. The first Send completes the placeholder, later sends are
// follow-ups. Delete retracts the placeholder.
type Responder interface {
	Send(ctx context.Context, r *Reply) (*discordgo.Message, error)
	Delete(ctx context.Context) error
}

// Event is what a Handler receives. The concrete type is *SlashEvent or
// *MessageCommandEvent.
type Event interface {
	Definition() *Definition
	Invocation() *Invocation
	Reply(ctx context.Context, r *Reply) (*discordgo.Message, error)
	Replied() bool
	Retract(ctx context.Context) error
}

// BaseEvent implements the parts of Event shared by both event kinds.
type BaseEvent struct {
	def     *Definition
	inv     *Invocation
	resp    Responder
	replied atomic.Bool
}

// NewBaseEvent binds a definition, its invocation and the deferred reply handle.
func NewBaseEvent(def *Definition, inv *Invocation, resp Responder) *BaseEvent {
	return &BaseEvent{def: def, inv: inv, resp: resp}
}

func (e *BaseEvent) Definition() *Definition { return e.def }
func (e *BaseEvent) Invocation() *Invocation { return e.inv }
func (e *BaseEvent) Replied() bool           { return e.replied.Load() }

// Reply sends r through the deferred handle. The event counts as answered
// once a send succeeds, so a failed reply still leaves the placeholder to be
// retracted.
func (e *BaseEvent) Reply(ctx context.Context, r *Reply) (*discordgo.Message, error) {
	msg, err := e.resp.Send(ctx, r)
	if err != nil {
		return nil, err
	}
	e.replied.Store(true)
	return msg, nil
}

// ReplyText is a shorthand for a content-only reply.
func (e *BaseEvent) ReplyText(ctx context.Context, content string) error {
	_, err := e.Reply(ctx, &Reply{Content: content})
	return err
}

// Retract deletes the deferred placeholder.
func (e *BaseEvent) Retract(ctx context.Context) error {
	return e.resp.Delete(ctx)
}

// SlashEvent is a chat input command invocation.
type SlashEvent struct {
	*BaseEvent
	Options []*discordgo.ApplicationCommandInteractionDataOption
}

// Option returns the named leaf option, if it was supplied.
func (e *SlashEvent) Option(name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, o := range e.Options {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// StringOption returns the named option as a string, or "" when absent.
func (e *SlashEvent) StringOption(name string) string {
	if o, ok := e.Option(name); ok && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue()
	}
	return ""
}

// MessageCommandEvent is a message context menu invocation.
type MessageCommandEvent struct {
	*BaseEvent
	Target *discordgo.Message
}
