package core

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/storage"
)

type captureResponder struct {
	replies []*command.Reply
}

func (c *captureResponder) Send(_ context.Context, r *command.Reply) (*discordgo.Message, error) {
	c.replies = append(c.replies, r)
	return &discordgo.Message{ID: "m"}, nil
}

func (c *captureResponder) Delete(context.Context) error { return nil }

func newStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(filepath.Join(t.TempDir(), "guilds.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func definition(t *testing.T, deps Deps, path string) *command.Definition {
	t.Helper()
	reg, err := command.NewRegistry(Definitions(deps)...)
	require.NoError(t, err)
	d, ok := reg.Slash(path)
	require.True(t, ok, path)
	return d
}

func slashEvent(def *command.Definition, opts ...*discordgo.ApplicationCommandInteractionDataOption) (*command.SlashEvent, *captureResponder) {
	resp := &captureResponder{}
	member := &command.Member{Permissions: discordgo.PermissionAdministrator}
	inv := command.NewInvocation(command.User{ID: "u1", Name: "alice"}, member, "c1", command.ChannelGuildText, "g1")
	return &command.SlashEvent{BaseEvent: command.NewBaseEvent(def, inv, resp), Options: opts}, resp
}

func fieldValue(t *testing.T, r *command.Reply, name string) string {
	t.Helper()
	for _, e := range r.Embeds {
		for _, f := range e.Fields {
			if f.Name == name {
				return f.Value
			}
		}
	}
	t.Fatalf("field %q not found", name)
	return ""
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func boolOpt(name string, v bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

func TestDefinitionsRegister(t *testing.T) {
	reg, err := command.NewRegistry(Definitions(Deps{})...)
	require.NoError(t, err)

	d, ok := reg.Legacy("PING")
	require.True(t, ok)
	assert.Equal(t, "ping", d.Path)

	prefix, ok := reg.Slash("prefix")
	require.True(t, ok)
	assert.True(t, prefix.HasRestriction(command.AdminOnly|command.GuildChannelOnly))
}

func TestPing(t *testing.T) {
	ctx := context.Background()
	def := definition(t, Deps{Latency: func() time.Duration { return 42 * time.Millisecond }}, "ping")
	ev, resp := slashEvent(def)

	require.NoError(t, def.Handler.Handle(ctx, ev))
	require.Len(t, resp.replies, 1)
	assert.Equal(t, "42ms", fieldValue(t, resp.replies[0], "Gateway Latency"))
	assert.Equal(t, "/ping", fieldValue(t, resp.replies[0], "Command"))
}

func TestPingWithoutHeartbeat(t *testing.T) {
	def := definition(t, Deps{Latency: func() time.Duration { return 0 }}, "ping")
	ev, resp := slashEvent(def)

	require.NoError(t, def.Handler.Handle(context.Background(), ev))
	assert.Contains(t, fieldValue(t, resp.replies[0], "Warnings"), "No heartbeat")
}

func TestPrefixShowDefault(t *testing.T) {
	store := newStore(t)
	def := definition(t, Deps{Settings: store, DefaultPrefix: "!"}, "prefix")
	ev, resp := slashEvent(def)

	require.NoError(t, def.Handler.Handle(context.Background(), ev))
	assert.Equal(t, "`!` (default)", fieldValue(t, resp.replies[0], "Prefix"))
}

func TestPrefixSetAndReset(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	def := definition(t, Deps{Settings: store, DefaultPrefix: "!"}, "prefix")

	ev, resp := slashEvent(def, strOpt("value", "?"))
	require.NoError(t, def.Handler.Handle(ctx, ev))
	assert.Equal(t, "`?`", fieldValue(t, resp.replies[0], "Prefix"))

	p, ok := store.GuildPrefix("g1")
	require.True(t, ok)
	assert.Equal(t, "?", p)

	ev, _ = slashEvent(def, boolOpt("reset", true))
	require.NoError(t, def.Handler.Handle(ctx, ev))
	_, ok = store.GuildPrefix("g1")
	assert.False(t, ok)
}

func TestPrefixRejectsInvalid(t *testing.T) {
	store := newStore(t)
	def := definition(t, Deps{Settings: store}, "prefix")
	ev, resp := slashEvent(def, strOpt("value", "a b"))

	require.NoError(t, def.Handler.Handle(context.Background(), ev))
	assert.Contains(t, fieldValue(t, resp.replies[0], "Warnings"), "whitespace")
	_, ok := store.GuildPrefix("g1")
	assert.False(t, ok)
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, validatePrefix("!"))
	assert.NoError(t, validatePrefix("bot."))
	assert.Error(t, validatePrefix(""))
	assert.Error(t, validatePrefix("waytoolong"))
	assert.Error(t, validatePrefix("<@"))
	assert.Error(t, validatePrefix("/"))
	assert.Error(t, validatePrefix("a\tb"))
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordCommand("g1", "c1", "u1", "alice", "ping", at))
	require.NoError(t, store.RecordCommand("g1", "c1", "u2", "bob", "admin/user/ban", at.Add(time.Minute)))

	def := definition(t, Deps{Settings: store}, "history")
	ev, resp := slashEvent(def)
	require.NoError(t, def.Handler.Handle(ctx, ev))

	require.Len(t, resp.replies, 1)
	content := resp.replies[0].Content
	assert.True(t, strings.HasPrefix(content, "```md\n"))
	assert.LessOrEqual(t, len(content), 2000)
	// newest first
	assert.Less(t, strings.Index(content, "/admin user ban"), strings.Index(content, "/ping"))
}

func TestHistoryEmpty(t *testing.T) {
	store := newStore(t)
	def := definition(t, Deps{Settings: store}, "history")
	ev, resp := slashEvent(def)
	require.NoError(t, def.Handler.Handle(context.Background(), ev))
	assert.Equal(t, "No commands recorded yet.", fieldValue(t, resp.replies[0], "History"))
}
