package command

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prefixMap map[string]string

func (m prefixMap) GuildPrefix(guildID string) (string, bool) {
	p, ok := m[guildID]
	return p, ok
}

func newTestRouter(t *testing.T, prefixes PrefixSource, cfg RouterConfig) (*Router, *Definition, *Definition) {
	t.Helper()
	ping := slash("ping")
	ping.LegacyAliases = []string{"ping"}
	ban := slash("admin/ban")
	ban.LegacyAliases = []string{"ban"}
	ban.Restrictions = AdminOnly | GuildChannelOnly

	reg, err := NewRegistry(ping, ban)
	require.NoError(t, err)
	return NewRouter(reg, prefixes, cfg), ping, ban
}

func TestLegacyRouting(t *testing.T) {
	r, ping, ban := newTestRouter(t, prefixMap{"g2": "?"}, RouterConfig{DefaultPrefix: "!"})
	admin := &Member{Permissions: discordgo.PermissionAdministrator}

	tests := []struct {
		name string
		msg  TextMessage
		want *Definition
	}{
		{"prefixed", TextMessage{Content: "!ping now", ChannelKind: ChannelGuildText, GuildID: "g1"}, ping},
		{"no trigger", TextMessage{Content: "ping now", ChannelKind: ChannelGuildText, GuildID: "g1"}, nil},
		{"private implies trigger", TextMessage{Content: "ping", ChannelKind: ChannelPrivate}, ping},
		{"case insensitive", TextMessage{Content: "!PING", ChannelKind: ChannelGuildText, GuildID: "g1"}, ping},
		{"space after prefix", TextMessage{Content: "  ! ping", ChannelKind: ChannelGuildText, GuildID: "g1"}, ping},
		{"mention", TextMessage{Content: "<@42> ping", ChannelKind: ChannelGuildText, GuildID: "g1", SelfID: "42", MentionsSelf: true}, ping},
		{"nick mention", TextMessage{Content: "<@!42>ping", ChannelKind: ChannelGuildText, GuildID: "g1", SelfID: "42", MentionsSelf: true}, ping},
		{"mention then prefix", TextMessage{Content: "<@42> !ping", ChannelKind: ChannelGuildText, GuildID: "g1", SelfID: "42", MentionsSelf: true}, ping},
		{"mention not at start", TextMessage{Content: "hey <@42> ping", ChannelKind: ChannelGuildText, GuildID: "g1", SelfID: "42", MentionsSelf: true}, nil},
		{"bot author", TextMessage{Content: "!ping", AuthorBot: true, ChannelKind: ChannelGuildText, GuildID: "g1"}, nil},
		{"guild prefix overrides", TextMessage{Content: "!ping", ChannelKind: ChannelGuildText, GuildID: "g2"}, nil},
		{"guild prefix", TextMessage{Content: "?ping", ChannelKind: ChannelGuildText, GuildID: "g2"}, ping},
		{"unknown alias", TextMessage{Content: "!pong", ChannelKind: ChannelGuildText, GuildID: "g1"}, nil},
		{"only prefix", TextMessage{Content: "!", ChannelKind: ChannelGuildText, GuildID: "g1"}, nil},
		{"restricted denied", TextMessage{Content: "!ban", ChannelKind: ChannelGuildText, GuildID: "g1"}, nil},
		{"restricted permitted", TextMessage{Content: "!ban", ChannelKind: ChannelGuildText, GuildID: "g1", Member: admin}, ban},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := r.Legacy(tt.msg)
			if tt.want == nil {
				assert.False(t, ok)
				assert.Nil(t, d)
				return
			}
			require.True(t, ok)
			assert.Same(t, tt.want, d)
		})
	}
}

func TestLegacyIgnoresPrivateChannels(t *testing.T) {
	r, _, _ := newTestRouter(t, nil, RouterConfig{IgnorePrivateChannels: true})
	_, ok := r.Legacy(TextMessage{Content: "ping", ChannelKind: ChannelPrivate})
	assert.False(t, ok)
}

func TestLegacyWithoutPrefix(t *testing.T) {
	r, _, _ := newTestRouter(t, nil, RouterConfig{})
	_, ok := r.Legacy(TextMessage{Content: "!ping", ChannelKind: ChannelGuildText, GuildID: "g1"})
	assert.False(t, ok)
}

func TestRedirectNotice(t *testing.T) {
	assert.Equal(t, "Please use /admin user ban", RedirectNotice(slash("admin/user/ban")))
}

func TestStructured(t *testing.T) {
	r, ping, _ := newTestRouter(t, nil, RouterConfig{})

	d, err := r.Structured(KindSlash, "ping")
	require.NoError(t, err)
	assert.Same(t, ping, d)

	_, err = r.Structured(KindSlash, "admin")
	assert.ErrorIs(t, err, ErrResolutionMiss)

	_, err = r.Structured(KindMessage, "ping")
	assert.ErrorIs(t, err, ErrResolutionMiss)
}

func TestSlashPath(t *testing.T) {
	leaf := &discordgo.ApplicationCommandInteractionDataOption{Name: "who", Type: discordgo.ApplicationCommandOptionString, Value: "bob"}
	data := discordgo.ApplicationCommandInteractionData{
		Name: "admin",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "user",
			Type: discordgo.ApplicationCommandOptionSubCommandGroup,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name:    "ban",
				Type:    discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{leaf},
			}},
		}},
	}
	path, opts := SlashPath(data)
	assert.Equal(t, "admin/user/ban", path)
	assert.Equal(t, []*discordgo.ApplicationCommandInteractionDataOption{leaf}, opts)

	path, opts = SlashPath(discordgo.ApplicationCommandInteractionData{
		Name:    "roll",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{leaf},
	})
	assert.Equal(t, "roll", path)
	assert.Len(t, opts, 1)
}
