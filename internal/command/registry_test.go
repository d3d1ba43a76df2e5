package command

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryLookups(t *testing.T) {
	ping := slash("ping")
	ping.LegacyAliases = []string{"ping", "Pong"}
	ban := slash("admin/user/ban")
	quote := &Definition{Path: "Quote", Kind: KindMessage, Handler: HandlerFunc(noop)}

	reg, err := NewRegistry(ping, ban, quote)
	require.NoError(t, err)

	d, ok := reg.Slash("admin/user/ban")
	require.True(t, ok)
	assert.Same(t, ban, d)

	_, ok = reg.Slash("admin/user")
	assert.False(t, ok)

	d, ok = reg.Legacy("PONG")
	require.True(t, ok)
	assert.Same(t, ping, d)

	d, ok = reg.Message("Quote")
	require.True(t, ok)
	assert.Same(t, quote, d)

	assert.Equal(t, []*Definition{ping, ban, quote}, reg.All())
	assert.Equal(t, []*Definition{quote}, reg.MessageCommands())

	cmds := reg.ApplicationCommands()
	require.Len(t, cmds, 3)
	assert.Equal(t, "ping", cmds[0].Name)
	assert.Equal(t, "admin", cmds[1].Name)
	assert.Equal(t, discordgo.MessageApplicationCommand, cmds[2].Type)
	assert.Equal(t, "Quote", cmds[2].Name)
}

func TestNewRegistryConfigurationErrors(t *testing.T) {
	aliased := func(path string, aliases ...string) *Definition {
		d := slash(path)
		d.LegacyAliases = aliases
		return d
	}

	tests := []struct {
		name string
		defs []*Definition
	}{
		{"nil definition", []*Definition{nil}},
		{"no handler", []*Definition{{Path: "ping"}}},
		{"duplicate path", []*Definition{slash("ping"), slash("ping")}},
		{"too deep", []*Definition{slash("a/b/c/d")}},
		{"blank segment", []*Definition{slash("a/ /c")}},
		{"leaf and group", []*Definition{slash("a"), slash("a/b")}},
		{"alias reused", []*Definition{aliased("a", "x"), aliased("b", "X")}},
		{"empty alias", []*Definition{aliased("a", " ")}},
		{"nested message command", []*Definition{{Path: "a/b", Kind: KindMessage, Handler: HandlerFunc(noop)}}},
		{"message command alias", []*Definition{{Path: "a", Kind: KindMessage, LegacyAliases: []string{"a"}, Handler: HandlerFunc(noop)}}},
		{"unknown kind", []*Definition{{Path: "a", Kind: Kind(7), Handler: HandlerFunc(noop)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs...)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestSameAliasTwiceOnOneDefinition(t *testing.T) {
	d := slash("roll")
	d.LegacyAliases = []string{"roll", "ROLL"}
	_, err := NewRegistry(d)
	assert.NoError(t, err)
}
