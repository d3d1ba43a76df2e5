package command

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func noop(context.Context, Event) error { return nil }

func slash(path string) *Definition {
	return &Definition{Path: path, Description: "does " + path, Handler: HandlerFunc(noop)}
}

func TestBuildTreeGroups(t *testing.T) {
	defs := []*Definition{slash("info"), slash("admin/user/ban"), slash("admin/user/kick"), slash("admin/purge"), slash("roll")}
	tree, err := BuildTree(defs)
	require.NoError(t, err)

	roots := tree.Roots()
	require.Len(t, roots, 3)
	assert.Equal(t, "info", roots[0].NodeName())
	assert.Equal(t, "admin", roots[1].NodeName())
	assert.Equal(t, "roll", roots[2].NodeName())

	admin, ok := roots[1].(*Group)
	require.True(t, ok)
	assert.Equal(t, []string{"user", "purge"}, admin.Names())
	assert.Equal(t, "user, purge", admin.Description())

	user, ok := admin.Children.Get("user")
	require.True(t, ok)
	assert.Equal(t, "ban, kick", user.(*Group).Description())

	assert.ElementsMatch(t, defs, tree.Leaves())
}

func TestBuildTreeConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
	}{
		{"leaf then group", []string{"admin", "admin/ban"}},
		{"group then leaf", []string{"admin/ban", "admin"}},
		{"duplicate", []string{"roll", "roll"}},
		{"too deep", []string{"a/b/c/d"}},
		{"empty segment", []string{"a//c"}},
		{"empty path", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var defs []*Definition
			for _, p := range tt.paths {
				defs = append(defs, slash(p))
			}
			_, err := BuildTree(defs)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestTreeApplicationCommands(t *testing.T) {
	ban := slash("admin/user/ban")
	ban.Options = []Option{{Name: "who", Type: discordgo.ApplicationCommandOptionUser, Description: "target", Required: true}}
	tree, err := BuildTree([]*Definition{slash("ping"), ban, slash("admin/purge")})
	require.NoError(t, err)

	cmds := tree.ApplicationCommands()
	require.Len(t, cmds, 2)

	assert.Equal(t, "ping", cmds[0].Name)
	assert.Equal(t, "does ping", cmds[0].Description)
	assert.Empty(t, cmds[0].Options)

	admin := cmds[1]
	assert.Equal(t, discordgo.ChatApplicationCommand, admin.Type)
	assert.Equal(t, "user, purge", admin.Description)
	require.Len(t, admin.Options, 2)

	user := admin.Options[0]
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommandGroup, user.Type)
	require.Len(t, user.Options, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, user.Options[0].Type)
	require.Len(t, user.Options[0].Options, 1)
	assert.True(t, user.Options[0].Options[0].Required)

	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, admin.Options[1].Type)
	assert.Equal(t, "purge", admin.Options[1].Name)
}

func TestDescribeTruncates(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := describe(long)
	assert.Len(t, got, descriptionLimit)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", describe("short"))
}

// genPaths draws a collision-free set of paths shaped like a real command
// tree: every root is either a command or a group of commands and groups.
func genPaths(t *rapid.T) []string {
	var paths []string
	roots := rapid.IntRange(1, 5).Draw(t, "roots")
	for i := 0; i < roots; i++ {
		root := "r" + string(rune('a'+i))
		if !rapid.Bool().Draw(t, "rootGroup") {
			paths = append(paths, root)
			continue
		}
		subs := rapid.IntRange(1, 4).Draw(t, "subs")
		for j := 0; j < subs; j++ {
			sub := root + "/s" + string(rune('a'+j))
			if !rapid.Bool().Draw(t, "subGroup") {
				paths = append(paths, sub)
				continue
			}
			leaves := rapid.IntRange(1, 3).Draw(t, "leaves")
			for k := 0; k < leaves; k++ {
				paths = append(paths, sub+"/l"+string(rune('a'+k)))
			}
		}
	}
	return rapid.Permutation(paths).Draw(t, "order")
}

func TestBuildTreeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		paths := genPaths(t)
		defs := make([]*Definition, 0, len(paths))
		for _, p := range paths {
			defs = append(defs, slash(p))
		}

		tree, err := BuildTree(defs)
		require.NoError(t, err)

		leaves := tree.Leaves()
		require.Len(t, leaves, len(defs))
		assert.ElementsMatch(t, defs, leaves)

		// children of every group appear in first-seen order
		want := map[string][]string{}
		seen := map[string]bool{}
		for _, p := range paths {
			segs := strings.Split(p, PathSeparator)
			for i := range segs {
				parent := strings.Join(segs[:i], PathSeparator)
				key := parent + "|" + segs[i]
				if !seen[key] {
					seen[key] = true
					want[parent] = append(want[parent], segs[i])
				}
			}
		}

		var check func(prefix string, g *Group)
		check = func(prefix string, g *Group) {
			assert.Equal(t, want[prefix], g.Names(), "children of %q", prefix)
			for name, n := range g.Children.AllFromFront() {
				if sub, ok := n.(*Group); ok {
					p := name
					if prefix != "" {
						p = prefix + PathSeparator + name
					}
					check(p, sub)
				}
			}
		}
		check("", tree.root)
	})
}
