package command

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/elliotchance/orderedmap/v3"
)

// descriptionLimit is Discord's maximum length for command descriptions.
const descriptionLimit = 100

// Node is an entry of the registration tree: either a *Leaf or a *Group.
type Node interface {
	NodeName() string
	node()
}

// Leaf is a path segment that resolves to a definition.
type Leaf struct {
	Name string
	Def  *Definition
}

func (l *Leaf) NodeName() string { return l.Name }
func (*Leaf) node()              {}

// Group is a path segment that holds further segments, in insertion order.
type Group struct {
	Name     string
	Children *orderedmap.OrderedMap[string, Node]
}

func newGroup(name string) *Group {
	return &Group{Name: name, Children: orderedmap.NewOrderedMap[string, Node]()}
}

func (g *Group) NodeName() string { return g.Name }
func (*Group) node()              {}

// Names lists the immediate children in insertion order.
func (g *Group) Names() []string {
	names := make([]string, 0, g.Children.Len())
	for name := range g.Children.Keys() {
		names = append(names, name)
	}
	return names
}

// Description is the fallback text shown for a group: its children's names.
func (g *Group) Description() string {
	return strings.Join(g.Names(), ", ")
}

// Tree is the three level command → group → subcommand hierarchy built from
// flat paths.
type Tree struct {
	root *Group
}

// BuildTree folds the definitions' paths into a tree. A segment that is both
// a command and a group, a duplicate path, an empty segment or a path deeper
// than MaxPathDepth is a ConfigurationError.
func BuildTree(defs []*Definition) (*Tree, error) {
	root := newGroup("")

	for _, d := range defs {
		segs := d.Segments()
		if len(segs) > MaxPathDepth {
			return nil, &ConfigurationError{Path: d.Path, Reason: fmt.Sprintf("path deeper than %d segments", MaxPathDepth)}
		}

		g := root
		for i, name := range segs {
			if name == "" {
				return nil, &ConfigurationError{Path: d.Path, Reason: "empty path segment"}
			}
			existing, ok := g.Children.Get(name)

			if i == len(segs)-1 {
				if ok {
					if _, leaf := existing.(*Leaf); leaf {
						return nil, &ConfigurationError{Path: d.Path, Reason: "duplicate path"}
					}
					return nil, &ConfigurationError{Path: d.Path, Reason: fmt.Sprintf("%q is already a group", name)}
				}
				g.Children.Set(name, &Leaf{Name: name, Def: d})
				break
			}

			if !ok {
				sub := newGroup(name)
				g.Children.Set(name, sub)
				g = sub
				continue
			}
			sub, isGroup := existing.(*Group)
			if !isGroup {
				return nil, &ConfigurationError{Path: d.Path, Reason: fmt.Sprintf("%q is a command and cannot hold subcommands", name)}
			}
			g = sub
		}
	}

	return &Tree{root: root}, nil
}

// Roots returns the top-level nodes in insertion order.
func (t *Tree) Roots() []Node {
	nodes := make([]Node, 0, t.root.Children.Len())
	for n := range t.root.Children.Values() {
		nodes = append(nodes, n)
	}
	return nodes
}

// Leaves returns every definition in depth-first, insertion order.
func (t *Tree) Leaves() []*Definition {
	var out []*Definition
	var walk func(g *Group)
	walk = func(g *Group) {
		for n := range g.Children.Values() {
			switch n := n.(type) {
			case *Leaf:
				out = append(out, n.Def)
			case *Group:
				walk(n)
			}
		}
	}
	walk(t.root)
	return out
}

// ApplicationCommands renders the tree as chat input commands for bulk
// registration.
func (t *Tree) ApplicationCommands() []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0, t.root.Children.Len())
	for name, n := range t.root.Children.AllFromFront() {
		cmd := &discordgo.ApplicationCommand{
			Type: discordgo.ChatApplicationCommand,
			Name: name,
		}
		switch n := n.(type) {
		case *Leaf:
			cmd.Description = describe(n.Def.Description)
			cmd.Options = leafOptions(n.Def)
		case *Group:
			cmd.Description = describe(n.Description())
			cmd.Options = groupOptions(n)
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func groupOptions(g *Group) []*discordgo.ApplicationCommandOption {
	opts := make([]*discordgo.ApplicationCommandOption, 0, g.Children.Len())
	for name, n := range g.Children.AllFromFront() {
		switch n := n.(type) {
		case *Leaf:
			opts = append(opts, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        name,
				Description: describe(n.Def.Description),
				Options:     leafOptions(n.Def),
			})
		case *Group:
			opts = append(opts, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        name,
				Description: describe(n.Description()),
				Options:     groupOptions(n),
			})
		}
	}
	return opts
}

func leafOptions(d *Definition) []*discordgo.ApplicationCommandOption {
	if len(d.Options) == 0 {
		return nil
	}
	opts := make([]*discordgo.ApplicationCommandOption, 0, len(d.Options))
	for _, o := range d.Options {
		opts = append(opts, &discordgo.ApplicationCommandOption{
			Type:        o.Type,
			Name:        o.Name,
			Description: describe(o.Description),
			Required:    o.Required,
		})
	}
	return opts
}

func describe(s string) string {
	r := []rune(s)
	if len(r) <= descriptionLimit {
		return s
	}
	return string(r[:descriptionLimit-3]) + "..."
}
