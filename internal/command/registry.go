package command

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/cases"
)

// ConfigurationError reports an invalid set of definitions. It is fatal at
// startup.
type ConfigurationError struct {
	Path   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("command %q: %s", e.Path, e.Reason)
}

var aliasFolder = cases.Fold()

// FoldAlias normalizes a legacy trigger word for case-insensitive lookup.
func FoldAlias(alias string) string {
	return aliasFolder.String(alias)
}

// Registry is the lookup side of the command set. It is built once before the
// bot starts and is read-only afterwards, so concurrent reads need no locking.
type Registry struct {
	defs          []*Definition
	byPath        map[string]*Definition
	byName        map[string]*Definition
	byLegacyAlias map[string]*Definition
	tree          *Tree
}

// NewRegistry validates defs and builds the lookup tables and the registration
// tree. Definition order is kept for registration.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{
		byPath:        make(map[string]*Definition),
		byName:        make(map[string]*Definition),
		byLegacyAlias: make(map[string]*Definition),
	}

	var slash []*Definition
	for _, d := range defs {
		if err := r.add(d); err != nil {
			return nil, err
		}
		if d.Kind == KindSlash {
			slash = append(slash, d)
		}
	}

	tree, err := BuildTree(slash)
	if err != nil {
		return nil, err
	}
	r.tree = tree
	return r, nil
}

func (r *Registry) add(d *Definition) error {
	if d == nil {
		return &ConfigurationError{Reason: "nil definition"}
	}
	if d.Handler == nil {
		return &ConfigurationError{Path: d.Path, Reason: "no handler"}
	}

	switch d.Kind {
	case KindSlash:
		segs := d.Segments()
		if len(segs) > MaxPathDepth {
			return &ConfigurationError{Path: d.Path, Reason: fmt.Sprintf("path deeper than %d segments", MaxPathDepth)}
		}
		for _, s := range segs {
			if strings.TrimSpace(s) == "" {
				return &ConfigurationError{Path: d.Path, Reason: "empty path segment"}
			}
		}
		if _, dup := r.byPath[d.Path]; dup {
			return &ConfigurationError{Path: d.Path, Reason: "duplicate path"}
		}
		r.byPath[d.Path] = d

	case KindMessage:
		if d.Path == "" || strings.Contains(d.Path, PathSeparator) {
			return &ConfigurationError{Path: d.Path, Reason: "message commands take a single name"}
		}
		if _, dup := r.byName[d.Path]; dup {
			return &ConfigurationError{Path: d.Path, Reason: "duplicate message command"}
		}
		if len(d.LegacyAliases) > 0 {
			return &ConfigurationError{Path: d.Path, Reason: "message commands have no legacy aliases"}
		}
		r.byName[d.Path] = d

	default:
		return &ConfigurationError{Path: d.Path, Reason: "unknown kind " + d.Kind.String()}
	}

	for _, a := range d.LegacyAliases {
		key := FoldAlias(strings.TrimSpace(a))
		if key == "" {
			return &ConfigurationError{Path: d.Path, Reason: "empty legacy alias"}
		}
		if prev, dup := r.byLegacyAlias[key]; dup && prev != d {
			return &ConfigurationError{Path: d.Path, Reason: fmt.Sprintf("legacy alias %q already used by %q", a, prev.Path)}
		}
		r.byLegacyAlias[key] = d
	}

	r.defs = append(r.defs, d)
	return nil
}

// Slash returns the chat command registered at path.
func (r *Registry) Slash(path string) (*Definition, bool) {
	d, ok := r.byPath[path]
	return d, ok
}

// Message returns the message context command registered under name.
func (r *Registry) Message(name string) (*Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Legacy returns the definition a free-text trigger word points at.
func (r *Registry) Legacy(word string) (*Definition, bool) {
	d, ok := r.byLegacyAlias[FoldAlias(word)]
	return d, ok
}

// All returns every definition in registration order.
func (r *Registry) All() []*Definition {
	return append([]*Definition(nil), r.defs...)
}

// MessageCommands returns the message context commands in registration order.
func (r *Registry) MessageCommands() []*Definition {
	var out []*Definition
	for _, d := range r.defs {
		if d.Kind == KindMessage {
			out = append(out, d)
		}
	}
	return out
}

// Tree returns the registration tree of the chat commands.
func (r *Registry) Tree() *Tree {
	return r.tree
}

// ApplicationCommands is the full bulk-overwrite payload: the chat command
// tree followed by the message context commands.
func (r *Registry) ApplicationCommands() []*discordgo.ApplicationCommand {
	cmds := r.tree.ApplicationCommands()
	for _, d := range r.MessageCommands() {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Type: discordgo.MessageApplicationCommand,
			Name: d.Path,
		})
	}
	return cmds
}
