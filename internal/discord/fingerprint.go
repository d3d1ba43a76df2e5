package discord

import (
	"cmp"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

// FingerprintStore remembers the fingerprint of the last payload registered
// per scope. A scope is a guild id, or GlobalScope.
type FingerprintStore interface {
	CommandFingerprint(scope string) (uint64, bool)
	SetCommandFingerprint(scope string, fp uint64) error
}

// GlobalScope names the application-wide command scope.
const GlobalScope = "global"

type hashedCommand struct {
	Name        string                           `json:"name"`
	Description string                           `json:"description"`
	Type        discordgo.ApplicationCommandType `json:"type"`
	Options     []hashedOption                   `json:"options,omitempty"`
}

type hashedOption struct {
	Name        string                                 `json:"name"`
	Description string                                 `json:"description"`
	Type        discordgo.ApplicationCommandOptionType `json:"type"`
	Required    bool                                   `json:"required"`
	Choices     []hashedChoice                         `json:"choices,omitempty"`
	Options     []hashedOption                         `json:"options,omitempty"`
}

type hashedChoice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Fingerprint hashes a registration payload. Server-assigned fields such as
// ids and versions are left out and commands are ordered by type and name.
// Option order is kept because Discord shows options in that order.
func Fingerprint(cmds []*discordgo.ApplicationCommand) uint64 {
	hashed := make([]hashedCommand, 0, len(cmds))
	for _, c := range cmds {
		t := c.Type
		if t == 0 {
			t = discordgo.ChatApplicationCommand
		}
		hashed = append(hashed, hashedCommand{
			Name:        c.Name,
			Description: c.Description,
			Type:        t,
			Options:     hashOptions(c.Options),
		})
	}
	slices.SortFunc(hashed, func(a, b hashedCommand) int {
		return cmp.Or(cmp.Compare(a.Type, b.Type), cmp.Compare(a.Name, b.Name))
	})

	data, err := json.Marshal(hashed)
	if err != nil {
		// choice values are plain strings and numbers; this cannot fail
		return 0
	}
	return xxhash.Sum64(data)
}

func hashOptions(opts []*discordgo.ApplicationCommandOption) []hashedOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]hashedOption, 0, len(opts))
	for _, o := range opts {
		h := hashedOption{
			Name:        o.Name,
			Description: o.Description,
			Type:        o.Type,
			Required:    o.Required,
			Options:     hashOptions(o.Options),
		}
		for _, c := range o.Choices {
			h.Choices = append(h.Choices, hashedChoice{Name: c.Name, Value: c.Value})
		}
		out = append(out, h)
	}
	return out
}
