// Package core holds the commands every deployment ships with.
package core

import (
	"time"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/storage"
)

// Settings is the part of the settings store the core commands use.
type Settings interface {
	GuildSettings(guildID string) (storage.GuildSettings, error)
	SaveGuildSettings(guildID string, settings storage.GuildSettings) error
	FetchCommandHistory(guildID string) ([]storage.CommandHistoryRecord, error)
}

// Deps are the collaborators of the core commands.
type Deps struct {
	Settings Settings
	// DefaultPrefix is the process-wide legacy prefix, shown when a guild has
	// none of its own.
	DefaultPrefix string
	// Latency reports the gateway heartbeat round trip.
	Latency func() time.Duration
}

// Definitions returns the core commands.
func Definitions(deps Deps) []*command.Definition {
	return []*command.Definition{
		pingCommand(deps),
		prefixCommand(deps),
		historyCommand(deps),
	}
}
