package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"discord-core-bot/pkg/retrylimit"
)

type commandAPI interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Registrar publishes the command tree. A scope whose stored fingerprint
// matches the payload is left alone, so reconnects do not re-register.
type Registrar struct {
	api     commandAPI
	store   FingerprintStore
	limiter *retrylimit.AdaptiveLimiter
	log     zerolog.Logger
}

// NewRegistrar returns a registrar. store may be nil, in which case every
// sync overwrites.
func NewRegistrar(api commandAPI, store FingerprintStore, log zerolog.Logger) *Registrar {
	return &Registrar{
		api:     api,
		store:   store,
		limiter: retrylimit.NewAdaptiveLimiter(2, 1, 5, 1, 0.5),
		log:     log,
	}
}

// Sync bulk-overwrites the commands of one scope. guildID "" is the global
// scope. It reports whether a request was made.
func (r *Registrar) Sync(ctx context.Context, appID, guildID string, cmds []*discordgo.ApplicationCommand) (bool, error) {
	scope := guildID
	if scope == "" {
		scope = GlobalScope
	}
	fp := Fingerprint(cmds)
	logger := r.log.With().Str("scope", scope).Int("commands", len(cmds)).Logger()

	if r.store != nil {
		if old, ok := r.store.CommandFingerprint(scope); ok && old == fp {
			logger.Debug().Msg("commands unchanged, skipping registration")
			return false, nil
		}
	}

	err := retrylimit.WithRetry(ctx, func() error {
		_, err := r.api.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
		return err
	}, r.limiter)
	if err != nil {
		return true, fmt.Errorf("register commands for %s: %w", scope, err)
	}
	logger.Info().Msg("commands registered")

	if r.store != nil {
		if err := r.store.SetCommandFingerprint(scope, fp); err != nil {
			logger.Warn().Err(err).Msg("failed to store command fingerprint")
		}
	}
	return true, nil
}
