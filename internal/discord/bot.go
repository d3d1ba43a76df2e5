// Package discord adapts the discordgo gateway to the command core. Gateway
// handlers resolve events, check restrictions and acquire the deferred reply,
// then hand the event to the lane; they never run command handlers
// themselves.
package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/lane"
	"discord-core-bot/internal/logging"
	"discord-core-bot/pkg/retrylimit"
)

// Submitter queues resolved invocations. *lane.Lane implements it.
type Submitter interface {
	Submit(job lane.Job) error
}

// TextWatcher observes every chat message, commands included.
type TextWatcher interface {
	MessageCreated(s *discordgo.Session, m *discordgo.MessageCreate)
	MessageUpdated(s *discordgo.Session, m *discordgo.MessageUpdate)
	MessageDeleted(s *discordgo.Session, m *discordgo.MessageDelete)
}

// ReactionWatcher observes reaction changes.
type ReactionWatcher interface {
	ReactionAdded(s *discordgo.Session, r *discordgo.MessageReactionAdd)
	ReactionRemoved(s *discordgo.Session, r *discordgo.MessageReactionRemove)
	ReactionsCleared(s *discordgo.Session, r *discordgo.MessageReactionRemoveAll)
}

// Options configures a Bot.
type Options struct {
	Token string
	// DebugGuildID additionally registers the commands to one guild, where
	// changes show up immediately.
	DebugGuildID string
	Fingerprints FingerprintStore
	Text         TextWatcher
	Reactions    ReactionWatcher
}

// Bot is one gateway session.
type Bot struct {
	dg        *discordgo.Session
	opts      Options
	router    *command.Router
	jobs      Submitter
	registrar *Registrar
	notices   *retrylimit.AdaptiveLimiter
	started   time.Time
	log       zerolog.Logger
}

// New creates the session without connecting.
func New(opts Options) (*Bot, error) {
	if opts.Token == "" {
		return nil, errors.New("discord token is empty")
	}
	dg, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentMessageContent

	logger := logging.Component("discord")
	return &Bot{
		dg:        dg,
		opts:      opts,
		registrar: NewRegistrar(dg, opts.Fingerprints, logger),
		notices:   retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		started:   time.Now(),
		log:       logger,
	}, nil
}

// Run connects, serves events until ctx ends and then closes the session.
// Commands resolved by router are queued on jobs.
func (b *Bot) Run(ctx context.Context, router *command.Router, jobs Submitter) error {
	b.router = router
	b.jobs = jobs

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onMessageUpdate)
	b.dg.AddHandler(b.onMessageDelete)
	b.dg.AddHandler(b.onMessageReactionAdd)
	b.dg.AddHandler(b.onMessageReactionRemove)
	b.dg.AddHandler(b.onMessageReactionRemoveAll)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing session")
	if err := b.dg.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("connected")

	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}
	cmds := b.router.Registry().ApplicationCommands()

	ctx := context.Background()
	if _, err := b.registrar.Sync(ctx, appID, "", cmds); err != nil {
		b.log.Error().Err(err).Msg("failed to register global commands")
	}
	if b.opts.DebugGuildID != "" {
		if _, err := b.registrar.Sync(ctx, appID, b.opts.DebugGuildID, cmds); err != nil {
			b.log.Error().Err(err).Msg("failed to register debug guild commands")
		}
	}
}

// AppID implements Stats.
func (b *Bot) AppID() string {
	if b.dg.State == nil || b.dg.State.User == nil {
		return ""
	}
	return b.dg.State.User.ID
}

// GuildCount implements Stats.
func (b *Bot) GuildCount() int {
	if b.dg.State == nil {
		return 0
	}
	b.dg.State.RLock()
	defer b.dg.State.RUnlock()
	return len(b.dg.State.Guilds)
}

// Latency implements Stats.
func (b *Bot) Latency() time.Duration { return b.dg.HeartbeatLatency() }

// Started implements Stats.
func (b *Bot) Started() time.Time { return b.started }
