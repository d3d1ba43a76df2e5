package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/commands/core"
	"discord-core-bot/internal/config"
	"discord-core-bot/internal/discord"
	"discord-core-bot/internal/lane"
	"discord-core-bot/internal/logging"
	"discord-core-bot/internal/storage"
	"discord-core-bot/internal/version"
)

const shutdownTimeout = 30 * time.Second

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve commands",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBot()
		},
	}
}

func botInfo(cfg *config.Config) discord.BotInfo {
	name := cfg.BotName
	if name == "" {
		name = version.AppName
	}
	info := discord.BotInfo{
		Name:        name,
		Version:     version.String(),
		Support:     cfg.BotSupport,
		AllowInvite: cfg.AllowInvite,
	}
	// env maps are unordered, so groups and fields are listed by name.
	for _, group := range slices.Sorted(maps.Keys(cfg.BotCredits)) {
		info.Credits = append(info.Credits, discord.CreditGroup{
			Group: group,
			Names: strings.Split(cfg.BotCredits[group], "|"),
		})
	}
	for _, field := range slices.Sorted(maps.Keys(cfg.BotInfoFields)) {
		info.Custom = append(info.Custom, discord.InfoField{Name: field, Value: cfg.BotInfoFields[field]})
	}
	return info
}

// definitions assembles every command the bot serves. stats and deps may be
// zero when the handlers are never run.
func definitions(cfg *config.Config, deps core.Deps, stats discord.Stats) []*command.Definition {
	return discord.WithInfo(core.Definitions(deps), discord.InfoCommand(botInfo(cfg), stats))
}

func runBot() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logs, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logs.Close()

	log.Info().Str("version", version.String()).Msgf("starting %s", version.AppName)

	store, err := storage.New(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to flush settings")
		}
	}()

	bot, err := discord.New(discord.Options{
		Token:        cfg.DiscordToken,
		DebugGuildID: cfg.DebugGuildID,
		Fingerprints: store,
	})
	if err != nil {
		return err
	}

	deps := core.Deps{Settings: store, DefaultPrefix: cfg.CommandPrefix, Latency: bot.Latency}
	reg, err := command.NewRegistry(definitions(cfg, deps, bot)...)
	if err != nil {
		return err
	}
	router := command.NewRouter(reg, store, command.RouterConfig{
		DefaultPrefix:         cfg.CommandPrefix,
		IgnorePrivateChannels: cfg.IgnorePrivateChannels,
	})

	jobs := lane.New(lane.Options{
		Workers:    cfg.LaneWorkers,
		Middleware: []command.Middleware{command.WithLogging(), command.WithHistory(store)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx, router, jobs); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
		runErr = <-errCh
	case runErr = <-errCh:
		cancel()
	}
	if runErr != nil {
		log.Error().Err(runErr).Msg("discord bot error")
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer closeCancel()
	if err := jobs.Close(closeCtx); err != nil {
		log.Warn().Err(err).Msg("lane did not drain")
	}
	stats := jobs.Stats()
	log.Info().
		Uint64("completed", stats.Completed).
		Uint64("failed", stats.Failed).
		Msg("bot exited")
	return runErr
}
