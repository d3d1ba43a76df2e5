package command

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Middleware wraps a handler (logging, history, access checks).
type Middleware func(Handler) Handler

// Apply wraps h with mws. The first middleware in the list is the outermost.
func Apply(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// WithLogging logs every invocation with its duration and outcome.
func WithLogging() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, ev Event) error {
			inv := ev.Invocation()
			err := next.Handle(ctx, ev)

			l := log.With().
				Str("component", "command").
				Str("invocation", inv.ID).
				Str("path", ev.Definition().Path).
				Str("user", inv.User.ID).
				Str("guild", inv.GuildID).
				Dur("took", time.Since(inv.Start)).
				Logger()
			if err != nil {
				l.Warn().Err(err).Msg("command failed")
			} else {
				l.Debug().Msg("command done")
			}
			return err
		})
	}
}

// HistoryRecorder persists executed commands per guild.
type HistoryRecorder interface {
	RecordCommand(guildID, channelID, userID, userName, path string, at time.Time) error
}

// WithHistory records each guild invocation after the handler ran, whether it
// succeeded or not. Direct messages are not recorded.
func WithHistory(rec HistoryRecorder) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, ev Event) error {
			err := next.Handle(ctx, ev)

			inv := ev.Invocation()
			if inv.GuildID == "" {
				return err
			}
			if e := rec.RecordCommand(inv.GuildID, inv.ChannelID, inv.User.ID, inv.User.Name, ev.Definition().Path, inv.Start); e != nil {
				log.Warn().Err(e).Str("path", ev.Definition().Path).Msg("failed to record command")
			}
			return err
		})
	}
}
