package lane

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/report"
)

// ExceptionPolicy decides what happens when a handler fails. It runs on the
// worker and must not assume the event has been answered.
type ExceptionPolicy interface {
	HandleFailure(ctx context.Context, ev command.Event, err error)
}

// PolicyFunc adapts a function to ExceptionPolicy.
type PolicyFunc func(ctx context.Context, ev command.Event, err error)

func (f PolicyFunc) HandleFailure(ctx context.Context, ev command.Event, err error) {
	f(ctx, ev, err)
}

// FailureMessage is the reply DefaultPolicy sends for err.
func FailureMessage(err error) string {
	return report.LimitContent(2000, fmt.Sprintf("Unhandled Error: [%s] %s", report.ErrorKind(err), err.Error()))
}

// DefaultPolicy logs the failure with its stack and answers the user with a
// short summary. A failed reply is logged and dropped.
func DefaultPolicy() ExceptionPolicy {
	return PolicyFunc(func(ctx context.Context, ev command.Event, err error) {
		l := zerolog.Ctx(ctx)
		l.Error().Str("stack", report.StackTrace(err)).Err(err).Msg("command failed")

		if _, rerr := ev.Reply(ctx, &command.Reply{Content: FailureMessage(err)}); rerr != nil {
			l.Warn().Err(rerr).Msg("failed to send error reply")
		}
	})
}
