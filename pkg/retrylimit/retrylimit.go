// Package retrylimit wraps Discord REST calls with an adaptive rate limit and
// exponential backoff. The limit rises on success and drops on 429 and 5xx
// responses.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	err := retrylimit.WithRetry(ctx, func() error {
//	    _, err := s.ApplicationCommandBulkOverwrite(appID, "", cmds)
//	    return err
//	}, lim)
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a token bucket whose rate follows request outcomes.
// It is safe for concurrent use.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
	cooldown  time.Duration
}

// NewAdaptiveLimiter creates a limiter starting at initial requests per
// second, clamped to [min, max]. stepUp is added after a success, stepDown
// multiplies the rate after a rate-limit or server error.
func NewAdaptiveLimiter(initial, min, max rate.Limit, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if initial < 1 {
		initial = 1
	}
	if min < 1 {
		min = 1
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, burstFor(initial)),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
		cooldown: 10 * time.Second,
	}
}

// Wait blocks until a token is available or ctx ends.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate unless an error was seen during the cooldown.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > a.cooldown {
		a.adjust(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited lowers the rate.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.adjust(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) adjust(l rate.Limit) {
	l = min(max(l, a.minLimit), a.maxLimit)
	if l != a.limiter.Limit() {
		a.limiter.SetLimit(l)
		a.limiter.SetBurst(burstFor(l))
	}
}

func burstFor(l rate.Limit) int {
	return max(1, int(l))
}

// FatalError stops retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// StatusCode extracts the HTTP status of a Discord REST failure, or 0.
func StatusCode(err error) int {
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode
	}
	return 0
}

// Retryable reports whether err is worth another attempt: rate limits,
// server errors and failures without an HTTP status (network errors). Other
// 4xx responses are final.
func Retryable(err error) bool {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return false
	}
	code := StatusCode(err)
	return code == 0 || code == http.StatusTooManyRequests || code >= 500
}

// Config tunes WithRetryConfig.
type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration
	Multiplier     float64
	Jitter         bool
	OnRetry        func(attempt int, err error)
}

// DefaultConfig suits one-off REST calls such as command registration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2,
		Jitter:         true,
	}
}

// WithRetry runs fn with DefaultConfig.
func WithRetry(ctx context.Context, fn func() error, lim *AdaptiveLimiter) error {
	return WithRetryConfig(ctx, fn, lim, DefaultConfig())
}

// WithRetryConfig runs fn until it succeeds, fails with a non-retryable
// error, ctx ends or the attempts are used up. lim may be nil.
func WithRetryConfig(ctx context.Context, fn func() error, lim *AdaptiveLimiter, cfg Config) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.InitialDelay

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lim != nil {
			if werr := lim.Wait(ctx); werr != nil {
				return werr
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				log.Debug().Int("attempt", attempt).Msg("request succeeded after retry")
			}
			return nil
		}
		if !Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		wait := delay
		code := StatusCode(err)
		if code == http.StatusTooManyRequests || code >= 500 {
			if lim != nil {
				lim.RateLimited()
			}
			if code == http.StatusTooManyRequests {
				wait = cfg.RateLimitDelay
			}
		}
		if cfg.Jitter {
			wait = addJitter(wait)
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("status", code).Dur("wait", wait).Msg("request failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = min(time.Duration(float64(delay)*cfg.Multiplier), cfg.MaxDelay)
	}

	return fmt.Errorf("gave up after %d attempts: %w", cfg.MaxAttempts, err)
}

func addJitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	return d + rand.N(d/4)
}
