// Package lane runs command handlers off the gateway goroutines.
//
// A lane owns a fixed set of workers. Each worker drains its own FIFO queue
// one job at a time, and jobs are assigned to workers by hashing their key, so
// jobs sharing a key (a guild, or a channel for direct messages) always run in
// the order they were submitted. With one worker, every handler in the bot
// runs strictly sequentially.
//
// Typical usage:
//
//	l := lane.New(lane.Options{Workers: 1})
//	_ = l.Submit(lane.Job{Key: guildID, Event: ev})
//	// on shutdown
//	_ = l.Close(ctx)
package lane

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/logging"
)

// ErrClosed is returned by Submit once Close has been called.
var ErrClosed = errors.New("lane closed")

// Job is one resolved invocation waiting for a worker.
type Job struct {
	// Key selects the worker. Jobs with equal keys keep their order.
	Key   string
	Event command.Event
}

// PanicError is a recovered handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Format prints the goroutine stack for %+v.
func (e *PanicError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s\n%s", e.Error(), e.Stack)
		return
	}
	fmt.Fprint(s, e.Error())
}

// Options configures a lane.
type Options struct {
	// Workers is the number of concurrent workers; values below 1 mean 1.
	Workers int
	// Policy handles handler failures. Nil means DefaultPolicy.
	Policy ExceptionPolicy
	// Middleware wraps every handler, outermost first.
	Middleware []command.Middleware
}

// Lane is safe for concurrent use.
type Lane struct {
	workers []*worker
	policy  ExceptionPolicy
	mws     []command.Middleware

	wg     sync.WaitGroup
	closed atomic.Bool

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

type worker struct {
	id     int
	mu     sync.Mutex
	queue  []Job
	closed bool
	notify chan struct{}
}

// New starts the workers.
func New(opts Options) *Lane {
	n := max(opts.Workers, 1)
	l := &Lane{
		workers: make([]*worker, n),
		policy:  opts.Policy,
		mws:     opts.Middleware,
	}
	if l.policy == nil {
		l.policy = DefaultPolicy()
	}
	for i := range l.workers {
		w := &worker{id: i, notify: make(chan struct{}, 1)}
		l.workers[i] = w
		l.wg.Add(1)
		go l.run(w)
	}
	return l
}

// Submit queues job without blocking. The caller must already hold the
// event's deferred reply.
func (l *Lane) Submit(job Job) error {
	if job.Event == nil {
		return errors.New("lane: job without event")
	}
	if l.closed.Load() {
		return ErrClosed
	}
	w := l.workers[l.shard(job.Key)]

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.queue = append(w.queue, job)
	w.mu.Unlock()

	l.submitted.Add(1)
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return nil
}

func (l *Lane) shard(key string) int {
	if len(l.workers) == 1 || key == "" {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(len(l.workers)))
}

// Pending returns the number of queued jobs not yet picked up.
func (l *Lane) Pending() int {
	n := 0
	for _, w := range l.workers {
		w.mu.Lock()
		n += len(w.queue)
		w.mu.Unlock()
	}
	return n
}

// Stats reports lifetime job counters.
type Stats struct {
	Workers   int
	Submitted uint64
	Completed uint64
	Failed    uint64
	Pending   int
}

func (l *Lane) Stats() Stats {
	return Stats{
		Workers:   len(l.workers),
		Submitted: l.submitted.Load(),
		Completed: l.completed.Load(),
		Failed:    l.failed.Load(),
		Pending:   l.Pending(),
	}
}

// Close stops accepting jobs and waits for queued ones to finish. If ctx ends
// first the workers keep draining in the background.
func (l *Lane) Close(ctx context.Context) error {
	if l.closed.Swap(true) {
		return nil
	}
	for _, w := range l.workers {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lane: %d jobs still pending: %w", l.Pending(), ctx.Err())
	}
}

func (l *Lane) run(w *worker) {
	defer l.wg.Done()
	for {
		w.mu.Lock()
		for len(w.queue) == 0 {
			if w.closed {
				w.mu.Unlock()
				return
			}
			w.mu.Unlock()
			<-w.notify
			w.mu.Lock()
		}
		job := w.queue[0]
		w.queue[0] = Job{}
		w.queue = w.queue[1:]
		w.mu.Unlock()

		l.execute(w.id, job)
	}
}

func (l *Lane) execute(workerID int, job Job) {
	ev := job.Event
	def := ev.Definition()
	inv := ev.Invocation()

	base := logging.Component("lane")
	logger := base.With().
		Int("worker", workerID).
		Str("invocation", inv.ID).
		Str("command", def.Path).
		Logger()
	ctx := logger.WithContext(context.Background())

	if err := l.invoke(ctx, def, ev); err != nil {
		l.failed.Add(1)
		l.fail(ctx, ev, err)
	}
	l.completed.Add(1)

	if !ev.Replied() {
		if err := ev.Retract(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to delete deferred reply")
		}
	}
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

func (l *Lane) invoke(ctx context.Context, def *command.Definition, ev command.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	h := command.Apply(def.Handler, l.mws...)
	if err := h.Handle(ctx, ev); err != nil {
		var st stackTracer
		if !errors.As(err, &st) {
			err = pkgerrors.WithStack(err)
		}
		return err
	}
	return nil
}

func (l *Lane) fail(ctx context.Context, ev command.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().Interface("panic", r).Msg("exception policy panicked")
		}
	}()
	l.policy.HandleFailure(ctx, ev, err)
}
