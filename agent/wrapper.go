package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aixgo-dev/devkit/pkg/observability"
)

var (
	// ErrAlreadyStarted is returned when StartLoop is called more than once.
	ErrAlreadyStarted = errors.New("agent loop already started")

	// ErrNotStarted is returned when StopLoop is called before StartLoop.
	ErrNotStarted = errors.New("agent loop not started")

	// ErrInvalidLoopTimeout is returned for a non-positive loop timeout.
	ErrInvalidLoopTimeout = errors.New("loop timeout must be positive")
)

const (
	// DefaultLoopTimeout is the pause between two loop iterations.
	DefaultLoopTimeout = 50 * time.Millisecond

	// DefaultMaxReactions bounds the envelopes processed per iteration.
	DefaultMaxReactions = 20
)

// Option configures a Wrapper.
type Option func(*Wrapper)

// WithInbox replaces the default in-memory inbox.
func WithInbox(inbox Inbox) Option {
	return func(w *Wrapper) {
		w.inbox = inbox
	}
}

// WithMaxReactions sets how many envelopes one loop iteration may process.
func WithMaxReactions(n int) Option {
	return func(w *Wrapper) {
		if n > 0 {
			w.maxReactions = n
		}
	}
}

// WithLogger sets the logger used by the loop.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Wrapper) {
		w.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation of the loop.
func WithMetrics(m *observability.Metrics) Option {
	return func(w *Wrapper) {
		w.metrics = m
	}
}

// Wrapper runs a single agent: an inbox plus a processing loop that
// dispatches envelopes to the configured skill handlers.
//
// The loop is one-shot: StartLoop spawns it on its own goroutine and
// StopLoop ends it. Running and Done expose the loop lifecycle as channels
// so callers can wait for state changes instead of polling IsRunning.
type Wrapper struct {
	cfg          Config
	handlers     []boundHandler
	inbox        Inbox
	maxReactions int
	logger       zerolog.Logger
	metrics      *observability.Metrics

	loopTimeout atomic.Int64
	running     atomic.Bool
	processed   atomic.Uint64
	ticks       atomic.Uint64

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	loopErr  error
	runningC chan struct{}
	doneC    chan struct{}
}

// New builds a wrapper from cfg. The configuration is validated and its
// handler dispatch order fixed at construction time.
func New(cfg Config, opts ...Option) (*Wrapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}

	w := &Wrapper{
		cfg:          cfg,
		handlers:     cfg.dispatchOrder(),
		inbox:        NewMemoryInbox(),
		maxReactions: DefaultMaxReactions,
		logger:       zerolog.Nop(),
		runningC:     make(chan struct{}),
		doneC:        make(chan struct{}),
	}
	w.loopTimeout.Store(int64(DefaultLoopTimeout))

	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With().Str("agent", cfg.Name).Logger()
	return w, nil
}

// Name returns the agent name.
func (w *Wrapper) Name() string { return w.cfg.Name }

// SetLoopTimeout sets the pause between loop iterations. It may be called
// while the loop is running; the new value applies from the next iteration.
func (w *Wrapper) SetLoopTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidLoopTimeout, d)
	}
	w.loopTimeout.Store(int64(d))
	return nil
}

// LoopTimeout returns the current loop timeout.
func (w *Wrapper) LoopTimeout() time.Duration {
	return time.Duration(w.loopTimeout.Load())
}

// PutInbox enqueues an envelope.
func (w *Wrapper) PutInbox(ctx context.Context, msg *Message) error {
	if err := w.inbox.Put(ctx, msg); err != nil {
		return fmt.Errorf("put inbox %s: %w", w.cfg.Name, err)
	}
	return nil
}

// DummyEnvelope returns a synthetic envelope addressed to this agent.
func (w *Wrapper) DummyEnvelope() *Message {
	return NewMessage("dummy", map[string]string{"content": "test"}).
		Addressed(w.cfg.Name, w.cfg.Name)
}

// IsInboxEmpty reports whether the inbox is drained. A backend error is
// logged and reported as not empty.
func (w *Wrapper) IsInboxEmpty() bool {
	n, err := w.inbox.Len(context.Background())
	if err != nil {
		w.logger.Warn().Err(err).Msg("inbox length unavailable")
		return false
	}
	return n == 0
}

// IsRunning reports whether the loop goroutine is currently executing.
func (w *Wrapper) IsRunning() bool {
	return w.running.Load()
}

// Running is closed once the loop goroutine has begun.
func (w *Wrapper) Running() <-chan struct{} { return w.runningC }

// Done is closed once the loop goroutine has exited.
func (w *Wrapper) Done() <-chan struct{} { return w.doneC }

// Err returns the error that terminated the loop, if any.
func (w *Wrapper) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loopErr
}

// Processed returns the number of envelopes taken from the inbox.
func (w *Wrapper) Processed() uint64 { return w.processed.Load() }

// Ticks returns the number of completed loop iterations.
func (w *Wrapper) Ticks() uint64 { return w.ticks.Load() }

// StartLoop starts the processing loop on its own goroutine and returns
// immediately. The loop runs until StopLoop is called or ctx is canceled.
func (w *Wrapper) StartLoop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	w.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.loop(loopCtx)
	return nil
}

// StopLoop stops the loop and blocks until it has exited. If the loop has
// been started but has not begun running yet, StopLoop waits for it first
// so the stop request cannot be lost. The returned error is the one that
// terminated the loop, if any.
func (w *Wrapper) StopLoop(ctx context.Context) error {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}

	select {
	case <-w.runningC:
	case <-ctx.Done():
		return ctx.Err()
	}

	cancel()

	select {
	case <-w.doneC:
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.Err()
}

func (w *Wrapper) loop(ctx context.Context) {
	w.running.Store(true)
	close(w.runningC)
	defer close(w.doneC)
	defer w.running.Store(false)

	w.logger.Debug().Dur("loop_timeout", w.LoopTimeout()).Msg("agent loop started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Uint64("processed", w.Processed()).Msg("agent loop stopped")
			return
		case <-timer.C:
		}

		if err := w.react(ctx); err != nil {
			w.logger.Error().Err(err).Msg("agent loop failed")
			w.mu.Lock()
			w.loopErr = err
			w.mu.Unlock()
			return
		}
		w.ticks.Add(1)
		w.metrics.RecordTick(w.cfg.Name)

		timer.Reset(w.LoopTimeout())
	}
}

// react processes up to maxReactions envelopes.
func (w *Wrapper) react(ctx context.Context) error {
	for i := 0; i < w.maxReactions; i++ {
		msg, err := w.inbox.Get(ctx)
		if errors.Is(err, ErrInboxEmpty) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read inbox: %w", err)
		}

		w.processed.Add(1)
		w.metrics.RecordEnvelope(w.cfg.Name)
		w.dispatch(ctx, msg)
	}

	if w.metrics != nil {
		if n, err := w.inbox.Len(ctx); err == nil {
			w.metrics.SetInboxDepth(w.cfg.Name, n)
		}
	}
	return nil
}

func (w *Wrapper) dispatch(ctx context.Context, msg *Message) {
	for _, h := range w.handlers {
		if err := h.handler.Handle(ctx, msg); err != nil {
			w.metrics.RecordHandlerError(w.cfg.Name, h.skill, h.name)
			w.logger.Warn().
				Err(err).
				Str("skill", h.skill).
				Str("handler", h.name).
				Str("envelope", msg.ID).
				Msg("handler failed")
		}
	}
}
