package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aixgo-dev/devkit/agent"
	tracing "github.com/aixgo-dev/devkit/internal/observability"
	"github.com/aixgo-dev/devkit/pkg/observability"
)

const (
	// DefaultPollInterval is how often the driver checks for a full drain.
	DefaultPollInterval = 100 * time.Millisecond

	// CaseName labels the inbox-flood case in reports and metrics.
	CaseName = "react_speed_in_loop"
)

// ErrDrainTimeout is returned when the inboxes do not drain within the
// configured drain timeout.
var ErrDrainTimeout = errors.New("inboxes did not drain in time")

// Runner is the part of an agent the driver needs during the timed phase.
// *agent.Wrapper satisfies it.
type Runner interface {
	Name() string
	StartLoop(ctx context.Context) error
	StopLoop(ctx context.Context) error
	IsInboxEmpty() bool
	IsRunning() bool
	Running() <-chan struct{}
	Err() error
}

// InboxFactory creates the inbox for the named agent.
type InboxFactory func(ctx context.Context, agentName string) (agent.Inbox, error)

// Result summarizes one run of the case.
type Result struct {
	Agents    int    `json:"agents"`
	Envelopes int    `json:"envelopes"`
	Processed uint64 `json:"processed"`
	Ticks     uint64 `json:"ticks"`
}

// Option configures a Driver.
type Option func(*Driver)

// WithPollInterval sets the drain polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(dr *Driver) {
		if d > 0 {
			dr.pollInterval = d
		}
	}
}

// WithDrainTimeout bounds the wait for a full drain. Zero waits forever.
func WithDrainTimeout(d time.Duration) Option {
	return func(dr *Driver) {
		dr.drainTimeout = d
	}
}

// WithInboxFactory sets the inbox backend used for every agent.
func WithInboxFactory(f InboxFactory) Option {
	return func(dr *Driver) {
		dr.inboxFactory = f
	}
}

// WithMaxReactions sets the per-iteration envelope bound of every agent.
func WithMaxReactions(n int) Option {
	return func(dr *Driver) {
		dr.maxReactions = n
	}
}

// WithLogger sets the driver logger. Agents log through it as well.
func WithLogger(logger zerolog.Logger) Option {
	return func(dr *Driver) {
		dr.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(dr *Driver) {
		dr.metrics = m
	}
}

// Driver runs the inbox-flood case: build N agents with M envelopes each,
// start every loop, wait until every inbox is empty, then stop them all.
type Driver struct {
	pollInterval time.Duration
	drainTimeout time.Duration
	inboxFactory InboxFactory
	maxReactions int
	logger       zerolog.Logger
	metrics      *observability.Metrics
}

// NewDriver creates a driver with the given options.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		pollInterval: DefaultPollInterval,
		maxReactions: agent.DefaultMaxReactions,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ReactSpeedInLoop runs the case with a default driver configured by opts.
func ReactSpeedInLoop(ctx context.Context, timer Timer, params Params, opts ...Option) (*Result, error) {
	return NewDriver(opts...).ReactSpeedInLoop(ctx, timer, params)
}

// ReactSpeedInLoop builds the agents and fills their inboxes outside the
// measurement, then signals timer.Start, drives the loops until every inbox
// is empty and signals timer.Stop. Every started loop is stopped before
// returning, on success and on failure.
func (d *Driver) ReactSpeedInLoop(ctx context.Context, timer Timer, params Params) (res *Result, err error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	ctx, span := tracing.StartSpan(ctx, "bench."+CaseName, map[string]any{
		"agents_num":         params.AgentsNum,
		"skills_num":         params.SkillsNum,
		"inbox_num":          params.InboxNum,
		"agent_loop_timeout": params.AgentLoopTimeout,
	})
	defer func() { tracing.EndSpan(span, err) }()

	wrappers, err := d.Build(ctx, params)
	if err != nil {
		return nil, err
	}

	runners := make([]Runner, len(wrappers))
	for i, w := range wrappers {
		runners[i] = w
	}

	started := time.Now()
	if err := d.Drive(ctx, timer, runners); err != nil {
		return nil, err
	}
	d.metrics.ObserveBenchmark(CaseName, time.Since(started))

	res = &Result{Agents: len(wrappers), Envelopes: params.AgentsNum * params.InboxNum}
	for _, w := range wrappers {
		res.Processed += w.Processed()
		res.Ticks += w.Ticks()
	}
	d.logger.Info().
		Int("agents", res.Agents).
		Uint64("processed", res.Processed).
		Uint64("ticks", res.Ticks).
		Msg("benchmark case finished")
	return res, nil
}

// Build is the untimed construction phase: it creates params.AgentsNum
// agents named agent0..agentN-1 and puts params.InboxNum dummy envelopes
// into each inbox. No loop is started.
func (d *Driver) Build(ctx context.Context, params Params) ([]*agent.Wrapper, error) {
	wrappers := make([]*agent.Wrapper, 0, params.AgentsNum)
	for i := 0; i < params.AgentsNum; i++ {
		name := fmt.Sprintf("agent%d", i)

		opts := []agent.Option{
			agent.WithLogger(d.logger),
			agent.WithMetrics(d.metrics),
			agent.WithMaxReactions(d.maxReactions),
		}
		if d.inboxFactory != nil {
			inbox, err := d.inboxFactory(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("create inbox for %s: %w", name, err)
			}
			opts = append(opts, agent.WithInbox(inbox))
		}

		w, err := agent.New(MakeAgencyConfig(name, params.SkillsNum), opts...)
		if err != nil {
			return nil, err
		}
		if err := w.SetLoopTimeout(params.AgentLoopTimeout); err != nil {
			return nil, err
		}
		for j := 0; j < params.InboxNum; j++ {
			if err := w.PutInbox(ctx, w.DummyEnvelope()); err != nil {
				return nil, err
			}
		}
		wrappers = append(wrappers, w)
	}

	d.logger.Debug().
		Int("agents", params.AgentsNum).
		Int("inbox_num", params.InboxNum).
		Msg("agents built")
	return wrappers, nil
}

// Drive is the timed phase. It signals timer.Start, starts every loop and
// checks all inboxes every poll interval until they are all empty, then
// signals timer.Stop. Teardown waits for each loop to have begun before
// stopping it, so no stop request is issued to a loop that is not running
// yet.
func (d *Driver) Drive(ctx context.Context, timer Timer, runners []Runner) error {
	timer.Start()

	started := make([]Runner, 0, len(runners))
	var runErr error
	for _, r := range runners {
		if err := r.StartLoop(ctx); err != nil {
			runErr = fmt.Errorf("start %s: %w", r.Name(), err)
			break
		}
		started = append(started, r)
	}

	if runErr == nil {
		runErr = d.waitDrained(ctx, started)
		if runErr == nil {
			timer.Stop()
		}
	}

	// Teardown must run to completion even when ctx is already canceled.
	stopErr := d.stopAll(context.WithoutCancel(ctx), started)
	return errors.Join(runErr, stopErr)
}

func (d *Driver) waitDrained(ctx context.Context, runners []Runner) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if d.drainTimeout > 0 {
		t := time.NewTimer(d.drainTimeout)
		defer t.Stop()
		deadline = t.C
	}

	for {
		if err := firstLoopErr(runners); err != nil {
			return err
		}
		if allEmpty(runners) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w after %s", ErrDrainTimeout, d.drainTimeout)
		case <-ticker.C:
		}
	}
}

func (d *Driver) stopAll(ctx context.Context, runners []Runner) error {
	for _, r := range runners {
		<-r.Running()
	}

	var errs []error
	for _, r := range runners {
		if err := r.StopLoop(ctx); err != nil {
			d.logger.Error().Err(err).Str("agent", r.Name()).Msg("stop loop failed")
			errs = append(errs, fmt.Errorf("stop %s: %w", r.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func allEmpty(runners []Runner) bool {
	for _, r := range runners {
		if !r.IsInboxEmpty() {
			return false
		}
	}
	return true
}

func firstLoopErr(runners []Runner) error {
	for _, r := range runners {
		if err := r.Err(); err != nil {
			return fmt.Errorf("agent %s: %w", r.Name(), err)
		}
	}
	return nil
}
