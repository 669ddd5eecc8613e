package bench

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aixgo-dev/devkit/agent"
)

// fakeRunner simulates an agent whose loop begins after startDelay and
// drains one envelope per millisecond.
type fakeRunner struct {
	name       string
	startDelay time.Duration
	startErr   error
	loopErr    error
	never      bool

	pending  atomic.Int64
	running  atomic.Bool
	runningC chan struct{}
	stopC    chan struct{}

	mu              sync.Mutex
	started         bool
	stopped         bool
	stoppedEarly    bool
	stoppedNonEmpty bool
}

func newFakeRunner(name string, pending int64, startDelay time.Duration) *fakeRunner {
	r := &fakeRunner{
		name:       name,
		startDelay: startDelay,
		runningC:   make(chan struct{}),
		stopC:      make(chan struct{}),
	}
	r.pending.Store(pending)
	return r
}

func (r *fakeRunner) Name() string { return r.name }

func (r *fakeRunner) StartLoop(context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	go func() {
		time.Sleep(r.startDelay)
		r.running.Store(true)
		close(r.runningC)

		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopC:
				return
			case <-ticker.C:
				if !r.never && r.pending.Load() > 0 {
					r.pending.Add(-1)
				}
			}
		}
	}()
	return nil
}

func (r *fakeRunner) StopLoop(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running.Load() {
		r.stoppedEarly = true
	}
	if r.pending.Load() > 0 {
		r.stoppedNonEmpty = true
	}
	r.stopped = true
	r.running.Store(false)
	close(r.stopC)
	return nil
}

func (r *fakeRunner) IsInboxEmpty() bool       { return r.pending.Load() == 0 }
func (r *fakeRunner) IsRunning() bool          { return r.running.Load() }
func (r *fakeRunner) Running() <-chan struct{} { return r.runningC }
func (r *fakeRunner) Err() error               { return r.loopErr }

func (r *fakeRunner) state() (started, stopped, early, nonEmpty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started, r.stopped, r.stoppedEarly, r.stoppedNonEmpty
}

type fakeTimer struct {
	starts atomic.Int32
	stops  atomic.Int32
}

func (f *fakeTimer) Start() { f.starts.Add(1) }
func (f *fakeTimer) Stop()  { f.stops.Add(1) }

func TestDrive_StopsOnlyRunningLoops(t *testing.T) {
	// Inboxes are already empty, so the drain is seen before any loop has
	// begun. Teardown must still wait for every loop to run.
	runners := []*fakeRunner{
		newFakeRunner("a", 0, 30*time.Millisecond),
		newFakeRunner("b", 0, 60*time.Millisecond),
	}
	timer := &fakeTimer{}

	err := NewDriver(WithPollInterval(time.Millisecond)).Drive(context.Background(), timer, asRunners(runners))
	require.NoError(t, err)

	for _, r := range runners {
		_, stopped, early, _ := r.state()
		assert.True(t, stopped, r.name)
		assert.False(t, early, "%s stopped before running", r.name)
	}
	assert.Equal(t, int32(1), timer.starts.Load())
	assert.Equal(t, int32(1), timer.stops.Load())
}

func TestDrive_StopsAfterFullDrain(t *testing.T) {
	runners := []*fakeRunner{
		newFakeRunner("a", 20, 0),
		newFakeRunner("b", 40, 5*time.Millisecond),
	}
	timer := &fakeTimer{}

	err := NewDriver(WithPollInterval(2*time.Millisecond)).Drive(context.Background(), timer, asRunners(runners))
	require.NoError(t, err)

	for _, r := range runners {
		_, stopped, _, nonEmpty := r.state()
		assert.True(t, stopped)
		assert.False(t, nonEmpty, "%s stopped before its inbox drained", r.name)
	}
	assert.Equal(t, int32(1), timer.stops.Load())
}

func TestDrive_DrainTimeout(t *testing.T) {
	r := newFakeRunner("stuck", 10, 0)
	r.never = true
	timer := &fakeTimer{}

	d := NewDriver(WithPollInterval(time.Millisecond), WithDrainTimeout(30*time.Millisecond))
	err := d.Drive(context.Background(), timer, []Runner{r})
	assert.ErrorIs(t, err, ErrDrainTimeout)

	_, stopped, early, _ := r.state()
	assert.True(t, stopped)
	assert.False(t, early)
	assert.Equal(t, int32(1), timer.starts.Load())
	assert.Zero(t, timer.stops.Load())
}

func TestDrive_ContextCanceled(t *testing.T) {
	r := newFakeRunner("stuck", 10, 0)
	r.never = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewDriver(WithPollInterval(time.Millisecond)).Drive(ctx, &fakeTimer{}, []Runner{r})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, stopped, _, _ := r.state()
	assert.True(t, stopped)
}

func TestDrive_StartError(t *testing.T) {
	first := newFakeRunner("first", 0, 0)
	second := newFakeRunner("second", 0, 0)
	second.startErr = errors.New("cannot start")

	err := NewDriver(WithPollInterval(time.Millisecond)).Drive(context.Background(), &fakeTimer{}, []Runner{first, second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot start")

	_, stopped, _, _ := first.state()
	assert.True(t, stopped, "started loops are torn down")
	started, stopped, _, _ := second.state()
	assert.False(t, started)
	assert.False(t, stopped)
}

func TestDrive_LoopError(t *testing.T) {
	r := newFakeRunner("broken", 10, 0)
	r.never = true
	r.loopErr = errors.New("inbox backend down")

	err := NewDriver(WithPollInterval(time.Millisecond)).Drive(context.Background(), &fakeTimer{}, []Runner{r})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inbox backend down")
}

func TestReactSpeedInLoop_RedisInbox(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := agent.NewRedisStoreFromClient(client, "bench:")
	t.Cleanup(func() { _ = store.Close() })

	factory := func(ctx context.Context, name string) (agent.Inbox, error) {
		return store.Inbox(ctx, name)
	}
	params := Params{AgentsNum: 2, SkillsNum: 1, InboxNum: 50, AgentLoopTimeout: time.Millisecond}

	res, err := ReactSpeedInLoop(context.Background(), NewControl(), params,
		WithInboxFactory(factory),
		WithPollInterval(5*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.Processed)
	assert.False(t, mr.Exists("bench:agent0"))
}

func asRunners(rs []*fakeRunner) []Runner {
	out := make([]Runner, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}
