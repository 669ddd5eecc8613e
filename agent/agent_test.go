package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aixgo-dev/devkit/pkg/observability"
)

// countingHandler records every envelope it handles.
type countingHandler struct {
	count atomic.Int64
	mu    sync.Mutex
	seen  []string
	err   error
}

func (h *countingHandler) Handle(_ context.Context, msg *Message) error {
	h.count.Add(1)
	h.mu.Lock()
	h.seen = append(h.seen, msg.ID)
	h.mu.Unlock()
	return h.err
}

func testConfig(name string, h Handler) Config {
	return Config{
		Name: name,
		Skills: []Skill{{
			Config:   SkillConfig{Name: "sc0"},
			Handlers: map[string]Handler{"dummy_handler": h},
		}},
	}
}

// Test Message creation and manipulation
func TestMessage(t *testing.T) {
	t.Run("NewMessage creates valid message", func(t *testing.T) {
		msg := NewMessage("test_type", map[string]string{"key": "value"})

		if msg.ID == "" {
			t.Error("Expected non-empty ID")
		}
		if msg.Type != "test_type" {
			t.Errorf("Expected type 'test_type', got '%s'", msg.Type)
		}
		if msg.Timestamp == "" {
			t.Error("Expected non-empty timestamp")
		}

		var result map[string]string
		if err := msg.UnmarshalPayload(&result); err != nil {
			t.Fatalf("Failed to unmarshal payload: %v", err)
		}
		if result["key"] != "value" {
			t.Errorf("Expected key=value, got key=%s", result["key"])
		}
	})

	t.Run("UnmarshalPayload returns error for empty payload", func(t *testing.T) {
		msg := &Message{Type: "test"}
		var result interface{}
		if err := msg.UnmarshalPayload(&result); err == nil {
			t.Error("Expected error for empty payload")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	h := &countingHandler{}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: testConfig("a", h)},
		{name: "no skills", cfg: Config{Name: "a"}},
		{name: "empty name", cfg: testConfig("", h), wantErr: true},
		{
			name: "duplicate skill",
			cfg: Config{Name: "a", Skills: []Skill{
				{Config: SkillConfig{Name: "s"}, Handlers: map[string]Handler{"h": h}},
				{Config: SkillConfig{Name: "s"}, Handlers: map[string]Handler{"h": h}},
			}},
			wantErr: true,
		},
		{
			name:    "skill without handlers",
			cfg:     Config{Name: "a", Skills: []Skill{{Config: SkillConfig{Name: "s"}}}},
			wantErr: true,
		},
		{
			name:    "nil handler",
			cfg:     Config{Name: "a", Skills: []Skill{{Config: SkillConfig{Name: "s"}, Handlers: map[string]Handler{"h": nil}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigDispatchOrder(t *testing.T) {
	var calls []string
	record := func(name string) Handler {
		return HandlerFunc(func(context.Context, *Message) error {
			calls = append(calls, name)
			return nil
		})
	}

	cfg := Config{Name: "a", Skills: []Skill{
		{Config: SkillConfig{Name: "second"}, Handlers: map[string]Handler{"z": record("second/z"), "a": record("second/a")}},
		{Config: SkillConfig{Name: "first"}, Handlers: map[string]Handler{"m": record("first/m")}},
	}}

	for _, h := range cfg.dispatchOrder() {
		require.NoError(t, h.handler.Handle(context.Background(), nil))
	}
	assert.Equal(t, []string{"second/a", "second/z", "first/m"}, calls)
}

func TestMemoryInbox_FIFO(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryInbox()

	_, err := q.Get(ctx)
	assert.ErrorIs(t, err, ErrInboxEmpty)

	first := NewMessage("a", nil)
	second := NewMessage("b", nil)
	require.NoError(t, q.Put(ctx, first))
	require.NoError(t, q.Put(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	n, _ = q.Len(ctx)
	assert.Zero(t, n)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestWrapper_SetLoopTimeout(t *testing.T) {
	w, err := New(testConfig("a", &countingHandler{}))
	require.NoError(t, err)

	assert.Equal(t, DefaultLoopTimeout, w.LoopTimeout())
	require.NoError(t, w.SetLoopTimeout(10*time.Millisecond))
	assert.Equal(t, 10*time.Millisecond, w.LoopTimeout())

	assert.ErrorIs(t, w.SetLoopTimeout(0), ErrInvalidLoopTimeout)
	assert.Equal(t, 10*time.Millisecond, w.LoopTimeout())
}

func TestWrapper_DrainsInbox(t *testing.T) {
	ctx := context.Background()
	h := &countingHandler{}
	metrics := observability.NewMetrics()

	w, err := New(testConfig("agent0", h), WithMaxReactions(7), WithMetrics(metrics))
	require.NoError(t, err)
	require.NoError(t, w.SetLoopTimeout(time.Millisecond))

	var ids []string
	for i := 0; i < 50; i++ {
		msg := w.DummyEnvelope()
		ids = append(ids, msg.ID)
		require.NoError(t, w.PutInbox(ctx, msg))
	}
	assert.False(t, w.IsInboxEmpty())
	assert.False(t, w.IsRunning())

	require.NoError(t, w.StartLoop(ctx))

	select {
	case <-w.Running():
	case <-time.After(time.Second):
		t.Fatal("loop did not start")
	}

	assert.Eventually(t, w.IsInboxEmpty, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, w.StopLoop(ctx))

	assert.False(t, w.IsRunning())
	assert.Equal(t, uint64(50), w.Processed())
	assert.GreaterOrEqual(t, w.Ticks(), uint64(50/7))
	assert.Equal(t, ids, h.seen)
}

func TestWrapper_DummyEnvelopeAddressedToSelf(t *testing.T) {
	w, err := New(testConfig("agent7", &countingHandler{}))
	require.NoError(t, err)

	msg := w.DummyEnvelope()
	assert.Equal(t, "agent7", msg.Sender)
	assert.Equal(t, "agent7", msg.To)
	assert.Equal(t, "dummy", msg.Type)
}

func TestWrapper_HandlerErrorsDoNotStopLoop(t *testing.T) {
	ctx := context.Background()
	h := &countingHandler{err: errors.New("boom")}

	w, err := New(testConfig("a", h))
	require.NoError(t, err)
	require.NoError(t, w.SetLoopTimeout(time.Millisecond))

	for i := 0; i < 5; i++ {
		require.NoError(t, w.PutInbox(ctx, w.DummyEnvelope()))
	}
	require.NoError(t, w.StartLoop(ctx))

	assert.Eventually(t, w.IsInboxEmpty, time.Second, time.Millisecond)
	assert.NoError(t, w.StopLoop(ctx))
	assert.Equal(t, int64(5), h.count.Load())
}

func TestWrapper_StartTwice(t *testing.T) {
	ctx := context.Background()
	w, err := New(testConfig("a", &countingHandler{}))
	require.NoError(t, err)

	require.NoError(t, w.StartLoop(ctx))
	assert.ErrorIs(t, w.StartLoop(ctx), ErrAlreadyStarted)
	require.NoError(t, w.StopLoop(ctx))
}

func TestWrapper_StopBeforeStart(t *testing.T) {
	w, err := New(testConfig("a", &countingHandler{}))
	require.NoError(t, err)

	assert.ErrorIs(t, w.StopLoop(context.Background()), ErrNotStarted)
}

func TestWrapper_StopImmediatelyAfterStart(t *testing.T) {
	ctx := context.Background()
	w, err := New(testConfig("a", &countingHandler{}))
	require.NoError(t, err)

	// Stop right away: the stop must wait for the loop to begin rather than
	// being dropped, and must not hang.
	require.NoError(t, w.StartLoop(ctx))
	done := make(chan error, 1)
	go func() { done <- w.StopLoop(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("StopLoop hung")
	}

	select {
	case <-w.Done():
	default:
		t.Fatal("loop still running after StopLoop")
	}
}

// failingInbox always fails to dequeue.
type failingInbox struct {
	*MemoryInbox
}

func (f failingInbox) Get(context.Context) (*Message, error) {
	return nil, errors.New("backend down")
}

func TestWrapper_InboxErrorTerminatesLoop(t *testing.T) {
	ctx := context.Background()
	w, err := New(testConfig("a", &countingHandler{}), WithInbox(failingInbox{NewMemoryInbox()}))
	require.NoError(t, err)

	require.NoError(t, w.StartLoop(ctx))

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not terminate")
	}
	require.Error(t, w.Err())
	assert.Contains(t, w.StopLoop(ctx).Error(), "backend down")
}
