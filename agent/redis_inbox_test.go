package agent

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStoreFromClient(client, "test:inbox:")

	t.Cleanup(func() {
		_ = store.Close()
	})

	return mr, store
}

func TestRedisInbox_FIFO(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	q, err := store.Inbox(ctx, "agent0")
	require.NoError(t, err)
	assert.Equal(t, "test:inbox:agent0", q.Key())

	_, err = q.Get(ctx)
	assert.ErrorIs(t, err, ErrInboxEmpty)

	first := NewMessage("dummy", map[string]string{"n": "1"}).Addressed("a", "b")
	second := NewMessage("dummy", map[string]string{"n": "2"})
	require.NoError(t, q.Put(ctx, first))
	require.NoError(t, q.Put(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "a", got.Sender)
	assert.Equal(t, "b", got.To)
	assert.Equal(t, first.Payload, got.Payload)

	got, err = q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestRedisStore_InboxResetsStaleKey(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()

	_, err := mr.RPush("test:inbox:agent0", "stale")
	require.NoError(t, err)

	q, err := store.Inbox(ctx, "agent0")
	require.NoError(t, err)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_Closed(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	q, err := store.Inbox(ctx, "agent0")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.ErrorIs(t, q.Put(ctx, NewMessage("dummy", nil)), ErrStoreClosed)
	_, err = q.Get(ctx)
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.Inbox(ctx, "agent1")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Ping(ctx), ErrStoreClosed)
}

func TestRedisStore_Ping(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	mr.Close()
	assert.Error(t, store.Ping(ctx))
}

func TestNewRedisStore_RequiresAddr(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{})
	assert.Error(t, err)
}

func TestNewRedisStore_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	q, err := store.Inbox(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, defaultRedisPrefix+"x", q.Key())
}

func TestWrapper_DrainsRedisInbox(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	q, err := store.Inbox(ctx, "agent0")
	require.NoError(t, err)

	h := &countingHandler{}
	w, err := New(testConfig("agent0", h), WithInbox(q))
	require.NoError(t, err)
	require.NoError(t, w.SetLoopTimeout(time.Millisecond))

	for i := 0; i < 30; i++ {
		require.NoError(t, w.PutInbox(ctx, w.DummyEnvelope()))
	}
	require.NoError(t, w.StartLoop(ctx))

	assert.Eventually(t, w.IsInboxEmpty, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, w.StopLoop(ctx))
	assert.Equal(t, int64(30), h.count.Load())
}
