package agent

import (
	"context"
	"errors"
	"sync"
)

// ErrInboxEmpty is returned by Inbox.Get when no envelope is queued.
var ErrInboxEmpty = errors.New("inbox empty")

// Inbox is the inbound envelope queue of a single agent.
// Implementations must be safe for concurrent use: the driver fills and
// inspects the inbox while the agent loop drains it.
type Inbox interface {
	// Put appends an envelope to the tail of the queue.
	Put(ctx context.Context, msg *Message) error

	// Get removes and returns the envelope at the head of the queue.
	// It returns ErrInboxEmpty instead of blocking when the queue is empty.
	Get(ctx context.Context) (*Message, error)

	// Len returns the number of queued envelopes.
	Len(ctx context.Context) (int, error)
}

// MemoryInbox is an unbounded in-process FIFO.
type MemoryInbox struct {
	mu    sync.Mutex
	queue []*Message
}

// NewMemoryInbox creates an empty in-memory inbox.
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{}
}

// Put appends msg to the queue.
func (q *MemoryInbox) Put(_ context.Context, msg *Message) error {
	q.mu.Lock()
	q.queue = append(q.queue, msg)
	q.mu.Unlock()
	return nil
}

// Get pops the head of the queue.
func (q *MemoryInbox) Get(_ context.Context) (*Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return nil, ErrInboxEmpty
	}
	msg := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	return msg, nil
}

// Len returns the queue length.
func (q *MemoryInbox) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue), nil
}
