package bench

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aixgo-dev/devkit/agent"
)

// dummyPayload is the body of the envelopes built by Wrapper.DummyEnvelope.
type dummyPayload struct {
	Content string `json:"content"`
}

// DummyHandler decodes every envelope and counts it.
type DummyHandler struct {
	handled atomic.Uint64
}

// Handle implements agent.Handler. Envelopes are counted even when their
// payload does not decode.
func (h *DummyHandler) Handle(_ context.Context, msg *agent.Message) error {
	h.handled.Add(1)

	var p dummyPayload
	if err := msg.UnmarshalPayload(&p); err != nil {
		return fmt.Errorf("decode %s envelope %s: %w", msg.Type, msg.ID, err)
	}
	return nil
}

// Handled returns the number of envelopes seen.
func (h *DummyHandler) Handled() uint64 { return h.handled.Load() }
