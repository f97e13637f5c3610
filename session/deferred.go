package session

import (
	"context"

	"github.com/cartwheel-ai/cartwheel/core/protocol"
)

// DeferredCache holds a proposed-but-unexecutable action batch until the
// missing context (location, age confirmation) arrives. One slot per
// session: a new Defer replaces any prior batch, never merges.
//
// Holding the batch verbatim avoids recomputing an expensive completion
// round once the user supplies the missing information.
type DeferredCache struct {
	store Store
}

// NewDeferredCache creates a DeferredCache over the given store.
func NewDeferredCache(store Store) *DeferredCache {
	return &DeferredCache{store: store}
}

// Defer stores the batch for the session, overwriting any existing slot.
func (c *DeferredCache) Defer(ctx context.Context, id string, calls []protocol.ToolCall) error {
	return c.store.Update(ctx, id, func(s *State) error {
		s.Pending = calls
		return nil
	})
}

// Take removes and returns the cached batch. An empty cache yields a nil
// slice and no error.
func (c *DeferredCache) Take(ctx context.Context, id string) ([]protocol.ToolCall, error) {
	var calls []protocol.ToolCall
	err := c.store.Update(ctx, id, func(s *State) error {
		calls = s.Pending
		s.Pending = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return calls, nil
}
