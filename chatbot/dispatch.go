package chatbot

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cartwheel-ai/cartwheel/core/action"
	"github.com/cartwheel-ai/cartwheel/core/protocol"
	"github.com/cartwheel-ai/cartwheel/observability"
	"github.com/cartwheel-ai/cartwheel/session"
)

// DispatchError records a single action that failed during dispatch.
// Failures are isolated per action; siblings still run to completion.
type DispatchError struct {
	CallID string
	Name   string
	Err    error
}

func (e DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s (%s): %v", e.Name, e.CallID, e.Err)
}

// dispatch validates and executes a proposal batch. Searches run
// concurrently; cart edits and finalize run one at a time with removals
// first, so freed volume is available to later additions. Results are
// folded back into tool messages in proposal order regardless of
// execution order. A malformed proposal fails the whole batch; a failed
// execution only marks its own slot.
func (c *Chatbot) dispatch(ctx context.Context, sessionID, location string, calls []protocol.ToolCall) ([]protocol.Message, []DispatchError, error) {
	actions, err := action.Parse(calls)
	if err != nil {
		return nil, nil, err
	}

	results := make([]string, len(actions))
	failures := make([]error, len(actions))

	var wg sync.WaitGroup
	for i, a := range actions {
		if !a.IsSearch() {
			continue
		}
		wg.Add(1)
		go func(i int, a action.Action) {
			defer wg.Done()
			c.emit(ctx, EventDispatchCall, observability.LevelVerbose, map[string]any{
				"session": sessionID,
				"name":    a.Name,
			})
			out, err := c.catalog.Recommend(ctx, sessionID, a.Search.ProductQuery, location)
			if err != nil {
				failures[i] = err
				return
			}
			results[i] = out
		}(i, a)
	}
	wg.Wait()

	sequential := make([]int, 0, len(actions))
	for i, a := range actions {
		if !a.IsSearch() {
			sequential = append(sequential, i)
		}
	}
	sort.SliceStable(sequential, func(x, y int) bool {
		return actions[sequential[x]].IsRemoval() && !actions[sequential[y]].IsRemoval()
	})

	for _, i := range sequential {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		a := actions[i]
		c.emit(ctx, EventDispatchCall, observability.LevelVerbose, map[string]any{
			"session": sessionID,
			"name":    a.Name,
		})
		out, err := c.runSequential(ctx, sessionID, location, a)
		if err != nil {
			failures[i] = err
			continue
		}
		results[i] = out
	}

	messages := make([]protocol.Message, 0, len(actions))
	var dispatchErrs []DispatchError
	for i, a := range actions {
		content := results[i]
		if failures[i] != nil {
			content = fmt.Sprintf("error: %s", failures[i])
			dispatchErrs = append(dispatchErrs, DispatchError{CallID: a.CallID, Name: a.Name, Err: failures[i]})
			c.emit(ctx, EventDispatchError, observability.LevelError, map[string]any{
				"session": sessionID,
				"name":    a.Name,
				"error":   failures[i].Error(),
			})
		} else {
			c.emit(ctx, EventDispatchComplete, observability.LevelVerbose, map[string]any{
				"session": sessionID,
				"name":    a.Name,
			})
		}
		messages = append(messages, protocol.Message{
			Role:       protocol.RoleTool,
			Content:    content,
			ToolCallID: a.CallID,
		})
	}

	return messages, dispatchErrs, nil
}

// runSequential executes one cart edit or finalize action.
func (c *Chatbot) runSequential(ctx context.Context, sessionID, location string, a action.Action) (string, error) {
	switch a.Name {
	case action.NameEditCart:
		args := a.EditCart
		if args.Operation == action.OpAdd {
			return c.runAdd(ctx, sessionID, location, args)
		}

		out, err := c.cart.Remove(ctx, sessionID, args.Product, args.Amount)
		if err != nil {
			return "", err
		}
		if err := c.setFlag(ctx, sessionID, func(s *session.State) { s.SendCartSummary = true }); err != nil {
			return "", err
		}
		return out.Message, nil

	case action.NameFinalize:
		// Finalize is answered locally; a completion round must never be
		// needed to confirm the cart was saved.
		if err := c.setFlag(ctx, sessionID, func(s *session.State) { s.FinishPurchase = true }); err != nil {
			return "", err
		}
		return FinalizeConfirmation, nil
	}

	return "", fmt.Errorf("%w: %s", action.ErrUnknownAction, a.Name)
}

// runAdd applies an addition, gated on the product having been surfaced
// to this session. A blocked addition never touches the cart; it answers
// with the warning plus a fresh search for the requested product.
func (c *Chatbot) runAdd(ctx context.Context, sessionID, location string, args *action.EditCartArgs) (string, error) {
	state, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if _, ok := state.FindRecommended(args.Product); !ok {
		rec, err := c.catalog.Recommend(ctx, sessionID, args.Product, location)
		if err != nil {
			return "", err
		}
		return EarlyOperationWarning + rec, nil
	}

	out, err := c.cart.Add(ctx, sessionID, args.Product, args.Amount)
	if err != nil {
		return "", err
	}
	if out.Units > 0 {
		if err := c.setFlag(ctx, sessionID, func(s *session.State) { s.SendCartSummary = true }); err != nil {
			return "", err
		}
	}
	return out.Message, nil
}

func (c *Chatbot) setFlag(ctx context.Context, sessionID string, fn func(*session.State)) error {
	return c.store.Update(ctx, sessionID, func(s *session.State) error {
		fn(s)
		return nil
	})
}
