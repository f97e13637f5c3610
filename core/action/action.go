// Package action converts raw completion tool calls into validated, typed
// proposals. The completion service proposes actions as loosely typed JSON;
// everything downstream of Parse works with the closed set of variants
// defined here.
package action

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cartwheel-ai/cartwheel/core/protocol"
)

// Tool names as they appear in the completion service's tool schema.
const (
	NameSearch   = "search_product_recommendation"
	NameEditCart = "edit_cart"
	NameFinalize = "finalize_order"
)

// Op is a cart edit operation.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Parse failures indicate the completion service breached the tool
// contract. They are fatal for the turn, never coerced.
var (
	ErrUnknownAction = errors.New("unknown action name")
	ErrBadArguments  = errors.New("malformed action arguments")
)

// SearchArgs is the payload of a product search proposal.
type SearchArgs struct {
	ProductQuery string `json:"product_query"`
}

// EditCartArgs is the payload of a cart mutation proposal.
type EditCartArgs struct {
	Operation Op     `json:"operation"`
	Product   string `json:"product"`
	Amount    int    `json:"amount"`
}

// Action is a tagged variant over the three proposal kinds. Exactly one of
// Search and EditCart is non-nil for their respective names; finalize
// carries no payload. CallID is the correlation id used to match results
// back to the originating proposal.
type Action struct {
	CallID   string
	Name     string
	Search   *SearchArgs
	EditCart *EditCartArgs
}

// IsSearch reports whether the action is a read-only catalog search.
func (a Action) IsSearch() bool { return a.Name == NameSearch }

// IsRemoval reports whether the action is a cart edit with operation
// remove. Removals are dispatched before all other sequential actions.
func (a Action) IsRemoval() bool {
	return a.Name == NameEditCart && a.EditCart != nil && a.EditCart.Operation == OpRemove
}

// Parse validates a batch of raw tool calls into typed actions, preserving
// proposal order. Any unknown name or malformed payload fails the whole
// batch with an error wrapping ErrUnknownAction or ErrBadArguments.
func Parse(calls []protocol.ToolCall) ([]Action, error) {
	actions := make([]Action, 0, len(calls))
	for _, call := range calls {
		a, err := parseOne(call)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func parseOne(call protocol.ToolCall) (Action, error) {
	a := Action{CallID: call.ID, Name: call.Name}

	switch call.Name {
	case NameSearch:
		var args SearchArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return Action{}, fmt.Errorf("%w: %s: %v", ErrBadArguments, call.Name, err)
		}
		if args.ProductQuery == "" {
			return Action{}, fmt.Errorf("%w: %s: product_query is required", ErrBadArguments, call.Name)
		}
		a.Search = &args

	case NameEditCart:
		var args EditCartArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return Action{}, fmt.Errorf("%w: %s: %v", ErrBadArguments, call.Name, err)
		}
		if args.Operation != OpAdd && args.Operation != OpRemove {
			return Action{}, fmt.Errorf("%w: %s: operation must be add or remove, got %q", ErrBadArguments, call.Name, args.Operation)
		}
		if args.Product == "" {
			return Action{}, fmt.Errorf("%w: %s: product is required", ErrBadArguments, call.Name)
		}
		if args.Amount < 1 {
			return Action{}, fmt.Errorf("%w: %s: amount must be at least 1, got %d", ErrBadArguments, call.Name, args.Amount)
		}
		a.EditCart = &args

	case NameFinalize:
		// No payload.

	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, call.Name)
	}

	return a, nil
}
