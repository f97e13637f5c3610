// Package session manages durable per-conversation state for the
// orchestrator: bounded message history, the cart, the recommended-product
// allow-list, turn flags, and the deferred action batch. Implementations of
// Store must guarantee read-modify-write atomicity per session, since cart
// mutation is a read-then-write sequence.
package session

import (
	"slices"
	"strings"

	"github.com/cartwheel-ai/cartwheel/core/protocol"
)

// Product is a catalog item surfaced to a session. UnitVolume is in liters.
type Product struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	UnitVolume float64 `json:"unit_volume"`
}

// LineItem is one cart entry. At most one LineItem exists per product name.
type LineItem struct {
	Name       string  `json:"product_name"`
	Units      int     `json:"units"`
	UnitPrice  float64 `json:"unit_price"`
	UnitVolume float64 `json:"unit_volume"`
}

// State is the full per-session record persisted as one blob. Sessions are
// created lazily: loading an unknown id yields a zero State.
type State struct {
	History         []protocol.Message   `json:"history,omitempty"`
	Cart            []LineItem           `json:"cart,omitempty"`
	Recommended     []Product            `json:"recommended_products,omitempty"`
	Pending         []protocol.ToolCall  `json:"pending_tool_calls,omitempty"`
	SendCartSummary bool                 `json:"should_send_cart_summary,omitempty"`
	FinishPurchase  bool                 `json:"should_finish_purchase,omitempty"`
}

// AppendHistory appends messages and evicts the oldest entries beyond the
// window, preserving the most recent ones in original relative order.
// A window of 0 or less keeps the history unbounded.
func (s *State) AppendHistory(window int, msgs ...protocol.Message) {
	s.History = append(s.History, msgs...)
	if window > 0 && len(s.History) > window {
		s.History = slices.Delete(s.History, 0, len(s.History)-window)
	}
}

// CartVolume returns the total cart volume in liters.
func (s *State) CartVolume() float64 {
	var total float64
	for _, item := range s.Cart {
		total += item.UnitVolume * float64(item.Units)
	}
	return total
}

// FindRecommended looks up a product in the session's recommended set by
// name, case-insensitively. The recommended set is the allow-list gating
// cart additions.
func (s *State) FindRecommended(name string) (Product, bool) {
	for _, p := range s.Recommended {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Product{}, false
}

// AddRecommended appends products to the recommended set, skipping names
// already present.
func (s *State) AddRecommended(products ...Product) {
	for _, p := range products {
		if _, ok := s.FindRecommended(p.Name); !ok {
			s.Recommended = append(s.Recommended, p)
		}
	}
}

// Clone returns a deep copy. Stores hand out copies so callers can never
// mutate shared state outside an Update.
func (s *State) Clone() *State {
	if s == nil {
		return &State{}
	}
	cp := &State{
		History:         make([]protocol.Message, len(s.History)),
		Cart:            slices.Clone(s.Cart),
		Recommended:     slices.Clone(s.Recommended),
		Pending:         slices.Clone(s.Pending),
		SendCartSummary: s.SendCartSummary,
		FinishPurchase:  s.FinishPurchase,
	}
	for i, msg := range s.History {
		cp.History[i] = msg
		cp.History[i].ToolCalls = slices.Clone(msg.ToolCalls)
	}
	return cp
}
