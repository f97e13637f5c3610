package action_test

import (
	"errors"
	"testing"

	"github.com/cartwheel-ai/cartwheel/core/action"
	"github.com/cartwheel-ai/cartwheel/core/protocol"
)

func TestParse_Valid(t *testing.T) {
	calls := []protocol.ToolCall{
		{ID: "c1", Name: action.NameSearch, Arguments: `{"product_query":"a light beer"}`},
		{ID: "c2", Name: action.NameEditCart, Arguments: `{"operation":"add","product":"Beer 350ml","amount":2}`},
		{ID: "c3", Name: action.NameFinalize, Arguments: `{}`},
	}

	actions, err := action.Parse(calls)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3", len(actions))
	}

	if !actions[0].IsSearch() || actions[0].Search.ProductQuery != "a light beer" {
		t.Errorf("search action: %+v", actions[0])
	}
	if actions[1].EditCart == nil || actions[1].EditCart.Operation != action.OpAdd || actions[1].EditCart.Amount != 2 {
		t.Errorf("edit_cart action: %+v", actions[1])
	}
	if actions[2].Name != action.NameFinalize || actions[2].Search != nil || actions[2].EditCart != nil {
		t.Errorf("finalize action: %+v", actions[2])
	}
	if actions[1].CallID != "c2" {
		t.Errorf("CallID = %q, want c2", actions[1].CallID)
	}
}

func TestParse_OrderPreserved(t *testing.T) {
	calls := []protocol.ToolCall{
		{ID: "c1", Name: action.NameFinalize, Arguments: `{}`},
		{ID: "c2", Name: action.NameSearch, Arguments: `{"product_query":"wine"}`},
	}

	actions, err := action.Parse(calls)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if actions[0].CallID != "c1" || actions[1].CallID != "c2" {
		t.Errorf("order not preserved: %+v", actions)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		call protocol.ToolCall
		want error
	}{
		{
			name: "unknown name",
			call: protocol.ToolCall{Name: "drop_tables", Arguments: `{}`},
			want: action.ErrUnknownAction,
		},
		{
			name: "search missing query",
			call: protocol.ToolCall{Name: action.NameSearch, Arguments: `{}`},
			want: action.ErrBadArguments,
		},
		{
			name: "search invalid json",
			call: protocol.ToolCall{Name: action.NameSearch, Arguments: `not json`},
			want: action.ErrBadArguments,
		},
		{
			name: "edit_cart bad operation",
			call: protocol.ToolCall{Name: action.NameEditCart, Arguments: `{"operation":"clear","product":"Beer","amount":1}`},
			want: action.ErrBadArguments,
		},
		{
			name: "edit_cart missing product",
			call: protocol.ToolCall{Name: action.NameEditCart, Arguments: `{"operation":"add","amount":1}`},
			want: action.ErrBadArguments,
		},
		{
			name: "edit_cart zero amount",
			call: protocol.ToolCall{Name: action.NameEditCart, Arguments: `{"operation":"add","product":"Beer","amount":0}`},
			want: action.ErrBadArguments,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := action.Parse([]protocol.ToolCall{tt.call})
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsRemoval(t *testing.T) {
	calls := []protocol.ToolCall{
		{ID: "c1", Name: action.NameEditCart, Arguments: `{"operation":"remove","product":"Beer","amount":1}`},
		{ID: "c2", Name: action.NameEditCart, Arguments: `{"operation":"add","product":"Beer","amount":1}`},
	}

	actions, err := action.Parse(calls)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !actions[0].IsRemoval() {
		t.Error("remove action not classified as removal")
	}
	if actions[1].IsRemoval() {
		t.Error("add action classified as removal")
	}
}
