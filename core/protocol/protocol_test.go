package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/cartwheel-ai/cartwheel/core/protocol"
)

func TestToolCall_UnmarshalNested(t *testing.T) {
	data := []byte(`{
		"id": "call_1",
		"type": "function",
		"function": {"name": "edit_cart", "arguments": "{\"operation\":\"add\"}"}
	}`)

	var tc protocol.ToolCall
	if err := json.Unmarshal(data, &tc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if tc.ID != "call_1" {
		t.Errorf("ID = %q, want call_1", tc.ID)
	}
	if tc.Name != "edit_cart" {
		t.Errorf("Name = %q, want edit_cart", tc.Name)
	}
	if tc.Arguments != `{"operation":"add"}` {
		t.Errorf("Arguments = %q", tc.Arguments)
	}
}

func TestToolCall_UnmarshalFlat(t *testing.T) {
	data := []byte(`{"id": "call_2", "name": "search_product_recommendation", "arguments": "{}"}`)

	var tc protocol.ToolCall
	if err := json.Unmarshal(data, &tc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if tc.Name != "search_product_recommendation" {
		t.Errorf("Name = %q, want search_product_recommendation", tc.Name)
	}
}

func TestToolCall_RoundTrip(t *testing.T) {
	orig := protocol.ToolCall{ID: "call_3", Name: "finalize_order", Arguments: "{}"}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded protocol.ToolCall
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded != orig {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, orig)
	}
}

func TestMessage_ToolResultLinkage(t *testing.T) {
	msg := protocol.Message{
		Role:       protocol.RoleTool,
		Content:    "Product successfully added to the cart!",
		ToolCallID: "call_1",
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded protocol.Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.ToolCallID != "call_1" {
		t.Errorf("ToolCallID = %q, want call_1", decoded.ToolCallID)
	}
	if decoded.Role != protocol.RoleTool {
		t.Errorf("Role = %q, want tool", decoded.Role)
	}
}

func TestNewMessage(t *testing.T) {
	msg := protocol.NewMessage(protocol.RoleUser, "hello")
	if msg.Role != protocol.RoleUser || msg.Content != "hello" {
		t.Errorf("got %+v", msg)
	}
}
