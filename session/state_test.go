package session_test

import (
	"testing"

	"github.com/cartwheel-ai/cartwheel/core/protocol"
	"github.com/cartwheel-ai/cartwheel/session"
)

func TestAppendHistory_Bound(t *testing.T) {
	var s session.State
	for i := 0; i < 8; i++ {
		s.AppendHistory(6, protocol.NewMessage(protocol.RoleUser, string(rune('a'+i))))
	}

	if len(s.History) != 6 {
		t.Fatalf("history length = %d, want 6", len(s.History))
	}
	// Oldest two evicted, relative order preserved.
	if s.History[0].Content != "c" || s.History[5].Content != "h" {
		t.Errorf("window contents wrong: first %q last %q", s.History[0].Content, s.History[5].Content)
	}
}

func TestAppendHistory_MultipleAtOnce(t *testing.T) {
	var s session.State
	s.AppendHistory(3,
		protocol.NewMessage(protocol.RoleUser, "1"),
		protocol.NewMessage(protocol.RoleAssistant, "2"),
		protocol.NewMessage(protocol.RoleUser, "3"),
		protocol.NewMessage(protocol.RoleAssistant, "4"),
	)

	if len(s.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(s.History))
	}
	if s.History[0].Content != "2" {
		t.Errorf("first = %q, want 2", s.History[0].Content)
	}
}

func TestAppendHistory_Unbounded(t *testing.T) {
	var s session.State
	for i := 0; i < 20; i++ {
		s.AppendHistory(0, protocol.NewMessage(protocol.RoleUser, "m"))
	}
	if len(s.History) != 20 {
		t.Errorf("history length = %d, want 20", len(s.History))
	}
}

func TestCartVolume(t *testing.T) {
	s := session.State{Cart: []session.LineItem{
		{Name: "Beer 350ml", Units: 10, UnitVolume: 0.35},
		{Name: "Juice 1L", Units: 2, UnitVolume: 1.0},
	}}

	if got := s.CartVolume(); got != 5.5 {
		t.Errorf("CartVolume = %v, want 5.5", got)
	}
}

func TestFindRecommended_CaseInsensitive(t *testing.T) {
	var s session.State
	s.AddRecommended(session.Product{Name: "Guinness Beer 350ml", UnitPrice: 8, UnitVolume: 0.35})

	if _, ok := s.FindRecommended("guinness beer 350ml"); !ok {
		t.Error("case-insensitive lookup failed")
	}
	if _, ok := s.FindRecommended("Vodka"); ok {
		t.Error("found product that was never recommended")
	}
}

func TestAddRecommended_Dedupes(t *testing.T) {
	var s session.State
	p := session.Product{Name: "Beer 350ml"}
	s.AddRecommended(p)
	s.AddRecommended(p, session.Product{Name: "beer 350ml"})

	if len(s.Recommended) != 1 {
		t.Errorf("recommended set has %d entries, want 1", len(s.Recommended))
	}
}

func TestClone_Independent(t *testing.T) {
	orig := &session.State{
		History: []protocol.Message{{
			Role:      protocol.RoleAssistant,
			ToolCalls: []protocol.ToolCall{{ID: "c1", Name: "edit_cart"}},
		}},
		Cart: []session.LineItem{{Name: "Beer", Units: 1}},
	}

	cp := orig.Clone()
	cp.Cart[0].Units = 99
	cp.History[0].ToolCalls[0].ID = "mutated"

	if orig.Cart[0].Units != 1 {
		t.Error("clone shares cart backing array")
	}
	if orig.History[0].ToolCalls[0].ID != "c1" {
		t.Error("clone shares tool call backing array")
	}
}

func TestClone_Nil(t *testing.T) {
	var s *session.State
	if cp := s.Clone(); cp == nil || len(cp.History) != 0 {
		t.Errorf("nil Clone = %+v", cp)
	}
}
