package chatbot

import "github.com/cartwheel-ai/cartwheel/observability"

// Chatbot event types emitted during turn processing.
const (
	EventTurnStart        observability.EventType = "chatbot.turn.start"
	EventTurnBlocked      observability.EventType = "chatbot.turn.blocked"
	EventTurnDeferred     observability.EventType = "chatbot.turn.deferred"
	EventTurnResponse     observability.EventType = "chatbot.turn.response"
	EventDispatchCall     observability.EventType = "chatbot.dispatch.call"
	EventDispatchComplete observability.EventType = "chatbot.dispatch.complete"
	EventDispatchError    observability.EventType = "chatbot.dispatch.error"
)
