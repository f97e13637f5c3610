// Package chatbot implements the tool-call orchestration loop that turns a
// free-text user message into validated, ordered backend operations and a
// final natural-language answer.
//
// The chatbot initializes from configuration via New, creating all
// subsystems internally. Functional options allow test overrides of any
// subsystem.
//
//	bot, err := chatbot.New(&cfg)
//	result, err := bot.HandleTurn(ctx, chatbot.TurnRequest{...})
package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cartwheel-ai/cartwheel/cart"
	"github.com/cartwheel-ai/cartwheel/catalog"
	"github.com/cartwheel-ai/cartwheel/completion"
	"github.com/cartwheel-ai/cartwheel/core/protocol"
	"github.com/cartwheel-ai/cartwheel/observability"
	"github.com/cartwheel-ai/cartwheel/safety"
	"github.com/cartwheel-ai/cartwheel/session"
)

// Fixed conversational strings. These are sent verbatim so the host and
// its tests can match on them; the completion service never gets a chance
// to paraphrase them.
const (
	FinalizeConfirmation = "The cart has been saved, and we will proceed to the selection of the desired payment method. Just inform this to the user."

	HoldingLocation    = "Your request has been noted, and I will proceed with it as soon as you provide your postal code."
	HoldingLocationAge = "Your request has been noted, and I will proceed with it as soon as you confirm that you are of legal age and provide your postal code."

	GuardrailsWarning = "Your message violates the system's usage rules. Please avoid sending inappropriate messages."

	EarlyOperationWarning = "Operation not performed. It is necessary to first confirm the desired product from those available in the catalog. Therefore, before editing the cart, confirm with the user if the desired product is among the results in the catalog below:\n"
)

// FinishButton is attached to the cart-summary response so the host can
// render a one-tap checkout action.
var FinishButton = Button{Title: "Finish purchase", Payload: "/finish_purchase"}

// Button is an action the host renders alongside a response.
type Button struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Response is one chat message sent back to the user.
type Response struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// TurnRequest carries one inbound user message plus the conversational
// context the host has collected so far. Location and AgeConfirmed are nil
// until the corresponding forms complete.
type TurnRequest struct {
	SessionID    string
	Message      string
	Location     *string
	AgeConfirmed *bool
	Debug        bool
}

// TurnResult is the outcome of one processed turn. Proposed is populated
// only for debug requests. DispatchErrors lists per-action failures that
// did not abort the turn.
type TurnResult struct {
	Responses      []Response
	Proposed       []protocol.ToolCall
	DispatchErrors []DispatchError
}

// CartEngine abstracts cart mutation for testability. The default
// implementation is cart.Engine.
type CartEngine interface {
	Add(ctx context.Context, sessionID, productName string, units int) (cart.Outcome, error)
	Remove(ctx context.Context, sessionID, productName string, units int) (cart.Outcome, error)
	Summary(ctx context.Context, sessionID string) (string, error)
}

// Recommender abstracts catalog search. The default implementation is
// catalog.Adapter.
type Recommender interface {
	Recommend(ctx context.Context, sessionID, query, zipcode string) (string, error)
}

// Gate abstracts the content-safety chain. The default implementation is
// safety.Gate.
type Gate interface {
	CheckInput(ctx context.Context, text string) (safety.Verdict, error)
	CheckOutput(ctx context.Context, text string) (safety.Verdict, error)
}

// Option configures a Chatbot after config-driven initialization.
// Applied by New after cold start; overrides replace config-created
// defaults.
type Option func(*Chatbot)

// WithStore overrides the config-created session store. Supply it
// together with WithCartEngine and WithRecommender when those should
// share the store.
func WithStore(s session.Store) Option {
	return func(c *Chatbot) { c.store = s }
}

// WithCompletionClient overrides the config-created completion client.
func WithCompletionClient(cl completion.Client) Option {
	return func(c *Chatbot) { c.client = cl }
}

// WithCartEngine overrides the config-created cart engine.
func WithCartEngine(e CartEngine) Option {
	return func(c *Chatbot) { c.cart = e }
}

// WithRecommender overrides the config-created catalog adapter.
func WithRecommender(r Recommender) Option {
	return func(c *Chatbot) { c.catalog = r }
}

// WithGate overrides the config-created safety gate.
func WithGate(g Gate) Option {
	return func(c *Chatbot) { c.gate = g }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(c *Chatbot) { c.observer = o }
}

// Chatbot coordinates the safety gate, completion client, cart engine and
// catalog adapter for one retail conversation surface.
type Chatbot struct {
	store    session.Store
	client   completion.Client
	cart     CartEngine
	catalog  Recommender
	gate     Gate
	deferred *session.DeferredCache
	observer observability.Observer

	historyWindow int
	systemPrompt  string
}

// New creates a Chatbot from configuration. Subsystems are initialized
// from their respective config sections; functional options applied after
// initialization can override any subsystem for testing. Defaults that
// depend on an overridden subsystem (cart engine and catalog adapter on
// the store) are created after the options run.
func New(cfg *Config, opts ...Option) (*Chatbot, error) {
	c := &Chatbot{
		historyWindow: cfg.HistoryWindow,
		systemPrompt:  cfg.SystemPrompt,
	}
	if c.historyWindow <= 0 {
		c.historyWindow = defaultHistoryWindow
	}
	if c.systemPrompt == "" {
		c.systemPrompt = DefaultSystemPrompt
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil {
		c.store = session.NewMemoryStore()
	}
	if c.client == nil {
		c.client = completion.NewHTTPClient(cfg.Completion)
	}
	if c.cart == nil {
		c.cart = cart.NewEngine(c.store, cfg.MaxCartVolume)
	}
	if c.catalog == nil {
		corpus := catalog.NewCorpus(nil, nil)
		if cfg.Catalog.ProductsPath != "" {
			loaded, err := catalog.LoadCorpus(cfg.Catalog.ProductsPath, cfg.Catalog.HistoriesPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load catalog corpus: %w", err)
			}
			corpus = loaded
		}
		c.catalog = catalog.NewAdapter(c.client, c.store, corpus, cfg.Catalog.MaxResults)
	}
	if c.gate == nil {
		moderation := safety.NewHTTPModeration(cfg.Completion.BaseURL, cfg.Completion.APIKey)
		c.gate = safety.NewGate(moderation, c.client, cfg.Safety)
	}
	if c.observer == nil {
		c.observer = observability.NewSlogObserver(slog.Default())
	}
	c.deferred = session.NewDeferredCache(c.store)

	return c, nil
}

// HandleTurn processes one user message end to end: input screening,
// action proposal, dispatch or deferral, final answer, output screening
// and response assembly.
func (c *Chatbot) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	c.emit(ctx, EventTurnStart, observability.LevelInfo, map[string]any{
		"session":      req.SessionID,
		"has_location": req.Location != nil,
	})

	verdict, err := c.gate.CheckInput(ctx, req.Message)
	if err != nil {
		return nil, err
	}
	if verdict.Blocked {
		c.emit(ctx, EventTurnBlocked, observability.LevelWarning, map[string]any{
			"session": req.SessionID,
			"check":   verdict.Check,
			"path":    "input",
		})
		return &TurnResult{Responses: []Response{{Text: GuardrailsWarning}}}, nil
	}

	messages, err := c.appendAndCollect(ctx, req.SessionID, protocol.NewMessage(protocol.RoleUser, req.Message))
	if err != nil {
		return nil, err
	}

	reply, err := c.client.Complete(ctx, messages, Tools(), nil)
	if err != nil {
		return nil, fmt.Errorf("completion call failed: %w", err)
	}

	if len(reply.ToolCalls) == 0 {
		responses, err := c.assemble(ctx, req.SessionID, reply.Content)
		if err != nil {
			return nil, err
		}
		return &TurnResult{Responses: responses}, nil
	}

	if req.Location == nil {
		if err := c.deferred.Defer(ctx, req.SessionID, reply.ToolCalls); err != nil {
			return nil, err
		}
		c.emit(ctx, EventTurnDeferred, observability.LevelInfo, map[string]any{
			"session": req.SessionID,
			"actions": len(reply.ToolCalls),
		})

		holding := HoldingLocation
		if req.AgeConfirmed == nil {
			holding = HoldingLocationAge
		}
		responses, err := c.assemble(ctx, req.SessionID, holding)
		if err != nil {
			return nil, err
		}
		result := &TurnResult{Responses: responses}
		if req.Debug {
			result.Proposed = reply.ToolCalls
		}
		return result, nil
	}

	result, err := c.runProposals(ctx, req.SessionID, *req.Location, reply.ToolCalls)
	if err != nil {
		return nil, err
	}
	if req.Debug {
		result.Proposed = reply.ToolCalls
	}
	return result, nil
}

// ReplayCached dispatches a previously deferred proposal batch once the
// host has learned the session's location. Returns nil when nothing is
// cached, signalling the caller to continue its normal flow.
func (c *Chatbot) ReplayCached(ctx context.Context, sessionID, location string) (*TurnResult, error) {
	calls, err := c.deferred.Take(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, nil
	}
	return c.runProposals(ctx, sessionID, location, calls)
}

// FinishRequested reports and clears the finalize flag. The host calls it
// after each turn to decide whether to hand over to payment.
func (c *Chatbot) FinishRequested(ctx context.Context, sessionID string) (bool, error) {
	var requested bool
	err := c.store.Update(ctx, sessionID, func(s *session.State) error {
		requested = s.FinishPurchase
		s.FinishPurchase = false
		return nil
	})
	return requested, err
}

// CartStatus renders the session's current cart summary.
func (c *Chatbot) CartStatus(ctx context.Context, sessionID string) (string, error) {
	return c.cart.Summary(ctx, sessionID)
}

// Reset discards all state for a session.
func (c *Chatbot) Reset(ctx context.Context, sessionID string) error {
	return c.store.Delete(ctx, sessionID)
}

// runProposals executes a validated proposal batch and drives the second
// completion round for the natural-language answer.
func (c *Chatbot) runProposals(ctx context.Context, sessionID, location string, calls []protocol.ToolCall) (*TurnResult, error) {
	toolMessages, dispatchErrs, err := c.dispatch(ctx, sessionID, location, calls)
	if err != nil {
		return nil, err
	}

	// The proposal echo precedes its results so the second round sees a
	// well-formed tool exchange.
	echo := protocol.Message{Role: protocol.RoleAssistant, ToolCalls: calls}
	messages, err := c.appendAndCollect(ctx, sessionID, append([]protocol.Message{echo}, toolMessages...)...)
	if err != nil {
		return nil, err
	}

	reply, err := c.client.Complete(ctx, messages, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("completion call failed: %w", err)
	}

	responses, err := c.assemble(ctx, sessionID, reply.Content)
	if err != nil {
		return nil, err
	}
	return &TurnResult{Responses: responses, DispatchErrors: dispatchErrs}, nil
}

// appendAndCollect commits messages to the bounded history and returns the
// full outbound list, system prompt first.
func (c *Chatbot) appendAndCollect(ctx context.Context, sessionID string, msgs ...protocol.Message) ([]protocol.Message, error) {
	var history []protocol.Message
	err := c.store.Update(ctx, sessionID, func(s *session.State) error {
		s.AppendHistory(c.historyWindow, msgs...)
		history = append([]protocol.Message(nil), s.History...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]protocol.Message, 0, len(history)+1)
	messages = append(messages, protocol.NewMessage(protocol.RoleSystem, c.systemPrompt))
	messages = append(messages, history...)
	return messages, nil
}

// assemble screens the final answer, persists it, and builds the ordered
// response list. When a cart edit ran this turn, the cart summary is sent
// first with the checkout button so the user always sees system-rendered
// cart state instead of a model paraphrase.
func (c *Chatbot) assemble(ctx context.Context, sessionID, finalAnswer string) ([]Response, error) {
	verdict, err := c.gate.CheckOutput(ctx, finalAnswer)
	if err != nil {
		return nil, err
	}
	if verdict.Blocked {
		c.emit(ctx, EventTurnBlocked, observability.LevelWarning, map[string]any{
			"session": sessionID,
			"check":   verdict.Check,
			"path":    "output",
		})
		return []Response{{Text: GuardrailsWarning}}, nil
	}

	var sendSummary bool
	err = c.store.Update(ctx, sessionID, func(s *session.State) error {
		s.AppendHistory(c.historyWindow, protocol.NewMessage(protocol.RoleAssistant, finalAnswer))
		sendSummary = s.SendCartSummary
		s.SendCartSummary = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	var responses []Response
	if sendSummary {
		summary, err := c.cart.Summary(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, Response{Text: summary, Buttons: []Button{FinishButton}})
	}
	responses = append(responses, Response{Text: finalAnswer})

	c.emit(ctx, EventTurnResponse, observability.LevelInfo, map[string]any{
		"session":   sessionID,
		"responses": len(responses),
	})
	return responses, nil
}

func (c *Chatbot) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "chatbot",
		Data:      data,
	})
}
