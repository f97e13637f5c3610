// Package gateway exposes the chatbot over HTTP for the dialogue-management
// host. The host owns turn-taking and the zipcode/age forms; this surface
// only maps webhook-style JSON requests onto chatbot operations.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/cartwheel-ai/cartwheel/chatbot"
)

const defaultRequestTimeout = 60

// Config tunes the HTTP surface.
type Config struct {
	Addr                  string `json:"addr,omitempty"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds,omitempty"`
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		Addr:                  ":8080",
		RequestTimeoutSeconds: defaultRequestTimeout,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.RequestTimeoutSeconds > 0 {
		c.RequestTimeoutSeconds = source.RequestTimeoutSeconds
	}
}

// Bot is the chatbot surface the gateway drives. The default
// implementation is chatbot.Chatbot.
type Bot interface {
	HandleTurn(ctx context.Context, req chatbot.TurnRequest) (*chatbot.TurnResult, error)
	ReplayCached(ctx context.Context, sessionID, location string) (*chatbot.TurnResult, error)
	FinishRequested(ctx context.Context, sessionID string) (bool, error)
	CartStatus(ctx context.Context, sessionID string) (string, error)
	Reset(ctx context.Context, sessionID string) error
}

// Gateway routes host requests to the chatbot.
type Gateway struct {
	cfg    Config
	bot    Bot
	logger *slog.Logger
}

// New creates a Gateway. A nil logger falls back to slog.Default.
func New(cfg Config, bot Bot, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{cfg: cfg, bot: bot, logger: logger}
}

// Router constructs the chi mux with all routes wired.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(g.cfg.RequestTimeoutSeconds) * time.Second))

	r.Get("/health", g.handleHealth)

	r.Post("/sessions", g.handleCreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/messages", g.handleMessage)
		r.Post("/replay", g.handleReplay)
		r.Get("/cart", g.handleCart)
		r.Delete("/", g.handleReset)
	})

	return r
}

type messageRequest struct {
	Message      string  `json:"message"`
	Location     *string `json:"location"`
	AgeConfirmed *bool   `json:"age_confirmed"`
	Debug        bool    `json:"debug,omitempty"`
}

type turnReply struct {
	Responses      []chatbot.Response   `json:"responses"`
	Proposed       []protocolCallEcho   `json:"proposed,omitempty"`
	DispatchErrors []string             `json:"dispatch_errors,omitempty"`
	FinishPurchase bool                 `json:"finish_purchase"`
}

type protocolCallEcho struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (g *Gateway) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	result, err := g.bot.HandleTurn(r.Context(), chatbot.TurnRequest{
		SessionID:    sessionID,
		Message:      req.Message,
		Location:     req.Location,
		AgeConfirmed: req.AgeConfirmed,
		Debug:        req.Debug,
	})
	if err != nil {
		g.logger.Error("turn failed", "session", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	g.writeTurn(w, r, sessionID, result)
}

type replayRequest struct {
	Location string `json:"location"`
}

func (g *Gateway) handleReplay(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req replayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Location == "" {
		http.Error(w, "location is required", http.StatusBadRequest)
		return
	}

	result, err := g.bot.ReplayCached(r.Context(), sessionID, req.Location)
	if err != nil {
		g.logger.Error("replay failed", "session", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	g.writeTurn(w, r, sessionID, result)
}

func (g *Gateway) handleCart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	summary, err := g.bot.CartStatus(r.Context(), sessionID)
	if err != nil {
		g.logger.Error("cart status failed", "session", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	g.writeJSON(w, map[string]string{"summary": summary})
}

func (g *Gateway) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := g.bot.Reset(r.Context(), sessionID); err != nil {
		g.logger.Error("reset failed", "session", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, map[string]string{"status": "ok"})
}

// handleCreateSession mints an opaque session id for hosts that do not
// bring their own.
func (g *Gateway) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]string{"id": uuid.NewString()}); err != nil {
		g.logger.Error("response encoding failed", "error", err)
	}
}

func (g *Gateway) writeTurn(w http.ResponseWriter, r *http.Request, sessionID string, result *chatbot.TurnResult) {
	finish, err := g.bot.FinishRequested(r.Context(), sessionID)
	if err != nil {
		g.logger.Error("finish flag read failed", "session", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	reply := turnReply{
		Responses:      result.Responses,
		FinishPurchase: finish,
	}
	for _, call := range result.Proposed {
		reply.Proposed = append(reply.Proposed, protocolCallEcho{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: call.Arguments,
		})
	}
	for _, derr := range result.DispatchErrors {
		reply.DispatchErrors = append(reply.DispatchErrors, derr.Error())
	}

	g.writeJSON(w, reply)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("response encoding failed", "error", err)
	}
}
