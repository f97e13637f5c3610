// Package completion wraps outbound requests to the external LLM
// chat-completions endpoint. The client owns transport resilience: bounded
// retry with exponential backoff on rate limiting, and classification of
// provider failures into fixed fallback content so the orchestrator logic
// stays uniform. Every call ends in either a content reply or a propagated
// fatal error.
package completion

import (
	"context"
	"time"

	"github.com/cartwheel-ai/cartwheel/core/protocol"
)

// Reply is the decoded outcome of a completion call: either a direct
// answer (Content) or a batch of proposed actions (ToolCalls), or both.
type Reply struct {
	Content   string
	ToolCalls []protocol.ToolCall
}

// Options carries optional generation parameters. Nil pointer fields are
// omitted from the request.
type Options struct {
	MaxTokens    int
	Temperature  *float64
	TopP         *float64
	LogitBias    map[string]int
	JSONResponse bool
}

// Client is the completion service contract used by the orchestrator, the
// catalog adapter, and the safety gate.
type Client interface {
	Complete(ctx context.Context, messages []protocol.Message, tools []protocol.Tool, opts *Options) (*Reply, error)
}

// Policy bounds the retry loop on rate-limited calls. The delay before
// attempt n is InitialBackoff * Multiplier^n.
type Policy struct {
	MaxAttempts    int           `json:"max_attempts,omitempty"`
	InitialBackoff time.Duration `json:"initial_backoff,omitempty"`
	Multiplier     float64       `json:"multiplier,omitempty"`
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		InitialBackoff: 2 * time.Second,
		Multiplier:     2.0,
	}
}

// Merge applies non-zero values from source into p.
func (p *Policy) Merge(source *Policy) {
	if source.MaxAttempts > 0 {
		p.MaxAttempts = source.MaxAttempts
	}
	if source.InitialBackoff > 0 {
		p.InitialBackoff = source.InitialBackoff
	}
	if source.Multiplier > 0 {
		p.Multiplier = source.Multiplier
	}
}

// Config holds HTTP client initialization parameters.
type Config struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model,omitempty"`
	Retry   Policy `json:"retry"`
}

// DefaultConfig returns a Config targeting the public OpenAI endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
		Retry:   DefaultPolicy(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	c.Retry.Merge(&source.Retry)
}
