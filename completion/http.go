package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/cartwheel-ai/cartwheel/core/protocol"
)

// Fixed fallback content returned in place of provider failures. Folding
// these into normal replies keeps the orchestrator path uniform; the user
// only ever sees natural-language text.
const (
	PolicyViolationMessage = "The message could not be processed because it contains inappropriate content. Please rephrase the message."
	UpstreamErrorMessage   = "Internal error while processing the message."
	UnexpectedErrorMessage = "An unexpected error occurred."
)

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	cfg   Config
	httpc *http.Client
	sleep func(ctx context.Context, d time.Duration) error
}

// HTTPOption configures an HTTPClient after config-driven initialization.
type HTTPOption func(*HTTPClient)

// WithHTTPDoer overrides the underlying *http.Client.
func WithHTTPDoer(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.httpc = c }
}

// WithSleep overrides the backoff sleep function. Tests inject a fake to
// exercise the retry policy without real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) HTTPOption {
	return func(h *HTTPClient) { h.sleep = fn }
}

// NewHTTPClient creates an HTTPClient from configuration.
func NewHTTPClient(cfg Config, opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 60 * time.Second},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type toolDef struct {
	Type     string        `json:"type"`
	Function protocol.Tool `json:"function"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []protocol.Message `json:"messages"`
	Tools          []toolDef          `json:"tools,omitempty"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    *float64           `json:"temperature,omitempty"`
	TopP           *float64           `json:"top_p,omitempty"`
	LogitBias      map[string]int     `json:"logit_bias,omitempty"`
	ResponseFormat *responseFormat    `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string              `json:"role"`
			Content   string              `json:"content"`
			ToolCalls []protocol.ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		InnerError struct {
			Code string `json:"code"`
		} `json:"innererror"`
	} `json:"error"`
}

// Complete posts a chat-completions request. Rate-limited calls are
// retried with exponential backoff up to the policy bound, then fail with
// ExhaustedError. Content-policy rejections and transport or decoding
// surprises become fixed fallback replies; any other non-success status is
// a fatal StatusError.
func (h *HTTPClient) Complete(ctx context.Context, messages []protocol.Message, tools []protocol.Tool, opts *Options) (*Reply, error) {
	body, err := h.buildBody(messages, tools, opts)
	if err != nil {
		return &Reply{Content: UnexpectedErrorMessage}, nil
	}

	policy := h.cfg.Retry
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		reply, retry, err := h.post(ctx, body)
		if err != nil {
			return nil, err
		}
		if !retry {
			return reply, nil
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}
		delay := time.Duration(float64(policy.InitialBackoff) * math.Pow(policy.Multiplier, float64(attempt)))
		if err := h.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &ExhaustedError{Attempts: policy.MaxAttempts}
}

func (h *HTTPClient) buildBody(messages []protocol.Message, tools []protocol.Tool, opts *Options) ([]byte, error) {
	req := chatRequest{
		Model:    h.cfg.Model,
		Messages: messages,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, toolDef{Type: "function", Function: t})
	}
	if opts != nil {
		req.MaxTokens = opts.MaxTokens
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.LogitBias = opts.LogitBias
		if opts.JSONResponse {
			req.ResponseFormat = &responseFormat{Type: "json_object"}
		}
	}
	return json.Marshal(req)
}

// post performs one attempt. retry is true only for rate limiting; a
// non-nil error is fatal for the call.
func (h *HTTPClient) post(ctx context.Context, body []byte) (reply *Reply, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return &Reply{Content: UnexpectedErrorMessage}, false, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)

	resp, err := h.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return &Reply{Content: UnexpectedErrorMessage}, false, nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Reply{Content: UnexpectedErrorMessage}, false, nil
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, nil

	case resp.StatusCode == http.StatusBadRequest:
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil &&
			errResp.Error.InnerError.Code == "ResponsibleAIPolicyViolation" {
			return &Reply{Content: PolicyViolationMessage}, false, nil
		}
		return &Reply{Content: UpstreamErrorMessage}, false, nil

	case resp.StatusCode != http.StatusOK:
		return nil, false, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil || len(decoded.Choices) == 0 {
		return &Reply{Content: UnexpectedErrorMessage}, false, nil
	}

	msg := decoded.Choices[0].Message
	return &Reply{Content: msg.Content, ToolCalls: msg.ToolCalls}, false, nil
}
