package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ModerationClient classifies a text against a content-moderation model.
type ModerationClient interface {
	// Flagged reports whether the moderation model rejects the text.
	Flagged(ctx context.Context, text string) (bool, error)
}

// HTTPModeration calls an OpenAI-compatible moderations endpoint.
type HTTPModeration struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// ModerationOption configures an HTTPModeration.
type ModerationOption func(*HTTPModeration)

// WithModerationDoer overrides the underlying *http.Client.
func WithModerationDoer(c *http.Client) ModerationOption {
	return func(m *HTTPModeration) { m.httpc = c }
}

// NewHTTPModeration creates a moderation client against baseURL, which is
// the provider root (the same base used for chat completions).
func NewHTTPModeration(baseURL, apiKey string, opts ...ModerationOption) *HTTPModeration {
	m := &HTTPModeration{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged bool `json:"flagged"`
	} `json:"results"`
}

func (m *HTTPModeration) Flagged(ctx context.Context, text string) (bool, error) {
	body, err := json.Marshal(moderationRequest{Input: text})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/moderations", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("moderation: unexpected status %d: %s", resp.StatusCode, respBody)
	}

	var decoded moderationResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return false, fmt.Errorf("moderation: decode response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return false, fmt.Errorf("moderation: response carries no results")
	}
	return decoded.Results[0].Flagged, nil
}
