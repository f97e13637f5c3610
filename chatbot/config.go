package chatbot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cartwheel-ai/cartwheel/cart"
	"github.com/cartwheel-ai/cartwheel/catalog"
	"github.com/cartwheel-ai/cartwheel/completion"
	"github.com/cartwheel-ai/cartwheel/safety"
)

// defaultHistoryWindow bounds the per-session conversation history sent
// back to the completion service.
const defaultHistoryWindow = 6

// Config holds initialization parameters for all chatbot subsystems.
// Each subsystem section delegates to that subsystem's config-driven
// constructor.
type Config struct {
	Completion    completion.Config `json:"completion"`
	Catalog       catalog.Config    `json:"catalog"`
	Safety        safety.Config     `json:"safety"`
	HistoryWindow int               `json:"history_window,omitempty"`
	MaxCartVolume float64           `json:"max_cart_volume,omitempty"`
	SystemPrompt  string            `json:"system_prompt,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults for all
// subsystems.
func DefaultConfig() Config {
	return Config{
		Completion:    completion.DefaultConfig(),
		Catalog:       catalog.DefaultConfig(),
		HistoryWindow: defaultHistoryWindow,
		MaxCartVolume: cart.DefaultMaxVolume,
		SystemPrompt:  DefaultSystemPrompt,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Completion.Merge(&source.Completion)
	c.Catalog.Merge(&source.Catalog)

	if len(source.Safety.Lexicon) > 0 {
		c.Safety.Lexicon = source.Safety.Lexicon
	}
	if source.HistoryWindow > 0 {
		c.HistoryWindow = source.HistoryWindow
	}
	if source.MaxCartVolume > 0 {
		c.MaxCartVolume = source.MaxCartVolume
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and
// returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
