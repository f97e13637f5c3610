// Command shopd serves the retail chatbot over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cartwheel-ai/cartwheel/chatbot"
	"github.com/cartwheel-ai/cartwheel/gateway"
	"github.com/cartwheel-ai/cartwheel/observability"
	"github.com/cartwheel-ai/cartwheel/session"
)

// serverConfig aggregates the chatbot and gateway sections plus the
// session backend selection.
type serverConfig struct {
	Chatbot chatbot.Config `json:"chatbot"`
	Gateway gateway.Config `json:"gateway"`
	Redis   redisConfig    `json:"redis"`
}

// redisConfig selects and tunes the Redis session backend. An empty Addr
// keeps sessions in process memory.
type redisConfig struct {
	Addr       string `json:"addr,omitempty"`
	Password   string `json:"password,omitempty"`
	DB         int    `json:"db,omitempty"`
	KeyPrefix  string `json:"key_prefix,omitempty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Chatbot: chatbot.DefaultConfig(),
		Gateway: gateway.DefaultConfig(),
		Redis:   redisConfig{KeyPrefix: "session:"},
	}
}

func loadServerConfig(filename string) (*serverConfig, error) {
	cfg := defaultServerConfig()
	if filename == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded serverConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Chatbot.Merge(&loaded.Chatbot)
	cfg.Gateway.Merge(&loaded.Gateway)
	if loaded.Redis.Addr != "" {
		cfg.Redis = loaded.Redis
		if cfg.Redis.KeyPrefix == "" {
			cfg.Redis.KeyPrefix = "session:"
		}
	}
	return &cfg, nil
}

func main() {
	var (
		configFile = flag.String("config", "", "Path to server config JSON file")
		addr       = flag.String("addr", "", "Listen address (overrides config)")
		redisAddr  = flag.String("redis", "", "Redis address for session storage (overrides config; empty uses in-memory sessions)")
		apiKey     = flag.String("api-key", "", "Completion service API key (overrides config and OPENAI_API_KEY)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	cfg, err := loadServerConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *addr != "" {
		cfg.Gateway.Addr = *addr
	}
	if *redisAddr != "" {
		cfg.Redis.Addr = *redisAddr
	}
	if *apiKey != "" {
		cfg.Chatbot.Completion.APIKey = *apiKey
	} else if cfg.Chatbot.Completion.APIKey == "" {
		cfg.Chatbot.Completion.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var store session.Store = session.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = session.NewRedisStore(client, session.RedisConfig{
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       time.Duration(cfg.Redis.TTLSeconds) * time.Second,
		})
		logger.Info("using redis session store", "addr", cfg.Redis.Addr)
	} else {
		logger.Info("using in-memory session store")
	}

	bot, err := chatbot.New(&cfg.Chatbot,
		chatbot.WithStore(store),
		chatbot.WithObserver(observability.NewSlogObserver(logger)),
	)
	if err != nil {
		log.Fatalf("Failed to create chatbot: %v", err)
	}

	gw := gateway.New(cfg.Gateway, bot, logger)
	server := &http.Server{
		Addr:    cfg.Gateway.Addr,
		Handler: gw.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Gateway.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Shutdown failed: %v", err)
		}
		logger.Info("shut down cleanly")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}
}
