package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const updateRetries = 8

// RedisConfig holds RedisStore initialization parameters.
type RedisConfig struct {
	// KeyPrefix namespaces session keys, e.g. "chat:". Empty is valid.
	KeyPrefix string `json:"key_prefix,omitempty"`
	// TTL is the session retention period, refreshed on every write.
	// Zero means no expiry.
	TTL time.Duration `json:"ttl,omitempty"`
}

// RedisStore persists session state as one JSON blob per session key.
// Update uses optimistic locking (WATCH + transaction) so concurrent
// writers to the same session never lose mutations.
type RedisStore struct {
	client *redis.Client
	cfg    RedisConfig
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client *redis.Client, cfg RedisConfig) *RedisStore {
	return &RedisStore{client: client, cfg: cfg}
}

func (r *RedisStore) key(id string) string {
	return r.cfg.KeyPrefix + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (*State, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &state, nil
}

func (r *RedisStore) Update(ctx context.Context, id string, fn func(*State) error) error {
	key := r.key(id)

	txn := func(tx *redis.Tx) error {
		var state State
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// Lazily created session.
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, &state); err != nil {
				return fmt.Errorf("decode session %s: %w", id, err)
			}
		}

		if err := fn(&state); err != nil {
			return err
		}

		encoded, err := json.Marshal(&state)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, r.cfg.TTL)
			return nil
		})
		return err
	}

	for i := 0; i < updateRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("session %s: %w", id, ErrConflict)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}
