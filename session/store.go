package session

import (
	"context"
	"errors"
)

// ErrConflict is returned when a store cannot complete a read-modify-write
// cycle because of concurrent writers, after exhausting its internal
// retries.
var ErrConflict = errors.New("session update conflict")

// Store persists one State blob per session id. Get on an unknown id
// returns an empty State, never an error: sessions are created lazily on
// first access. Update must apply fn to the current state and commit the
// result atomically with respect to other updates of the same session.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Update(ctx context.Context, id string, fn func(*State) error) error
	Delete(ctx context.Context, id string) error
}
