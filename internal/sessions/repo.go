package sessions

import (
	"context"
	"time"
)

// Repo persists view state per session id.
type Repo interface {
	// Get returns ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, state State) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions last saved before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
