package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. State is stored as JSONB.
type PGRepo struct {
	DB  *sql.DB
	TTL time.Duration
	Now func() time.Time
}

func (r *PGRepo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Get returns the session state unless it is unknown or older than TTL.
func (r *PGRepo) Get(ctx context.Context, id string) (State, error) {
	const query = `
SELECT state
FROM view_sessions
WHERE id = $1 AND updated_at > $2`
	cutoff := time.Time{}
	if r.TTL > 0 {
		cutoff = r.now().Add(-r.TTL)
	}

	var raw []byte
	if err := r.DB.QueryRowContext(ctx, query, id, cutoff).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, ErrNotFound
		}
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return state, nil
}

// Save upserts the session state.
func (r *PGRepo) Save(ctx context.Context, id string, state State) error {
	const query = `
INSERT INTO view_sessions (id, generation, state, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET generation = EXCLUDED.generation,
	state = EXCLUDED.state,
	updated_at = EXCLUDED.updated_at`
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	_, err = r.DB.ExecContext(ctx, query, id, int64(state.Generation), payload, r.now())
	return err
}

// Delete removes the session.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM view_sessions WHERE id = $1`, id)
	return err
}

// DeleteExpired removes sessions saved before the cutoff.
func (r *PGRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM view_sessions WHERE updated_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
