package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores sessions in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

type memoryEntry struct {
	state   State
	savedAt time.Time
}

// NewMemoryRepo constructs a MemoryRepo. A non-positive ttl disables expiry.
func NewMemoryRepo(ttl time.Duration) *MemoryRepo {
	return &MemoryRepo{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the session state.
func (r *MemoryRepo) Get(ctx context.Context, id string) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.items[id]
	if !ok || r.expired(entry) {
		return State{}, ErrNotFound
	}
	return cloneState(entry.state), nil
}

// Save stores the session state and refreshes its expiry.
func (r *MemoryRepo) Save(ctx context.Context, id string, state State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = memoryEntry{state: cloneState(state), savedAt: r.now()}
	return nil
}

// Delete removes the session.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

// DeleteExpired removes sessions saved before the cutoff.
func (r *MemoryRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, entry := range r.items {
		if entry.savedAt.Before(before) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *MemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *MemoryRepo) expired(entry memoryEntry) bool {
	return r.ttl > 0 && r.now().Sub(entry.savedAt) > r.ttl
}

func cloneState(s State) State {
	switch v := s.View.(type) {
	case ResultsView:
		s.View = ResultsView{Result: v.Result.Clone()}
	}
	return s
}
