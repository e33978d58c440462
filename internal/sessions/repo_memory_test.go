package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMemoryRepoRoundTrip(t *testing.T) {
	repo := NewMemoryRepo(time.Hour)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	state := State{Generation: 2, View: ResultsView{Result: sampleResult()}}
	if err := repo.Save(ctx, "s1", state); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Generation != 2 || got.Kind() != KindResults {
		t.Fatalf("unexpected state %+v", got)
	}

	// Stored results must not alias the caller's slices.
	got.View.(ResultsView).Result.MatchedKeywords[0] = "changed"
	again, _ := repo.Get(ctx, "s1")
	if again.View.(ResultsView).Result.MatchedKeywords[0] != "Go" {
		t.Fatalf("stored result was mutated through a returned copy")
	}

	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryRepoExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo(time.Hour)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	if err := repo.Save(ctx, "old", NewState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if err := repo.Save(ctx, "new", NewState()); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(45 * time.Minute)
	if _, err := repo.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be hidden, got %v", err)
	}
	if _, err := repo.Get(ctx, "new"); err != nil {
		t.Fatalf("expected fresh session, got %v", err)
	}

	n, err := repo.DeleteExpired(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 || repo.Len() != 1 {
		t.Fatalf("expected one session swept, got n=%d len=%d", n, repo.Len())
	}
}

func TestMemoryRepoCanceledContext(t *testing.T) {
	repo := NewMemoryRepo(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.Save(ctx, "s1", NewState()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	now := time.Now()
	repo := NewMemoryRepo(0)
	repo.now = func() time.Time { return now.Add(-3 * time.Hour) }
	_ = repo.Save(context.Background(), "stale", NewState())
	repo.now = func() time.Time { return now }
	_ = repo.Save(context.Background(), "fresh", NewState())

	sweep(context.Background(), repo, now.Add(-2*time.Hour), zap.NewNop())

	if repo.Len() != 1 {
		t.Fatalf("expected only the fresh session left, got %d", repo.Len())
	}
}

func TestRunJanitorDisabled(t *testing.T) {
	if err := RunJanitor(context.Background(), NewMemoryRepo(0), 0, time.Minute, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunJanitor(ctx, NewMemoryRepo(time.Hour), time.Hour, time.Millisecond, nil)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop")
	}
}
