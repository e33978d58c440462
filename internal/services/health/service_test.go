package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestStatusMemorySessions(t *testing.T) {
	st := NewService(nil, "gemini", false).Status(context.Background())
	if !st.OK || st.Sessions != "memory" || st.LLM != "missing_key" || st.Database != "" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStatusDatabaseUp(t *testing.T) {
	st := NewService(fakePinger{}, "gemini", true).Status(context.Background())
	if !st.OK || st.Sessions != "postgres" || st.Database != "up" || st.LLM != "configured" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStatusDatabaseDown(t *testing.T) {
	st := NewService(fakePinger{err: errors.New("refused")}, "gemini", true).Status(context.Background())
	if st.OK || st.Database != "down" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStatusNilService(t *testing.T) {
	var s *Service
	if !s.Status(context.Background()).OK {
		t.Fatalf("nil service must report ok")
	}
}
