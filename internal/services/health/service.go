package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB       Pinger
	Provider string
	LLMReady bool
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Sessions string `json:"sessions"`
	Database string `json:"database,omitempty"`
	Provider string `json:"provider,omitempty"`
	LLM      string `json:"llm"`
}

// NewService constructs a new health service. db may be nil when sessions
// are kept in memory.
func NewService(db Pinger, provider string, llmReady bool) *Service {
	return &Service{DB: db, Provider: provider, LLMReady: llmReady}
}

// Status checks the session store. A missing provider key is reported but
// does not make the process unhealthy.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Sessions: "memory", LLM: "missing_key"}
	if s == nil {
		return st
	}
	st.Provider = s.Provider
	if s.LLMReady {
		st.LLM = "configured"
	}
	if s.DB == nil {
		return st
	}

	st.Sessions = "postgres"
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		st.OK = false
		st.Database = "down"
		return st
	}
	st.Database = "up"
	return st
}
