// Package audit records every dashboard mutation, successful or not.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/appctx"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Entry is one recorded mutation.
type Entry struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurredAt"`
	RequestID  string    `json:"requestId,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	Resource   string    `json:"resource"`
	Action     string    `json:"action"`
	TargetID   string    `json:"targetId,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Message    string    `json:"message,omitempty"`
}

// Recorder persists and lists entries.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// NewEntry fills identity and correlation fields from ctx.
func NewEntry(ctx context.Context, resource, action, targetID string, err error) *Entry {
	e := &Entry{
		ID:         uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		RequestID:  apiclient.RequestIDFrom(ctx),
		Resource:   resource,
		Action:     action,
		TargetID:   targetID,
		Outcome:    OutcomeSuccess,
	}
	if a, ok := appctx.FromContext(ctx); ok {
		e.SessionID = a.SessionID
		e.UserID = a.UserID
	}
	if err != nil {
		e.Outcome = OutcomeFailure
		e.Message = apiclient.Message(err)
	}
	return e
}

// Settled returns a mutation observer that records every outcome. A failure
// to record is logged and never fails the mutation.
func Settled[In, Out any](rec Recorder, logger zerolog.Logger, resource, action string, target func(In, Out) string) func(context.Context, In, Out, error) {
	return func(ctx context.Context, in In, out Out, err error) {
		if rec == nil {
			return
		}
		id := ""
		if target != nil {
			id = target(in, out)
		}
		e := NewEntry(ctx, resource, action, id, err)
		if recErr := rec.Record(ctx, e); recErr != nil {
			logger.Error().Err(recErr).
				Str("request_id", e.RequestID).
				Str("resource", resource).
				Str("action", action).
				Msg("failed to record audit entry")
		}
	}
}

// PGStore writes entries to the dashboard_audit table.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Record(ctx context.Context, e *Entry) error {
	const query = `
		INSERT INTO dashboard_audit (
			id, occurred_at, request_id, session_id, user_id,
			resource, action, target_id, outcome, message
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := s.pool.Exec(ctx, query,
		e.ID, e.OccurredAt, e.RequestID, e.SessionID, e.UserID,
		e.Resource, e.Action, e.TargetID, string(e.Outcome), e.Message,
	)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, limit int) ([]Entry, error) {
	const query = `
		SELECT id, occurred_at, request_id, session_id, user_id,
			resource, action, target_id, outcome, message
		FROM dashboard_audit
		ORDER BY occurred_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var outcome string
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.RequestID, &e.SessionID, &e.UserID,
			&e.Resource, &e.Action, &e.TargetID, &outcome, &e.Message); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate entries: %w", err)
	}
	return out, nil
}

// LogStore is the fallback when no database is configured: every entry is
// emitted as a structured log line and the most recent ones are kept in
// memory for the audit view.
type LogStore struct {
	logger   zerolog.Logger
	capacity int

	mu      sync.Mutex
	entries []Entry
}

func NewLogStore(logger zerolog.Logger, capacity int) *LogStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &LogStore{logger: logger, capacity: capacity}
}

func (s *LogStore) Record(_ context.Context, e *Entry) error {
	evt := s.logger.Info()
	if e.Outcome == OutcomeFailure {
		evt = s.logger.Warn()
	}
	evt.
		Str("type", "dashboard_audit").
		Str("request_id", e.RequestID).
		Str("user_id", e.UserID).
		Str("resource", e.Resource).
		Str("action", e.Action).
		Str("target_id", e.TargetID).
		Str("outcome", string(e.Outcome)).
		Str("message", e.Message).
		Msg("mutation")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	return nil
}

// List returns the newest entries first.
func (s *LogStore) List(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}
