package query

import (
	"context"
	"errors"
	"sync"
)

// ErrMutationPending is returned when the same mutation is submitted again
// while an earlier submission is still in flight.
var ErrMutationPending = errors.New("a previous submission is still in progress")

// MutationConfig describes a write and the reads it makes stale.
type MutationConfig[In, Out any] struct {
	// Fn performs exactly one request. It is never retried.
	Fn func(ctx context.Context, in In) (Out, error)
	// Invalidates lists prefixes marked stale after success.
	Invalidates []Key
	// Removes returns keys dropped from the cache after success, typically
	// the detail entry of a deleted record.
	Removes func(in In, out Out) []Key
	// PendingKey groups submissions that must not overlap. Submissions
	// with different keys run concurrently.
	PendingKey func(in In) string
	// OnSettled observes every outcome (success or failure).
	OnSettled func(ctx context.Context, in In, out Out, err error)
}

// Mutation is a write against the backend wired to cache invalidation.
type Mutation[In, Out any] struct {
	client *Client
	cfg    MutationConfig[In, Out]

	mu      sync.Mutex
	pending map[string]bool
}

// NewMutation binds cfg to the cache c.
func NewMutation[In, Out any](c *Client, cfg MutationConfig[In, Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{client: c, cfg: cfg, pending: make(map[string]bool)}
}

func (m *Mutation[In, Out]) pendingKey(in In) string {
	if m.cfg.PendingKey == nil {
		return ""
	}
	return m.cfg.PendingKey(in)
}

// IsPending reports whether a submission for in's pending key is in flight.
func (m *Mutation[In, Out]) IsPending(in In) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[m.pendingKey(in)]
}

// InFlight reports whether any submission is running.
func (m *Mutation[In, Out]) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending) > 0
}

// Mutate performs the write. On success every configured prefix is
// invalidated before Mutate returns, so a read issued afterwards never sees
// the pre-mutation data. Errors are returned unchanged.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	var zero Out
	pk := m.pendingKey(in)

	m.mu.Lock()
	if m.pending[pk] {
		m.mu.Unlock()
		return zero, ErrMutationPending
	}
	m.pending[pk] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, pk)
		m.mu.Unlock()
	}()

	out, err := m.cfg.Fn(ctx, in)
	if err != nil {
		m.client.logger.Error().Err(err).Msg("mutation failed")
		if m.cfg.OnSettled != nil {
			m.cfg.OnSettled(ctx, in, zero, err)
		}
		return zero, err
	}

	if m.cfg.Removes != nil {
		for _, k := range m.cfg.Removes(in, out) {
			m.client.Remove(k)
		}
	}
	for _, k := range m.cfg.Invalidates {
		m.client.Invalidate(k)
	}
	if m.cfg.OnSettled != nil {
		m.cfg.OnSettled(ctx, in, out, nil)
	}
	return out, nil
}
