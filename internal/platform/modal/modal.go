// Package modal holds the confirmation and error dialogs a session has open.
// A dialog never performs network I/O itself: confirming it runs the callback
// supplied by the view that opened it.
package modal

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/practice/dashboard/internal/platform/apiclient"
)

// Kind is the purpose of a dialog.
type Kind string

const (
	KindDelete Kind = "delete"
	KindToggle Kind = "toggle"
	KindUpdate Kind = "update"
	KindCancel Kind = "cancel"
	KindError  Kind = "error"
)

var (
	ErrNotFound = errors.New("confirmation not found or expired")
	ErrBusy     = errors.New("confirmation is already being processed")
	ErrNotError = errors.New("only error dialogs can be acknowledged")
)

// Target is the record a dialog applies to.
type Target struct {
	Resource string `json:"resource"`
	ID       string `json:"id,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// Request parameterizes a dialog.
type Request struct {
	Kind        Kind
	Title       string
	Description string
	Target      Target
}

// Dialog is the rendered state of an open dialog.
type Dialog struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Target      Target    `json:"target"`
	Error       string    `json:"error,omitempty"`
	Pending     bool      `json:"pending"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Callback is the action a confirm runs.
type Callback func(ctx context.Context) (any, error)

type record struct {
	dialog   Dialog
	owner    string
	callback Callback
}

// Store keeps open dialogs in memory, keyed by id and owned by a session.
type Store struct {
	mu      sync.Mutex
	dialogs map[string]*record
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewStore creates a Store whose dialogs expire after ttl.
func NewStore(ttl time.Duration, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{
		dialogs: make(map[string]*record),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Open registers a dialog for owner. Nothing runs until Confirm.
func (s *Store) Open(owner string, req Request, cb Callback) Dialog {
	now := s.now()
	d := Dialog{
		ID:          uuid.New().String(),
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		Target:      req.Target,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	s.mu.Lock()
	s.dialogs[d.ID] = &record{dialog: d, owner: owner, callback: cb}
	s.mu.Unlock()

	s.logger.Debug().
		Str("dialog_id", d.ID).
		Str("kind", string(d.Kind)).
		Str("resource", d.Target.Resource).
		Str("target_id", d.Target.ID).
		Msg("dialog opened")
	return d
}

// OpenError registers an error-acknowledgement dialog describing err.
func (s *Store) OpenError(owner, title string, err error) Dialog {
	return s.Open(owner, Request{Kind: KindError, Title: title, Description: apiclient.Message(err)}, nil)
}

// lookup returns the live record; the caller holds s.mu.
func (s *Store) lookup(owner, id string) (*record, error) {
	r, ok := s.dialogs[id]
	if !ok || r.owner != owner {
		return nil, ErrNotFound
	}
	if s.now().After(r.dialog.ExpiresAt) {
		delete(s.dialogs, id)
		return nil, ErrNotFound
	}
	return r, nil
}

// Get returns an open dialog.
func (s *Store) Get(owner, id string) (Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.lookup(owner, id)
	if err != nil {
		return Dialog{}, err
	}
	return r.dialog, nil
}

// List returns owner's open dialogs, oldest first.
func (s *Store) List(owner string) []Dialog {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]Dialog, 0)
	for _, r := range s.dialogs {
		if r.owner == owner && !now.After(r.dialog.ExpiresAt) {
			out = append(out, r.dialog)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Confirm runs the dialog's callback and closes it on success. On failure
// the dialog stays open carrying the error message, and the error is
// returned so the caller can render it.
func (s *Store) Confirm(ctx context.Context, owner, id string) (any, error) {
	s.mu.Lock()
	r, err := s.lookup(owner, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if r.dialog.Pending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if r.callback == nil {
		delete(s.dialogs, id)
		s.mu.Unlock()
		return nil, nil
	}
	r.dialog.Pending = true
	r.dialog.Error = ""
	cb := r.callback
	s.mu.Unlock()

	out, cbErr := cb(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cbErr != nil {
		r.dialog.Pending = false
		r.dialog.Error = apiclient.Message(cbErr)
		s.logger.Warn().Err(cbErr).Str("dialog_id", id).Msg("confirmation failed")
		return nil, cbErr
	}
	delete(s.dialogs, id)
	s.logger.Debug().Str("dialog_id", id).Msg("dialog confirmed")
	return out, nil
}

// Cancel closes a dialog without running its callback.
func (s *Store) Cancel(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.lookup(owner, id)
	if err != nil {
		return err
	}
	if r.dialog.Pending {
		return ErrBusy
	}
	delete(s.dialogs, id)
	return nil
}

// Acknowledge closes an error dialog.
func (s *Store) Acknowledge(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.lookup(owner, id)
	if err != nil {
		return err
	}
	if r.dialog.Kind != KindError {
		return ErrNotError
	}
	delete(s.dialogs, id)
	return nil
}

// Len returns the number of stored dialogs, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dialogs)
}

// StartCleanup periodically drops expired dialogs until ctx is cancelled.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, r := range s.dialogs {
		if now.After(r.dialog.ExpiresAt) && !r.dialog.Pending {
			delete(s.dialogs, id)
		}
	}
}
