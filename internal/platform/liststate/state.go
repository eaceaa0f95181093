package liststate

import (
	"maps"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Values holds the raw text of each filter box, keyed by field name.
type Values map[string]string

// Get returns the trimmed value for field.
func (v Values) Get(field string) string {
	return strings.TrimSpace(v[field])
}

// Float parses field as a number. Blank or malformed input is nil, which
// leaves a Range predicate inactive.
func (v Values) Float(field string) *float64 {
	f, err := strconv.ParseFloat(v.Get(field), 64)
	if err != nil {
		return nil
	}
	return &f
}

// Bool parses field as a flag; anything but true or false is nil.
func (v Values) Bool(field string) *bool {
	b, err := strconv.ParseBool(v.Get(field))
	if err != nil {
		return nil
	}
	return &b
}

// Key is a canonical encoding of the non-empty values.
func (v Values) Key() string {
	q := url.Values{}
	for k, val := range v {
		if s := strings.TrimSpace(val); s != "" {
			q.Set(k, s)
		}
	}
	return q.Encode()
}

// Empty reports whether every field is blank.
func (v Values) Empty() bool {
	return v.Key() == ""
}

// State is the filter boxes plus the current page of one list view.
type State struct {
	Filters Values `json:"filters"`
	Page    int    `json:"page"`
}

// SetFilter updates one field. Any change resets the page to 0 so the user
// never lands on a page the narrower result set no longer has.
func (s State) SetFilter(field, value string) State {
	if strings.TrimSpace(s.Filters[field]) == strings.TrimSpace(value) {
		return s
	}
	next := make(Values, len(s.Filters)+1)
	maps.Copy(next, s.Filters)
	next[field] = value
	return State{Filters: next, Page: 0}
}

// SetFilters replaces all fields, resetting the page when anything changed.
func (s State) SetFilters(v Values) State {
	if s.Filters.Key() == v.Key() {
		return s
	}
	return State{Filters: maps.Clone(v), Page: 0}
}

// SetPage moves to page n. Negative pages clamp to 0.
func (s State) SetPage(n int) State {
	if n < 0 {
		n = 0
	}
	s.Page = n
	return s
}

// Store keeps one State per (session, view).
type Store struct {
	mu     sync.Mutex
	states map[string]State
}

func NewStore() *Store {
	return &Store{states: make(map[string]State)}
}

func storeKey(session, view string) string {
	return session + "|" + view
}

// Get returns the saved state, or the zero State.
func (s *Store) Get(session, view string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[storeKey(session, view)]
}

// Put saves st.
func (s *Store) Put(session, view string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[storeKey(session, view)] = st
}

// Apply folds a request into the saved state: filters first (which may reset
// the page), then the requested page, which is honoured only when the
// filters did not change. A nil page keeps the current one.
func (s *Store) Apply(session, view string, filters Values, page *int) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(session, view)
	prev := s.states[key]
	next := prev.SetFilters(filters)
	if page != nil && next.Filters.Key() == prev.Filters.Key() {
		next = next.SetPage(*page)
	}
	s.states[key] = next
	return next
}

// Forget drops every view state of a session.
func (s *Store) Forget(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := session + "|"
	for k := range s.states {
		if strings.HasPrefix(k, prefix) {
			delete(s.states, k)
		}
	}
}
