package liststate

import (
	"strconv"
	"sync"
)

// Selector memoizes filter+paginate results keyed by the triple
// (collection version, filter key, page). The same triple always yields the
// same Page.
type Selector[T any] struct {
	mu       sync.Mutex
	pageSize int
	filter   func(rows []T, v Values) []T
	cache    map[string]Page[T]
	order    []string
	limit    int
}

// NewSelector creates a Selector. filter builds the view's predicates from
// the filter values and applies them.
func NewSelector[T any](pageSize int, filter func(rows []T, v Values) []T) *Selector[T] {
	return &Selector[T]{
		pageSize: pageSize,
		filter:   filter,
		cache:    make(map[string]Page[T]),
		limit:    256,
	}
}

// PageSize returns the fixed page size.
func (s *Selector[T]) PageSize() int { return s.pageSize }

// Select returns the visible page. version must change whenever rows does.
func (s *Selector[T]) Select(version uint64, rows []T, st State) Page[T] {
	key := strconv.FormatUint(version, 10) + "|" + st.Filters.Key() + "|" + strconv.Itoa(st.Page)

	s.mu.Lock()
	if p, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return p
	}
	s.mu.Unlock()

	p := Paginate(s.filter(rows, st.Filters), st.Page, s.pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[key]; !ok {
		s.cache[key] = p
		s.order = append(s.order, key)
		if len(s.order) > s.limit {
			delete(s.cache, s.order[0])
			s.order = s.order[1:]
		}
	}
	return p
}

// Len returns the number of memoized pages.
func (s *Selector[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}
