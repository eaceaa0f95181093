// Package liststate derives the rows a list view shows from one fetched
// collection and a little UI state: filter fields and the current page. It
// performs no I/O and every function is pure.
package liststate

import (
	"strings"
)

// Predicate is one filter field. An inactive predicate (its input box is
// empty) does not take part in filtering.
type Predicate[T any] struct {
	Field  string
	Active bool
	Match  func(row T) bool
}

// Text matches rows whose field contains q, case-insensitively. Blank q is
// inactive.
func Text[T any](field, q string, get func(T) string) Predicate[T] {
	needle := strings.ToLower(strings.TrimSpace(q))
	return Predicate[T]{
		Field:  field,
		Active: needle != "",
		Match: func(row T) bool {
			return strings.Contains(strings.ToLower(get(row)), needle)
		},
	}
}

// AnyText matches rows where any of the getters contains q.
func AnyText[T any](field, q string, gets ...func(T) string) Predicate[T] {
	needle := strings.ToLower(strings.TrimSpace(q))
	return Predicate[T]{
		Field:  field,
		Active: needle != "",
		Match: func(row T) bool {
			for _, get := range gets {
				if strings.Contains(strings.ToLower(get(row)), needle) {
					return true
				}
			}
			return false
		},
	}
}

// Enum matches rows whose field equals v exactly. Blank v is inactive.
func Enum[T any](field, v string, get func(T) string) Predicate[T] {
	v = strings.TrimSpace(v)
	return Predicate[T]{
		Field:  field,
		Active: v != "",
		Match: func(row T) bool {
			return get(row) == v
		},
	}
}

// Range matches rows whose value lies within [lo, hi]. Either bound may be
// nil; both nil is inactive.
func Range[T any](field string, lo, hi *float64, get func(T) float64) Predicate[T] {
	return Predicate[T]{
		Field:  field,
		Active: lo != nil || hi != nil,
		Match: func(row T) bool {
			v := get(row)
			if lo != nil && v < *lo {
				return false
			}
			if hi != nil && v > *hi {
				return false
			}
			return true
		},
	}
}

// Bool matches rows whose flag equals *want. Nil is inactive.
func Bool[T any](field string, want *bool, get func(T) bool) Predicate[T] {
	return Predicate[T]{
		Field:  field,
		Active: want != nil,
		Match: func(row T) bool {
			return get(row) == *want
		},
	}
}

// Filter keeps rows that pass every active predicate. With no active
// predicate it returns rows itself, same backing array and order.
func Filter[T any](rows []T, preds ...Predicate[T]) []T {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p.Active {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return rows
	}

	out := make([]T, 0, len(rows))
rowLoop:
	for _, row := range rows {
		for _, p := range active {
			if !p.Match(row) {
				continue rowLoop
			}
		}
		out = append(out, row)
	}
	return out
}
