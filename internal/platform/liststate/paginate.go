package liststate

// Page is the visible slice of a filtered collection.
type Page[T any] struct {
	Rows       []T `json:"rows"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool { return p.Page+1 < p.TotalPages }

// HasPrevious reports whether an earlier page exists.
func (p Page[T]) HasPrevious() bool { return p.Page > 0 && p.TotalPages > 0 }

// TotalPages is ceil(n / size). A non-positive size yields zero pages.
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate returns rows[page*size : (page+1)*size]. Pages outside
// [0, TotalPages-1] yield an empty slice, never an error.
func Paginate[T any](rows []T, page, size int) Page[T] {
	p := Page[T]{
		Rows:       []T{},
		Page:       page,
		PageSize:   size,
		TotalPages: TotalPages(len(rows), size),
		Total:      len(rows),
	}
	if page < 0 || page >= p.TotalPages {
		return p
	}
	start := page * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	p.Rows = rows[start:end:end]
	return p
}
