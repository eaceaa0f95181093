package apiclient

import (
	"net/url"
	"strconv"
	"strings"
)

// Params is a set of query parameters. Empty values are never stored, so
// optional filters disappear from the query string instead of being sent
// blank. Encode is canonical (keys sorted), which lets the query cache use the
// encoded form as part of its keys.
type Params map[string]string

// Paged returns Params that always carry page and size.
func Paged(page, size int) Params {
	return Params{
		"page": strconv.Itoa(page),
		"size": strconv.Itoa(size),
	}
}

// With returns a copy of p with key set to value, or with key removed when
// value is blank.
func (p Params) With(key, value string) Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	if strings.TrimSpace(value) == "" {
		delete(out, key)
		return out
	}
	out[key] = value
	return out
}

// WithInt is With for integer values. Zero is a real value and is kept.
func (p Params) WithInt(key string, value int) Params {
	return p.With(key, strconv.Itoa(value))
}

// Get returns the value stored under key.
func (p Params) Get(key string) string {
	return p[key]
}

// Encode renders p as a query string with keys in sorted order.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range p {
		values.Set(k, v)
	}
	return values.Encode()
}
