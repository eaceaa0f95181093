// Package query caches remote reads under structured keys and keeps them
// honest: identical concurrent reads share one request, and every successful
// mutation invalidates the reads it may have made stale.
package query

import (
	"strings"

	"github.com/practice/dashboard/internal/platform/apiclient"
)

const (
	KindList   = "list"
	KindDetail = "detail"
)

// Key identifies a cached read. Empty fields act as wildcards when a Key is
// used as an invalidation prefix.
type Key struct {
	Resource string
	Kind     string
	Params   string
	Scope    string
}

// ListKey keys a collection read by its canonical query string.
func ListKey(resource string, params apiclient.Params) Key {
	return Key{Resource: resource, Kind: KindList, Params: params.Encode()}
}

// DetailKey keys a single-record read.
func DetailKey(resource, id string) Key {
	return Key{Resource: resource, Kind: KindDetail, Params: id}
}

// ResourceKey matches every cached read of a resource.
func ResourceKey(resource string) Key {
	return Key{Resource: resource}
}

// Scoped returns k restricted to one credential scope (a session).
func (k Key) Scoped(scope string) Key {
	k.Scope = scope
	return k
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Resource)
	b.WriteByte(':')
	b.WriteString(k.Kind)
	b.WriteByte(':')
	b.WriteString(k.Params)
	if k.Scope != "" {
		b.WriteByte('@')
		b.WriteString(k.Scope)
	}
	return b.String()
}

// Matches reports whether k falls under prefix.
func (k Key) Matches(prefix Key) bool {
	if prefix.Resource != "" && prefix.Resource != k.Resource {
		return false
	}
	if prefix.Kind != "" && prefix.Kind != k.Kind {
		return false
	}
	if prefix.Params != "" && prefix.Params != k.Params {
		return false
	}
	if prefix.Scope != "" && prefix.Scope != k.Scope {
		return false
	}
	return true
}
