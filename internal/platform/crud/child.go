package crud

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/practice/dashboard/internal/platform/apiclient"
)

// maxParents bounds the per-parent services a Children keeps. Cached reads
// live in the query client, so an evicted service loses nothing.
const maxParents = 256

// Children is a collection nested under a parent record, such as
// /timings/doctors/{doctorId}/time-offs. Every parent shares one cache
// resource name, so a write under any parent invalidates them all.
type Children[T any] struct {
	deps    Deps
	name    string
	pattern string
	related []string
	limit   int

	mu       sync.Mutex
	tick     uint64
	services map[string]*child[T]
}

type child[T any] struct {
	svc  *Service[T]
	used uint64
}

// NewChildren binds a nested collection. pattern holds one %s for the
// parent id.
func NewChildren[T any](d Deps, name, pattern string, related ...string) *Children[T] {
	return &Children[T]{
		deps:     d,
		name:     name,
		pattern:  pattern,
		related:  related,
		limit:    maxParents,
		services: make(map[string]*child[T]),
	}
}

func (c *Children[T]) Name() string { return c.name }

// Len returns the number of parents with a live service.
func (c *Children[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.services)
}

// Of returns the service for one parent's collection.
func (c *Children[T]) Of(parentID string) *Service[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	if ch, ok := c.services[parentID]; ok {
		ch.used = c.tick
		return ch.svc
	}
	c.evict()
	d := c.deps
	s := NewService(Options[T]{
		Name:      c.name,
		Resource:  apiclient.NewResource[T](d.Client, fmt.Sprintf(c.pattern, url.PathEscape(parentID))),
		Cache:     d.Cache,
		Audit:     d.Audit,
		FetchSize: d.FetchSize,
		Related:   c.related,
		Partition: parentID,
		Logger:    d.Logger.With().Str("resource", c.name).Str("parent", parentID).Logger(),
	})
	c.services[parentID] = &child[T]{svc: s, used: c.tick}
	return s
}

// evict drops least recently used idle services until there is room for one
// more. A service with a write in flight is kept. Callers hold c.mu.
func (c *Children[T]) evict() {
	for len(c.services) >= c.limit {
		var (
			oldest string
			at     uint64
			found  bool
		)
		for id, ch := range c.services {
			if ch.svc.Busy() {
				continue
			}
			if !found || ch.used < at {
				oldest, at, found = id, ch.used, true
			}
		}
		if !found {
			return
		}
		delete(c.services, oldest)
	}
}
