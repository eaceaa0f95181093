package query

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Status is the render state of a read.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

// Result is what a view sees for one read. On error, Data holds the last
// successful value (if any) and Stale is set, so a view can never mistake it
// for fresh data.
type Result[T any] struct {
	Data      T
	Err       error
	Status    Status
	Stale     bool
	Version   uint64
	UpdatedAt time.Time
}

func (r Result[T]) IsLoading() bool { return r.Status == StatusLoading }

type entry struct {
	key         Key
	data        any
	hasData     bool
	err         error
	updatedAt   time.Time
	version     uint64
	gen         uint64
	invalidated bool
	inflight    int
}

// Options tunes a Client.
type Options struct {
	// StaleTime is how long a successful read is served without refetching.
	StaleTime time.Duration
	// GCTime is how long an unused entry survives StartCleanup sweeps.
	GCTime time.Duration
	// Retry is the number of extra attempts for a failed read. Zero by
	// default: most failures are permanent 4xx responses.
	Retry  int
	Logger zerolog.Logger
}

// Client is the shared query cache.
type Client struct {
	mu          sync.Mutex
	entries     map[string]*entry
	generations map[string]uint64
	epoch       uint64
	seq         uint64
	group       singleflight.Group

	staleTime time.Duration
	gcTime    time.Duration
	retry     int
	now       func() time.Time
	logger    zerolog.Logger
}

// NewClient creates an empty cache.
func NewClient(opts Options) *Client {
	if opts.GCTime <= 0 {
		opts.GCTime = 2 * opts.StaleTime
	}
	if opts.GCTime <= 0 {
		opts.GCTime = 10 * time.Minute
	}
	return &Client{
		entries:     make(map[string]*entry),
		generations: make(map[string]uint64),
		staleTime:   opts.StaleTime,
		gcTime:      opts.GCTime,
		retry:       opts.Retry,
		now:         time.Now,
		logger:      opts.Logger,
	}
}

func (c *Client) fresh(e *entry) bool {
	if e == nil || !e.hasData || e.err != nil || e.invalidated {
		return false
	}
	return c.now().Sub(e.updatedAt) < c.staleTime
}

// Fetch returns the cached value for key when it is fresh, and otherwise runs
// fn. Concurrent Fetch calls for the same key and resource generation share a
// single fn invocation; a call made after an invalidation never joins a read
// that started before it.
//
// A read that started before an invalidation of its resource still returns
// its value to the callers that were waiting for it, flagged stale, but the
// value is not cached: the next Fetch goes back to the network.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error)) Result[T] {
	id := key.String()

	c.mu.Lock()
	if e := c.entries[id]; c.fresh(e) {
		if v, ok := e.data.(T); ok {
			res := Result[T]{Data: v, Status: StatusSuccess, Version: e.version, UpdatedAt: e.updatedAt}
			c.mu.Unlock()
			return res
		}
	}
	gen := c.generation(key.Resource)
	c.mu.Unlock()

	// Navigating away does not cancel a read that other callers may share.
	flightCtx := context.WithoutCancel(ctx)

	out, err, _ := c.group.Do(id+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		c.mu.Lock()
		e := c.entries[id]
		if e == nil {
			e = &entry{key: key}
			c.entries[id] = e
		}
		e.inflight++
		c.mu.Unlock()

		var (
			v   T
			err error
		)
		for attempt := 0; attempt <= c.retry; attempt++ {
			v, err = fn(flightCtx)
			if err == nil {
				break
			}
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		e.inflight--
		if err != nil {
			if e.gen <= gen {
				e.err = err
			}
			c.logger.Debug().Err(err).Str("key", id).Msg("query failed")
			return nil, err
		}
		c.seq++
		res := Result[T]{Data: v, Status: StatusSuccess, Version: c.seq, UpdatedAt: c.now()}
		switch {
		case c.generation(key.Resource) != gen:
			// Invalidated mid-flight. Never replace data read after the
			// invalidation; otherwise keep the value, marked stale.
			res.Stale = true
			if !e.hasData {
				e.data, e.hasData, e.err = v, true, nil
				e.gen, e.version, e.updatedAt = gen, res.Version, res.UpdatedAt
				e.invalidated = true
			}
		case e.gen <= gen:
			e.data, e.hasData, e.err = v, true, nil
			e.gen, e.version, e.updatedAt = gen, res.Version, res.UpdatedAt
			e.invalidated = false
		}
		return res, nil
	})

	if err != nil {
		res := Peek[T](c, key)
		if res.Err == nil {
			res.Status, res.Err, res.Stale = StatusError, err, res.Status == StatusSuccess
		}
		return res
	}
	if res, ok := out.(Result[T]); ok {
		return res
	}
	return Peek[T](c, key)
}

// generation changes whenever reads of resource may have gone stale.
// Callers hold c.mu.
func (c *Client) generation(resource string) uint64 {
	return c.epoch + c.generations[resource]
}

// Peek reports the current state of key without touching the network.
func Peek[T any](c *Client, key Key) Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[key.String()]
	if e == nil {
		return Result[T]{Status: StatusIdle}
	}

	var res Result[T]
	if v, ok := e.data.(T); ok && e.hasData {
		res.Data = v
		res.Version = e.version
		res.UpdatedAt = e.updatedAt
	}
	switch {
	case e.err != nil:
		res.Status = StatusError
		res.Err = e.err
		res.Stale = e.hasData
	case e.inflight > 0 && !e.hasData:
		res.Status = StatusLoading
	case e.hasData:
		res.Status = StatusSuccess
		res.Stale = e.invalidated
	default:
		res.Status = StatusIdle
	}
	return res
}

// Refetch marks key stale and reads it again.
func Refetch[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error)) Result[T] {
	c.mu.Lock()
	if e := c.entries[key.String()]; e != nil {
		e.invalidated = true
	}
	c.mu.Unlock()
	return Fetch(ctx, c, key, fn)
}

// Invalidate marks every entry under prefix stale and returns how many were
// touched. In-flight reads of the prefix's resource will not be cached.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix.Resource != "" {
		c.generations[prefix.Resource]++
	} else {
		c.epoch++
	}

	n := 0
	for _, e := range c.entries {
		if e.key.Matches(prefix) {
			e.invalidated = true
			n++
		}
	}
	c.logger.Debug().Str("prefix", prefix.String()).Int("entries", n).Msg("query cache invalidated")
	return n
}

// Remove drops every entry under prefix.
func (c *Client) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix.Resource != "" {
		c.generations[prefix.Resource]++
	} else {
		c.epoch++
	}
	n := 0
	for id, e := range c.entries {
		if e.key.Matches(prefix) && e.inflight == 0 {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of cached entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartCleanup runs a background goroutine that drops entries untouched for
// longer than GCTime. It stops when ctx is cancelled.
func (c *Client) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

func (c *Client) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for id, e := range c.entries {
		if e.inflight == 0 && now.Sub(e.updatedAt) > c.gcTime {
			delete(c.entries, id)
		}
	}
}
