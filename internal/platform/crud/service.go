// Package crud wires one backend resource to the query cache, the audit trail
// and the standard list, detail, form and confirmation views.
package crud

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/audit"
	"github.com/practice/dashboard/internal/platform/query"
)

// Options configures a Service.
type Options[T any] struct {
	// Name keys the cache and the audit trail, e.g. "doctors".
	Name     string
	Resource *apiclient.Resource[T]
	Cache    *query.Client
	Audit    audit.Recorder
	// FetchSize is the page size used to fetch a whole collection.
	FetchSize int
	// Related names resources whose cached reads embed this one and go
	// stale with it.
	Related []string
	// Partition separates the cached lists of a collection nested under a
	// parent record, e.g. one doctor's time-offs.
	Partition string
	Logger    zerolog.Logger
}

// Change is an update of one record.
type Change struct {
	ID   string
	Body any
}

// Action is a feature-specific command on one record, such as
// /doctors/{id}/activate.
type Action struct {
	Method string
	ID     string
	Name   string
	Body   any
}

// Service is the cached data access for one resource. Reads go through the
// query cache; every write invalidates the resource and its related
// resources.
type Service[T any] struct {
	opts Options[T]

	create *query.Mutation[any, *T]
	update *query.Mutation[Change, *T]
	remove *query.Mutation[string, struct{}]
	action *query.Mutation[Action, *T]
	batch  *query.Mutation[Action, []T]
}

func NewService[T any](opts Options[T]) *Service[T] {
	if opts.FetchSize <= 0 {
		opts.FetchSize = 1000
	}
	s := &Service[T]{opts: opts}

	stale := []query.Key{query.ResourceKey(opts.Name)}
	for _, r := range opts.Related {
		stale = append(stale, query.ResourceKey(r))
	}
	res := opts.Resource
	rec := opts.Audit
	log := opts.Logger

	s.create = query.NewMutation(opts.Cache, query.MutationConfig[any, *T]{
		Fn: func(ctx context.Context, in any) (*T, error) {
			return res.Create(ctx, in)
		},
		Invalidates: stale,
		OnSettled:   audit.Settled[any, *T](rec, log, opts.Name, "create", nil),
	})
	s.update = query.NewMutation(opts.Cache, query.MutationConfig[Change, *T]{
		Fn: func(ctx context.Context, in Change) (*T, error) {
			return res.Update(ctx, in.ID, in.Body)
		},
		Invalidates: stale,
		PendingKey:  func(in Change) string { return in.ID },
		OnSettled: audit.Settled(rec, log, opts.Name, "update", func(in Change, _ *T) string {
			return in.ID
		}),
	})
	s.remove = query.NewMutation(opts.Cache, query.MutationConfig[string, struct{}]{
		Fn: func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, res.Delete(ctx, id)
		},
		Invalidates: stale,
		Removes: func(id string, _ struct{}) []query.Key {
			return []query.Key{query.DetailKey(opts.Name, detailID(opts.Partition, id))}
		},
		PendingKey: func(id string) string { return id },
		OnSettled: audit.Settled(rec, log, opts.Name, "delete", func(id string, _ struct{}) string {
			return id
		}),
	})
	s.action = query.NewMutation(opts.Cache, query.MutationConfig[Action, *T]{
		Fn: func(ctx context.Context, a Action) (*T, error) {
			return res.Action(ctx, a.Method, a.ID, a.Name, a.Body)
		},
		Invalidates: stale,
		PendingKey:  func(a Action) string { return a.ID + "/" + a.Name },
		OnSettled: func(ctx context.Context, a Action, out *T, err error) {
			audit.Settled(rec, log, opts.Name, a.Name, func(a Action, _ *T) string { return a.ID })(ctx, a, out, err)
		},
	})
	s.batch = query.NewMutation(opts.Cache, query.MutationConfig[Action, []T]{
		Fn: func(ctx context.Context, a Action) ([]T, error) {
			return res.CollectionAction(ctx, a.Method, a.Name, a.Body)
		},
		Invalidates: stale,
		PendingKey:  func(a Action) string { return "collection/" + a.Name },
		OnSettled: func(ctx context.Context, a Action, out []T, err error) {
			audit.Settled[Action, []T](rec, log, opts.Name, a.Name, nil)(ctx, a, out, err)
		},
	})
	return s
}

func (s *Service[T]) Name() string { return s.opts.Name }

func (s *Service[T]) Resource() *apiclient.Resource[T] { return s.opts.Resource }

func (s *Service[T]) Cache() *query.Client { return s.opts.Cache }

// scope keeps reads made with one session's credentials out of every other
// session's views.
func scope(ctx context.Context, k query.Key) query.Key {
	if a, ok := appctx.FromContext(ctx); ok {
		return k.Scoped(a.SessionID)
	}
	return k
}

// ListKey is the cache key for the collection filtered by params.
func (s *Service[T]) ListKey(ctx context.Context, params apiclient.Params) query.Key {
	if s.opts.Partition != "" {
		params = params.With("parent", s.opts.Partition)
	}
	return scope(ctx, query.ListKey(s.opts.Name, params))
}

// DetailKey is the cache key for one record.
func (s *Service[T]) DetailKey(ctx context.Context, id string) query.Key {
	return scope(ctx, query.DetailKey(s.opts.Name, detailID(s.opts.Partition, id)))
}

func detailID(partition, id string) string {
	if partition == "" {
		return id
	}
	return partition + "/" + id
}

// All fetches the whole collection matching params in one request, using
// the configured fetch size.
func (s *Service[T]) All(ctx context.Context, params apiclient.Params) query.Result[[]T] {
	return query.Fetch(ctx, s.opts.Cache, s.ListKey(ctx, params), func(ctx context.Context) ([]T, error) {
		p := apiclient.Paged(0, s.opts.FetchSize)
		for k, v := range params {
			p = p.With(k, v)
		}
		page, err := s.opts.Resource.List(ctx, p)
		if err != nil {
			return nil, err
		}
		return page.Content, nil
	})
}

// Get fetches one record.
func (s *Service[T]) Get(ctx context.Context, id string) query.Result[*T] {
	return query.Fetch(ctx, s.opts.Cache, s.DetailKey(ctx, id), func(ctx context.Context) (*T, error) {
		return s.opts.Resource.Get(ctx, id)
	})
}

// Peek returns the cached record without a request.
func (s *Service[T]) Peek(ctx context.Context, id string) query.Result[*T] {
	return query.Peek[*T](s.opts.Cache, s.DetailKey(ctx, id))
}

func (s *Service[T]) Create(ctx context.Context, in any) (*T, error) {
	return s.create.Mutate(ctx, in)
}

func (s *Service[T]) Update(ctx context.Context, id string, in any) (*T, error) {
	return s.update.Mutate(ctx, Change{ID: id, Body: in})
}

func (s *Service[T]) Delete(ctx context.Context, id string) error {
	_, err := s.remove.Mutate(ctx, id)
	return err
}

// Act runs a feature-specific command such as activate or check-in.
func (s *Service[T]) Act(ctx context.Context, a Action) (*T, error) {
	return s.action.Mutate(ctx, a)
}

// ActOnCollection runs a command on the whole collection, such as a batch
// create. The ID of a is ignored.
func (s *Service[T]) ActOnCollection(ctx context.Context, a Action) ([]T, error) {
	return s.batch.Mutate(ctx, a)
}

// Pending reports whether an update or delete of id is in flight.
func (s *Service[T]) Pending(id string) bool {
	return s.update.IsPending(Change{ID: id}) || s.remove.IsPending(id)
}

// Busy reports whether any write of this service is in flight.
func (s *Service[T]) Busy() bool {
	return s.create.InFlight() || s.update.InFlight() || s.remove.InFlight() ||
		s.action.InFlight() || s.batch.InFlight()
}

// Invalidate marks every cached read of the resource stale.
func (s *Service[T]) Invalidate() int {
	return s.opts.Cache.Invalidate(query.ResourceKey(s.opts.Name))
}
