package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Resource is the CRUD contract shared by every remote data service:
// List, Get, Create, Update, Delete plus named actions such as
// /{id}/activate. Responses are normalized to Page[T] or *T.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a resource to a collection path such as "/api/v1/doctors".
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: strings.TrimRight(path, "/")}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string { return r.path }

// Client returns the underlying client for feature-specific calls.
func (r *Resource[T]) Client() *Client { return r.client }

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List fetches one page of the collection.
func (r *Resource[T]) List(ctx context.Context, params Params) (*Page[T], error) {
	raw, err := r.client.DoRaw(ctx, http.MethodGet, r.path, params, nil)
	if err != nil {
		return nil, err
	}
	return DecodePage[T](raw)
}

// Get fetches a single record.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := r.client.DoRaw(ctx, http.MethodGet, r.itemPath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return DecodeOne[T](raw)
}

// Create posts a new record and returns what the server stored.
func (r *Resource[T]) Create(ctx context.Context, in any) (*T, error) {
	raw, err := r.client.DoRaw(ctx, http.MethodPost, r.path, nil, in)
	if err != nil {
		return nil, err
	}
	return DecodeOne[T](raw)
}

// Update replaces a record.
func (r *Resource[T]) Update(ctx context.Context, id string, in any) (*T, error) {
	raw, err := r.client.DoRaw(ctx, http.MethodPut, r.itemPath(id), nil, in)
	if err != nil {
		return nil, err
	}
	return DecodeOne[T](raw)
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.client.DoRaw(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
	return err
}

// Action invokes a sub-operation on one record, e.g.
// PATCH /api/v1/doctors/{id}/activate.
func (r *Resource[T]) Action(ctx context.Context, method, id, action string, body any) (*T, error) {
	raw, err := r.client.DoRaw(ctx, method, r.itemPath(id)+"/"+action, nil, body)
	if err != nil {
		return nil, err
	}
	return DecodeOne[T](raw)
}

// CollectionAction invokes a sub-operation on the whole collection, e.g.
// POST /api/v1/sessions/batch, and decodes the response as a list.
func (r *Resource[T]) CollectionAction(ctx context.Context, method, action string, body any) ([]T, error) {
	raw, err := r.client.DoRaw(ctx, method, r.path+"/"+action, nil, body)
	if err != nil {
		return nil, err
	}
	page, err := DecodePage[T](raw)
	if err != nil {
		return nil, err
	}
	return page.Content, nil
}
