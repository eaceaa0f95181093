// Package crudtest provides an in-memory backend REST API and request
// helpers for testing feature handlers end to end.
package crudtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/audit"
	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/liststate"
	"github.com/practice/dashboard/internal/platform/modal"
	"github.com/practice/dashboard/internal/platform/query"
	"github.com/practice/dashboard/internal/platform/view"
)

// Record is one stored backend record.
type Record = map[string]any

// Call is one request the backend received.
type Call struct {
	Method string
	Path   string
	Query  string
	Body   Record
}

// Backend speaks the dashboard's REST conventions over registered
// collections: paged lists wrapped in {"data": {...}}, items at
// /collection/{id}, and named actions at /collection/{id}/{action}.
type Backend struct {
	mu          sync.Mutex
	collections map[string]map[string]Record
	actions     map[string]func(Record)
	routes      map[string]http.HandlerFunc
	failures    map[string]failure
	calls       []Call
	next        int
}

type failure struct {
	status  int
	message string
}

// NewBackend starts a backend server that is closed with the test.
func NewBackend(t *testing.T) (*Backend, *httptest.Server) {
	t.Helper()
	b := &Backend{
		collections: make(map[string]map[string]Record),
		actions:     make(map[string]func(Record)),
		routes:      make(map[string]http.HandlerFunc),
		failures:    make(map[string]failure),
		next:        100,
	}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

// Seed registers path as a collection holding records. Records without an
// id get one.
func (b *Backend) Seed(path string, records ...Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	col := b.collection(path)
	for _, r := range records {
		rec := Record{}
		for k, v := range r {
			rec[k] = v
		}
		id := fmt.Sprint(rec["id"])
		if rec["id"] == nil {
			b.next++
			id = strconv.Itoa(b.next)
		}
		rec["id"] = id
		col[id] = rec
	}
}

func (b *Backend) collection(path string) map[string]Record {
	path = strings.TrimRight(path, "/")
	col, ok := b.collections[path]
	if !ok {
		col = make(map[string]Record)
		b.collections[path] = col
	}
	return col
}

// Action registers a named command on every record of path.
func (b *Backend) Action(path, name string, apply func(Record)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collection(path)
	b.actions[strings.TrimRight(path, "/")+"#"+name] = apply
}

// Handle overrides one method and path with a custom handler.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

// Fail makes every request for method and path answer status with message.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, message: message}
}

// Calls returns how many requests matched method and path prefix.
func (b *Backend) Calls(method, prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Method == method && strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

// Last returns the most recent call matching method and path prefix.
func (b *Backend) Last(method, prefix string) (Call, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.calls) - 1; i >= 0; i-- {
		c := b.calls[i]
		if c.Method == method && strings.HasPrefix(c.Path, prefix) {
			return c, true
		}
	}
	return Call{}, false
}

// Get returns a copy of one stored record.
func (b *Backend) Get(path, id string) (Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.collections[strings.TrimRight(path, "/")][id]
	if !ok {
		return nil, false
	}
	out := Record{}
	for k, v := range rec {
		out[k] = v
	}
	return out, true
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body Record
	raw, _ := io.ReadAll(r.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	b.mu.Lock()
	b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
	if f, ok := b.failures[r.Method+" "+r.URL.Path]; ok {
		b.mu.Unlock()
		writeJSON(w, f.status, map[string]string{"message": f.message})
		return
	}
	if h, ok := b.routes[r.Method+" "+r.URL.Path]; ok {
		b.mu.Unlock()
		h(w, r)
		return
	}
	defer b.mu.Unlock()

	path := strings.TrimRight(r.URL.Path, "/")
	if col, ok := b.collections[path]; ok {
		b.serveCollection(w, r, col, body)
		return
	}

	base, rest := splitLast(path)
	if col, ok := b.collections[base]; ok {
		b.serveItem(w, r, col, rest, body)
		return
	}
	itemPath, action := splitLast(path)
	base, id := splitLast(itemPath)
	if col, ok := b.collections[base]; ok {
		rec, found := col[id]
		apply, known := b.actions[base+"#"+action]
		switch {
		case !found:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Record not found"})
		case !known:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Unknown action " + action})
		default:
			apply(rec)
			writeJSON(w, http.StatusOK, map[string]any{"data": rec})
		}
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "No route for " + path})
}

func (b *Backend) serveCollection(w http.ResponseWriter, r *http.Request, col map[string]Record, body Record) {
	switch r.Method {
	case http.MethodGet:
		rows := make([]Record, 0, len(col))
		for _, rec := range col {
			if matches(rec, r) {
				rows = append(rows, rec)
			}
		}
		sort.Slice(rows, func(i, j int) bool { return lessID(rows[i]["id"], rows[j]["id"]) })
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"content":       rows,
			"totalElements": len(rows),
			"totalPages":    1,
		}})
	case http.MethodPost:
		b.next++
		rec := Record{}
		for k, v := range body {
			rec[k] = v
		}
		rec["id"] = strconv.Itoa(b.next)
		col[rec["id"].(string)] = rec
		writeJSON(w, http.StatusCreated, map[string]any{"data": rec})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
	}
}

func (b *Backend) serveItem(w http.ResponseWriter, r *http.Request, col map[string]Record, id string, body Record) {
	rec, ok := col[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Record not found"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"data": rec})
	case http.MethodPut, http.MethodPatch:
		for k, v := range body {
			rec[k] = v
		}
		rec["id"] = id
		writeJSON(w, http.StatusOK, map[string]any{"data": rec})
	case http.MethodDelete:
		delete(col, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
	}
}

// matches applies query filters other than paging as exact field matches.
func matches(rec Record, r *http.Request) bool {
	for k, vs := range r.URL.Query() {
		if k == "page" || k == "size" || len(vs) == 0 {
			continue
		}
		if v, ok := rec[k]; ok && fmt.Sprint(v) != vs[0] {
			return false
		}
	}
	return true
}

func lessID(a, b any) bool {
	x, errX := strconv.Atoi(fmt.Sprint(a))
	y, errY := strconv.Atoi(fmt.Sprint(b))
	if errX == nil && errY == nil {
		return x < y
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func splitLast(path string) (string, string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewDeps builds feature dependencies against baseURL with an in-memory
// audit trail.
func NewDeps(baseURL string) crud.Deps {
	return crud.Deps{
		Client:    apiclient.New(baseURL),
		Cache:     query.NewClient(query.Options{StaleTime: time.Minute}),
		Audit:     audit.NewLogStore(zerolog.Nop(), 100),
		Modals:    modal.NewStore(time.Minute, zerolog.Nop()),
		Views:     liststate.NewStore(),
		PageSize:  10,
		FetchSize: 1000,
		Logger:    zerolog.Nop(),
	}
}

// NewServer returns an echo instance whose /ui group runs as session a and
// serves confirmations.
func NewServer(d crud.Deps, a appctx.Context) (*echo.Echo, *echo.Group) {
	e := echo.New()
	ui := e.Group("/ui", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(appctx.WithContext(c.Request().Context(), a)))
			return next(c)
		}
	})
	view.NewConfirmationHandler(d.Modals).RegisterRoutes(ui)
	return e, ui
}

// Do serves one request. A non-empty body is sent as JSON.
func Do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a response body into v.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// Accepted asserts rec is a 202 confirmation hand-off and returns it.
func Accepted(t *testing.T, rec *httptest.ResponseRecorder) view.Confirmation {
	t.Helper()
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var c view.Confirmation
	Decode(t, rec, &c)
	return c
}

// Confirm runs the dialog of a 202 hand-off and returns the confirm response.
func Confirm(t *testing.T, e *echo.Echo, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	t.Helper()
	return Do(e, http.MethodPost, Accepted(t, rec).Confirm, "")
}

// ListPage is the part of a list view most tests inspect.
type ListPage[T any] struct {
	State string `json:"state"`
	Stale bool   `json:"stale"`
	Page  struct {
		Rows       []T `json:"rows"`
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
		Total      int `json:"total"`
	} `json:"page"`
	Error *view.Error `json:"error"`
}

// List fetches a list view and decodes it.
func List[T any](t *testing.T, e *echo.Echo, target string) ListPage[T] {
	t.Helper()
	rec := Do(e, http.MethodGet, target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d: %s", target, rec.Code, rec.Body.String())
	}
	var out ListPage[T]
	Decode(t, rec, &out)
	return out
}
