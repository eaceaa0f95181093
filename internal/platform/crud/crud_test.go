package crud

import (
	"context"
	"encoding/json"
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
	"github.com/practice/dashboard/internal/platform/liststate"
	"github.com/practice/dashboard/internal/platform/modal"
	"github.com/practice/dashboard/internal/platform/query"
	"github.com/practice/dashboard/internal/platform/view"
)

type widget struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type widgetInput struct {
	Name string `json:"name" validate:"required,min=2"`
}

// backend is an in-memory REST collection that counts requests per method.
type backend struct {
	mu      sync.Mutex
	records map[string]widget
	calls   map[string]int
	next    int
}

func newBackend(rows ...widget) *backend {
	b := &backend{records: map[string]widget{}, calls: map[string]int{}, next: 100}
	for _, r := range rows {
		b.records[r.ID] = r
	}
	return b
}

func (b *backend) count(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[r.Method]++

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/widgets"), "/")
	action := ""
	if i := strings.Index(id, "/"); i >= 0 {
		id, action = id[:i], id[i+1:]
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && id == "":
		rows := make([]widget, 0, len(b.records))
		for _, rec := range b.records {
			rows = append(rows, rec)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
		json.NewEncoder(w).Encode(map[string]any{"content": rows, "totalElements": len(rows), "totalPages": 1})
	case r.Method == http.MethodPost && id == "":
		var in widgetInput
		json.NewDecoder(r.Body).Decode(&in)
		b.next++
		rec := widget{ID: strconv.Itoa(b.next), Name: in.Name}
		b.records[rec.ID] = rec
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": rec})
	default:
		rec, ok := b.records[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Widget not found"})
			return
		}
		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(rec)
		case r.Method == http.MethodPut:
			var in widgetInput
			json.NewDecoder(r.Body).Decode(&in)
			rec.Name = in.Name
			b.records[id] = rec
			json.NewEncoder(w).Encode(rec)
		case r.Method == http.MethodDelete:
			delete(b.records, id)
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPatch && action == "activate":
			rec.Active = true
			b.records[id] = rec
			json.NewEncoder(w).Encode(rec)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

type fixture struct {
	e       *echo.Echo
	backend *backend
	audit   *audit.LogStore
	handler *Handler[widget, widgetInput]
}

func setup(t *testing.T, rows ...widget) *fixture {
	t.Helper()
	b := newBackend(rows...)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	client := apiclient.New(srv.URL)
	cache := query.NewClient(query.Options{StaleTime: time.Minute})
	modals := modal.NewStore(time.Minute, zerolog.Nop())
	trail := audit.NewLogStore(zerolog.Nop(), 100)

	svc := NewService(Options[widget]{
		Name:     "widgets",
		Resource: apiclient.NewResource[widget](client, "/api/widgets"),
		Cache:    cache,
		Audit:    trail,
		Logger:   zerolog.Nop(),
	})
	h := NewHandler(Spec[widget, widgetInput]{
		Service:  svc,
		Modals:   modals,
		Views:    liststate.NewStore(),
		PageSize: 10,
		Fields:   []string{"name"},
		Filter: func(rows []widget, v liststate.Values) []widget {
			return liststate.Filter(rows, liststate.Text("name", v.Get("name"), func(w widget) string { return w.Name }))
		},
		Noun:    "widget",
		Label:   func(w widget) string { return w.Name },
		Prefill: func(w widget) widgetInput { return widgetInput{Name: w.Name} },
	})

	e := echo.New()
	ui := e.Group("/ui", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := appctx.WithContext(c.Request().Context(), appctx.Context{SessionID: "s1", UserID: "u1"})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	h.RegisterRoutes(ui, "/widgets")
	ui.PATCH("/widgets/:id/activate", h.Toggle("activate", "Activate"))
	view.NewConfirmationHandler(modals).RegisterRoutes(ui)

	return &fixture{e: e, backend: b, audit: trail, handler: h}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	State string `json:"state"`
	Page  struct {
		Rows  []widget `json:"rows"`
		Total int      `json:"total"`
	} `json:"page"`
}

func (f *fixture) list(t *testing.T, target string) listBody {
	t.Helper()
	rec := f.do(t, http.MethodGet, target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body listBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return body
}

func confirmation(t *testing.T, rec *httptest.ResponseRecorder) view.Confirmation {
	t.Helper()
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var c view.Confirmation
	if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode confirmation: %v", err)
	}
	return c
}

func TestList_FiltersAndCaches(t *testing.T) {
	f := setup(t, widget{ID: "1", Name: "Alpha"}, widget{ID: "2", Name: "Beta"})

	all := f.list(t, "/ui/widgets")
	if all.State != "success" || all.Page.Total != 2 {
		t.Fatalf("unexpected list %+v", all)
	}
	filtered := f.list(t, "/ui/widgets?name=alp")
	if filtered.Page.Total != 1 || filtered.Page.Rows[0].Name != "Alpha" {
		t.Errorf("expected only Alpha, got %+v", filtered.Page.Rows)
	}
	if n := f.backend.count(http.MethodGet); n != 1 {
		t.Errorf("expected filtering to reuse the cached read, got %d backend reads", n)
	}
}

func TestDelete_ConfirmInvalidatesList(t *testing.T) {
	f := setup(t, widget{ID: "1", Name: "Alpha"}, widget{ID: "2", Name: "Beta"})
	f.list(t, "/ui/widgets")

	c := confirmation(t, f.do(t, http.MethodDelete, "/ui/widgets/1", ""))
	if c.Dialog.Kind != modal.KindDelete || c.Dialog.Target.ID != "1" {
		t.Errorf("unexpected dialog %+v", c.Dialog)
	}
	if f.backend.count(http.MethodDelete) != 0 {
		t.Fatal("delete must wait for confirmation")
	}

	if rec := f.do(t, http.MethodPost, c.Confirm, ""); rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	after := f.list(t, "/ui/widgets")
	if after.Page.Total != 1 || after.Page.Rows[0].ID != "2" {
		t.Errorf("expected the deleted row to be gone, got %+v", after.Page.Rows)
	}
	if n := f.backend.count(http.MethodGet); n != 2 {
		t.Errorf("expected the list to be refetched after delete, got %d reads", n)
	}

	entries, _ := f.audit.List(context.Background(), 0)
	if len(entries) != 1 || entries[0].Action != "delete" || entries[0].TargetID != "1" || entries[0].UserID != "u1" {
		t.Errorf("expected one audited delete, got %+v", entries)
	}
}

func TestUpdate_WaitsForConfirmation(t *testing.T) {
	f := setup(t, widget{ID: "1", Name: "Alpha"})

	c := confirmation(t, f.do(t, http.MethodPut, "/ui/widgets/1", `{"name":"Alpha Prime"}`))
	if c.Dialog.Kind != modal.KindUpdate {
		t.Errorf("expected update dialog, got %s", c.Dialog.Kind)
	}
	if f.backend.count(http.MethodPut) != 0 {
		t.Fatal("update must not reach the backend before confirmation")
	}

	rec := f.do(t, http.MethodPost, c.Confirm, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.backend.count(http.MethodPut) != 1 {
		t.Errorf("expected exactly one backend update, got %d", f.backend.count(http.MethodPut))
	}
	if got := f.list(t, "/ui/widgets").Page.Rows[0].Name; got != "Alpha Prime" {
		t.Errorf("expected updated name, got %q", got)
	}
}

func TestUpdate_CancelLeavesRecordUntouched(t *testing.T) {
	f := setup(t, widget{ID: "1", Name: "Alpha"})

	c := confirmation(t, f.do(t, http.MethodPut, "/ui/widgets/1", `{"name":"Changed"}`))
	if rec := f.do(t, http.MethodPost, c.Cancel, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("cancel: expected 204, got %d", rec.Code)
	}
	if f.backend.count(http.MethodPut) != 0 {
		t.Error("a cancelled update must never be sent")
	}
	if rec := f.do(t, http.MethodPost, c.Confirm, ""); rec.Code != http.StatusNotFound {
		t.Errorf("confirming a cancelled dialog: expected 404, got %d", rec.Code)
	}
}

func TestUpdate_InvalidInputRendersFieldErrors(t *testing.T) {
	f := setup(t, widget{ID: "1", Name: "Alpha"})

	rec := f.do(t, http.MethodPut, "/ui/widgets/1", `{"name":"A"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"name"`) || !strings.Contains(rec.Body.String(), `"mode":"edit"`) {
		t.Errorf("expected edit form with a name error, got %s", rec.Body.String())
	}
}

func TestCreate(t *testing.T) {
	f := setup(t)

	if rec := f.do(t, http.MethodPost, "/ui/widgets", `{"name":""}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for empty name, got %d", rec.Code)
	}
	if f.backend.count(http.MethodPost) != 0 {
		t.Error("invalid input must not reach the backend")
	}

	rec := f.do(t, http.MethodPost, "/ui/widgets", `{"name":"Gamma"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var out widget
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Name != "Gamma" || out.ID == "" {
		t.Errorf("unexpected created record %+v", out)
	}
}

func TestDetailAndEditForm(t *testing.T) {
	f := setup(t, widget{ID: "1", Name: "Alpha"})

	rec := f.do(t, http.MethodGet, "/ui/widgets/1/edit", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"values":{"name":"Alpha"}`) {
		t.Errorf("expected prefilled form, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodGet, "/ui/widgets/9", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing record, got %d", rec.Code)
	}
}

func TestToggle_UsesCachedLabel(t *testing.T) {
	f := setup(t, widget{ID: "1", Name: "Alpha"})
	f.do(t, http.MethodGet, "/ui/widgets/1", "")

	c := confirmation(t, f.do(t, http.MethodPatch, "/ui/widgets/1/activate", ""))
	if c.Dialog.Kind != modal.KindToggle || !strings.Contains(c.Dialog.Description, "Alpha") {
		t.Errorf("unexpected toggle dialog %+v", c.Dialog)
	}
	if f.backend.count(http.MethodPatch) != 0 {
		t.Fatal("toggle must wait for confirmation")
	}
	rec := f.do(t, http.MethodPost, c.Confirm, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"active":true`) {
		t.Errorf("expected activated record, got %d %s", rec.Code, rec.Body.String())
	}
}

func childDeps(srv *httptest.Server) Deps {
	return Deps{
		Client: apiclient.New(srv.URL),
		Cache:  query.NewClient(query.Options{StaleTime: time.Minute}),
		Audit:  audit.NewLogStore(zerolog.Nop(), 10),
		Logger: zerolog.Nop(),
	}
}

func TestChildren_SameIDUnderTwoParents(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/p1/", http.StripPrefix("/p1", newBackend(widget{ID: "1", Name: "Morning"})))
	mux.Handle("/p2/", http.StripPrefix("/p2", newBackend(widget{ID: "1", Name: "Evening"})))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	children := NewChildren[widget](childDeps(srv), "slots", "/%s/api/widgets")
	ctx := appctx.WithContext(context.Background(), appctx.Context{SessionID: "s1"})

	first, second := children.Of("p1"), children.Of("p2")
	if first.DetailKey(ctx, "1").Matches(second.DetailKey(ctx, "1")) {
		t.Fatal("expected distinct detail keys per parent")
	}

	a := first.Get(ctx, "1")
	b := second.Get(ctx, "1")
	if a.Err != nil || b.Err != nil {
		t.Fatalf("unexpected errors: %v, %v", a.Err, b.Err)
	}
	if a.Data.Name != "Morning" || b.Data.Name != "Evening" {
		t.Errorf("expected each parent's own record, got %q and %q", a.Data.Name, b.Data.Name)
	}
	if got := first.Peek(ctx, "1"); got.Data == nil || got.Data.Name != "Morning" {
		t.Errorf("expected p1's cached record to survive p2's read, got %+v", got.Data)
	}
}

func TestChildren_EvictsIdleParentsOnly(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			started <- struct{}{}
			<-release
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	children := NewChildren[widget](childDeps(srv), "slots", "/%s/api/widgets")
	children.limit = 2
	ctx := appctx.WithContext(context.Background(), appctx.Context{SessionID: "s1"})

	busy := children.Of("busy")
	done := make(chan error, 1)
	go func() { done <- busy.Delete(ctx, "1") }()
	<-started
	if !busy.Busy() {
		t.Fatal("expected the service to report its delete in flight")
	}

	idle := children.Of("a")
	children.Of("b")
	children.Of("c")

	if n := children.Len(); n != 2 {
		t.Errorf("expected 2 live parents, got %d", n)
	}
	if children.Of("busy") != busy {
		t.Error("expected the service with a pending delete to be kept")
	}
	if children.Of("a") == idle {
		t.Error("expected the idle parent to be rebuilt after eviction")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("delete: %v", err)
	}
	if busy.Busy() {
		t.Error("expected no write in flight after the delete settled")
	}
}
