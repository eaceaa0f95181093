package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/liststate"
)

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, *Entry) error        { return errors.New("db down") }
func (failingRecorder) List(context.Context, int) ([]Entry, error) { return nil, errors.New("db down") }

func TestSettled_RecordsOutcome(t *testing.T) {
	var buf bytes.Buffer
	store := NewLogStore(zerolog.New(&buf), 10)
	settled := Settled[string, struct{}](store, zerolog.Nop(), "doctors", "delete", func(id string, _ struct{}) string { return id })

	ctx := appctx.WithContext(context.Background(), appctx.Context{SessionID: "s1", UserID: "user-42"})
	ctx = apiclient.WithRequestID(ctx, "req-9")
	settled(ctx, "7", struct{}{}, nil)
	settled(ctx, "8", struct{}{}, &apiclient.APIError{Status: 400, Message: "Doctor has appointments"})

	entries, _ := store.List(context.Background(), 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	failed, succeeded := entries[0], entries[1]
	if failed.Outcome != OutcomeFailure || failed.TargetID != "8" || failed.Message != "Doctor has appointments" {
		t.Errorf("unexpected failure entry %+v", failed)
	}
	if succeeded.Outcome != OutcomeSuccess || succeeded.UserID != "user-42" || succeeded.RequestID != "req-9" || succeeded.SessionID != "s1" {
		t.Errorf("unexpected success entry %+v", succeeded)
	}
	if !strings.Contains(buf.String(), `"type":"dashboard_audit"`) {
		t.Errorf("expected structured audit log, got %s", buf.String())
	}
}

func TestSettled_RecorderFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	settled := Settled[string, int](failingRecorder{}, zerolog.New(&buf), "patients", "create", nil)
	settled(context.Background(), "in", 1, nil)
	if !strings.Contains(buf.String(), "failed to record audit entry") {
		t.Errorf("expected recorder failure to be logged, got %s", buf.String())
	}
}

func TestLogStore_Capacity(t *testing.T) {
	store := NewLogStore(zerolog.Nop(), 3)
	for _, id := range []string{"1", "2", "3", "4"} {
		store.Record(context.Background(), &Entry{TargetID: id})
	}
	entries, _ := store.List(context.Background(), 2)
	if len(entries) != 2 || entries[0].TargetID != "4" || entries[1].TargetID != "3" {
		t.Errorf("expected newest two entries, got %+v", entries)
	}
	all, _ := store.List(context.Background(), 0)
	if len(all) != 3 {
		t.Errorf("expected capacity to cap entries at 3, got %d", len(all))
	}
}

func TestHandler_ListFilters(t *testing.T) {
	store := NewLogStore(zerolog.Nop(), 10)
	store.Record(context.Background(), &Entry{Resource: "doctors", Action: "delete", Outcome: OutcomeSuccess})
	store.Record(context.Background(), &Entry{Resource: "patients", Action: "update", Outcome: OutcomeFailure})
	store.Record(context.Background(), &Entry{Resource: "doctors", Action: "update", Outcome: OutcomeSuccess})

	h := NewHandler(store, liststate.NewStore(), 10, 100)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ui/audit?resource=doctors", nil)
	req = req.WithContext(appctx.WithContext(req.Context(), appctx.Context{SessionID: "s1"}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		State string `json:"state"`
		Page  struct {
			Rows  []Entry `json:"rows"`
			Total int     `json:"total"`
		} `json:"page"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != "success" || body.Page.Total != 2 {
		t.Errorf("expected 2 doctor entries, got %+v", body)
	}
}

func TestHandler_ListError(t *testing.T) {
	h := NewHandler(failingRecorder{}, liststate.NewStore(), 10, 100)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ui/audit", nil), rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"state":"error"`) || !strings.Contains(rec.Body.String(), `"retry":"/ui/audit"`) {
		t.Errorf("expected error view with retry, got %s", rec.Body.String())
	}
}
