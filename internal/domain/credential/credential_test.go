package credential

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/crud/crudtest"
	"github.com/practice/dashboard/internal/platform/liststate"
)

func setup(t *testing.T) (*crudtest.Backend, *echo.Echo) {
	t.Helper()
	b, srv := crudtest.NewBackend(t)
	b.Seed("/api/v1/specializations")
	// Attribute endpoints answer with a bare array under "data".
	b.Handle(http.MethodGet, "/api/v1/specializations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":1,"name":"Cardiology","isActive":true},{"id":2,"name":"Dermatology","description":"skin","isActive":false}]}`))
	})
	b.Seed("/api/v1/awards",
		crudtest.Record{"id": 1, "doctorId": "1", "title": "Best Surgeon", "issuer": "City Board", "year": 2019},
		crudtest.Record{"id": 2, "doctorId": "2", "title": "Teaching Excellence", "year": 2021},
	)
	b.Seed("/api/v1/qualifications",
		crudtest.Record{"id": 1, "doctorId": "1", "degree": "MBBS", "institution": "State University", "year": 2005},
	)

	d := crudtest.NewDeps(srv.URL)
	e, ui := crudtest.NewServer(d, appctx.Context{SessionID: "s1", UserID: "admin"})
	NewHandler(NewService(d), d).RegisterRoutes(ui)
	return b, e
}

func TestSpecializations_BareArrayEnvelope(t *testing.T) {
	_, e := setup(t)

	all := crudtest.List[Specialization](t, e, "/ui/specializations")
	if all.Page.Total != 2 || all.Page.TotalPages != 1 {
		t.Fatalf("expected two specializations on one page, got %+v", all.Page)
	}
	active := crudtest.List[Specialization](t, e, "/ui/specializations?active=true")
	if len(active.Page.Rows) != 1 || active.Page.Rows[0].Name != "Cardiology" {
		t.Errorf("unexpected active rows %+v", active.Page.Rows)
	}
	byDesc := crudtest.List[Specialization](t, e, "/ui/specializations?name=SKIN")
	if len(byDesc.Page.Rows) != 1 || byDesc.Page.Rows[0].ID != "2" {
		t.Errorf("expected the description to match, got %+v", byDesc.Page.Rows)
	}
}

func TestAwards_ScopedByDoctor(t *testing.T) {
	b, e := setup(t)

	got := crudtest.List[Award](t, e, "/ui/awards?doctorId=1")
	if len(got.Page.Rows) != 1 || got.Page.Rows[0].Title != "Best Surgeon" {
		t.Fatalf("expected only doctor 1's award, got %+v", got.Page.Rows)
	}
	call, _ := b.Last(http.MethodGet, "/api/v1/awards")
	if !strings.Contains(call.Query, "doctorId=1") {
		t.Errorf("expected the doctor to be sent to the backend, got %q", call.Query)
	}
}

func TestAwards_RejectFutureYear(t *testing.T) {
	b, e := setup(t)

	next := strconv.Itoa(time.Now().Year() + 1)
	rec := crudtest.Do(e, http.MethodPost, "/ui/awards", `{"doctorId":"1","title":"Future","year":`+next+`}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "future") {
		t.Fatalf("expected a year error, got %d: %s", rec.Code, rec.Body.String())
	}
	if b.Calls(http.MethodPost, "/api/v1/awards") != 0 {
		t.Error("an invalid award must not reach the backend")
	}

	rec = crudtest.Do(e, http.MethodPost, "/ui/awards", `{"doctorId":"1","title":"Mentor of the Year","year":2022}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := crudtest.List[Award](t, e, "/ui/awards?doctorId=1"); got.Page.Total != 2 {
		t.Errorf("expected the new award after refetch, got %+v", got.Page.Rows)
	}
}

func TestQualifications_DeleteConfirms(t *testing.T) {
	b, e := setup(t)

	crudtest.Do(e, http.MethodGet, "/ui/qualifications/1", "")
	rec := crudtest.Do(e, http.MethodDelete, "/ui/qualifications/1", "")
	c := crudtest.Accepted(t, rec)
	if !strings.Contains(c.Dialog.Description, "MBBS, State University") {
		t.Errorf("expected the cached label in the dialog, got %q", c.Dialog.Description)
	}
	if resp := crudtest.Do(e, http.MethodPost, c.Confirm, ""); resp.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if _, ok := b.Get("/api/v1/qualifications", "1"); ok {
		t.Error("qualification should be deleted")
	}
}

func TestQualifications_CertificateURL(t *testing.T) {
	_, e := setup(t)

	rec := crudtest.Do(e, http.MethodPost, "/ui/qualifications", `{"doctorId":"1","degree":"MD","institution":"Med School","year":2010,"certificateUrl":"not a url"}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "certificateUrl") {
		t.Fatalf("expected a certificate url error, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFilterAwards_YearRange(t *testing.T) {
	rows := []Award{
		{ID: "1", Title: "A", Year: 2015},
		{ID: "2", Title: "B", Year: 2019},
		{ID: "3", Title: "C", Year: 2023},
	}
	got := FilterAwards(rows, liststate.Values{"fromYear": "2016", "toYear": "2023"})
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
		t.Errorf("expected an inclusive year range, got %+v", got)
	}
}
