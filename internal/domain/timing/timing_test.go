package timing

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/crud/crudtest"
	"github.com/practice/dashboard/internal/platform/liststate"
)

const (
	availPath = "/api/v1/timings/doctors/7/availabilities"
	offsPath  = "/api/v1/timings/doctors/7/time-offs"
	checkPath = offsPath + "/check-conflicts"
	uiOffs    = "/ui/timings/doctors/7/time-offs"
)

// 2024-01-01 is a Monday.
func setup(t *testing.T) (*crudtest.Backend, *echo.Echo) {
	t.Helper()
	b, srv := crudtest.NewBackend(t)
	b.Seed(availPath,
		crudtest.Record{"id": 1, "doctorId": "7", "dayOfWeek": "MONDAY", "durations": []any{
			map[string]any{"startTime": "09:00:00", "endTime": "10:00:00", "description": "Morning clinic"},
			map[string]any{"startTime": "14:00", "endTime": "15:00", "isEmergency": true},
		}},
		crudtest.Record{"id": 2, "doctorId": "7", "dayOfWeek": "WEDNESDAY", "durations": []any{
			map[string]any{"startTime": "08:00", "endTime": "12:00"},
		}},
	)
	b.Seed(offsPath,
		crudtest.Record{"id": 5, "doctorId": "7", "description": "Conference", "startDatetime": "2024-01-02T14:00:00", "endDatetime": "2024-01-02T16:00:00", "status": "APPROVED"},
		crudtest.Record{"id": 6, "doctorId": "7", "description": "Dropped", "startDatetime": "2024-01-03T08:00:00", "endDatetime": "2024-01-03T18:00:00", "status": "CANCELLED"},
	)
	b.Action(offsPath, "cancel", func(r crudtest.Record) { r["status"] = StatusCancelled })
	b.Handle(http.MethodPost, checkPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"hasConflicts":false,"conflicts":[]}}`))
	})

	d := crudtest.NewDeps(srv.URL)
	e, ui := crudtest.NewServer(d, appctx.Context{SessionID: "s1", UserID: "admin"})
	NewHandler(NewService(d), d).RegisterRoutes(ui)
	return b, e
}

func TestDetectConflicts_AvailabilityOverlap(t *testing.T) {
	avail := []Availability{{ID: "1", DayOfWeek: "MONDAY", Durations: []Duration{{StartTime: "09:00", EndTime: "10:00"}}}}

	got, err := DetectConflicts(TimeOffInput{StartDatetime: "2024-01-01T09:30", EndDatetime: "2024-01-01T09:45"}, avail, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Source != SourceAvailability {
		t.Fatalf("expected 09:30-09:45 to conflict with 09:00-10:00, got %+v", got)
	}

	got, err = DetectConflicts(TimeOffInput{StartDatetime: "2024-01-01T11:00", EndDatetime: "2024-01-01T12:00"}, avail, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected 11:00-12:00 to be free, got %+v", got)
	}
}

func TestDetectConflicts_SpansDays(t *testing.T) {
	avail := []Availability{{ID: "2", DayOfWeek: "WEDNESDAY", Durations: []Duration{{StartTime: "08:00", EndTime: "12:00"}}}}
	offs := []TimeOff{
		{ID: "9", StartDatetime: "2024-01-01T00:00", EndDatetime: "2024-01-01T23:59"},
		{ID: "10", StartDatetime: "2024-01-04T10:00", EndDatetime: "2024-01-04T11:00", Status: StatusRejected},
	}
	got, err := DetectConflicts(TimeOffInput{StartDatetime: "2024-01-01T18:00", EndDatetime: "2024-01-05T00:00"}, avail, offs, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "9" || got[1].Start != "2024-01-03T08:00" {
		t.Errorf("unexpected conflicts %+v", got)
	}
	if skip, _ := DetectConflicts(TimeOffInput{StartDatetime: "2024-01-01T18:00", EndDatetime: "2024-01-01T20:00"}, nil, offs, "9"); len(skip) != 0 {
		t.Errorf("the edited record must not conflict with itself, got %+v", skip)
	}
}

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"contained", at(9, 0), at(10, 0), at(9, 30), at(9, 45), true},
		{"partial", at(9, 0), at(10, 0), at(9, 45), at(10, 30), true},
		{"adjacent", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"disjoint", at(9, 0), at(10, 0), at(11, 0), at(12, 0), false},
		{"zero length", at(9, 0), at(10, 0), at(9, 30), at(9, 30), false},
		{"inverted", at(10, 0), at(9, 0), at(9, 30), at(9, 45), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.s1, tt.e1, tt.s2, tt.e2); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"09:30", 9*time.Hour + 30*time.Minute, false},
		{"23:59:30", 23*time.Hour + 59*time.Minute + 30*time.Second, false},
		{"24:00", 0, true},
		{"9:30", 0, true},
		{"09-30", 0, true},
		{"09:60", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseClock(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestCheckConflicts_Endpoint(t *testing.T) {
	b, e := setup(t)

	rec := crudtest.Do(e, http.MethodPost, uiOffs+"/check-conflicts", `{"startDatetime":"2024-01-01T09:30","endDatetime":"2024-01-01T09:45"}`)
	var report ConflictReport
	crudtest.Decode(t, rec, &report)
	if rec.Code != http.StatusOK || !report.HasConflicts || report.Conflicts[0].Source != SourceAvailability {
		t.Fatalf("expected an availability conflict, got %d %+v", rec.Code, report)
	}
	if !strings.Contains(report.Conflicts[0].Message, "09:00-10:00") {
		t.Errorf("expected the duration in the message, got %q", report.Conflicts[0].Message)
	}

	rec = crudtest.Do(e, http.MethodPost, uiOffs+"/check-conflicts", `{"startDatetime":"2024-01-01T11:00","endDatetime":"2024-01-01T12:00"}`)
	report = ConflictReport{}
	crudtest.Decode(t, rec, &report)
	if report.HasConflicts || len(report.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %+v", report)
	}
	if b.Calls(http.MethodPost, checkPath) != 2 {
		t.Errorf("expected the server check on every request, got %d", b.Calls(http.MethodPost, checkPath))
	}
	if b.Calls(http.MethodPost, offsPath) != b.Calls(http.MethodPost, checkPath) {
		t.Error("checking conflicts must not create anything")
	}
}

func TestCreateTimeOff_WarnsThenForces(t *testing.T) {
	b, e := setup(t)

	rec := crudtest.Do(e, http.MethodPost, uiOffs, `{"description":"Dentist","startDatetime":"2024-01-01T09:30","endDatetime":"2024-01-01T09:45"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var warned struct {
		Values    TimeOffInput `json:"values"`
		Message   string       `json:"message"`
		Conflicts []Conflict   `json:"conflicts"`
		Force     string       `json:"force"`
	}
	crudtest.Decode(t, rec, &warned)
	if len(warned.Conflicts) != 1 || warned.Values.Description != "Dentist" || warned.Message == "" {
		t.Errorf("expected the warning with the submitted values, got %+v", warned)
	}
	if warned.Force != uiOffs+"?force=true" {
		t.Fatalf("unexpected force link %q", warned.Force)
	}
	if b.Calls(http.MethodPost, offsPath) != b.Calls(http.MethodPost, checkPath) {
		t.Fatal("a conflicting time-off must not be saved without force")
	}

	rec = crudtest.Do(e, http.MethodPost, warned.Force, `{"description":"Dentist","startDatetime":"2024-01-01T09:30","endDatetime":"2024-01-01T09:45"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected forced create, got %d: %s", rec.Code, rec.Body.String())
	}
	var created TimeOff
	crudtest.Decode(t, rec, &created)
	if stored, ok := b.Get(offsPath, created.ID.String()); !ok || stored["description"] != "Dentist" {
		t.Errorf("expected the stored time-off, got %+v", stored)
	}

	list := crudtest.List[TimeOff](t, e, uiOffs+"?search=dentist")
	if list.Page.Total != 1 {
		t.Errorf("expected the new time-off after refetch, got %+v", list.Page.Rows)
	}
}

func TestCreateTimeOff_ServerConflict(t *testing.T) {
	b, e := setup(t)
	b.Handle(http.MethodPost, checkPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"hasConflicts": true,
			"conflicts":    []any{map[string]any{"id": 44, "startDatetime": "2024-01-01T11:30:00", "endDatetime": "2024-01-01T12:30:00", "description": "Surgery"}},
		}})
	})

	rec := crudtest.Do(e, http.MethodPost, uiOffs, `{"startDatetime":"2024-01-01T11:00","endDatetime":"2024-01-01T12:00"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"source":"server"`) || !strings.Contains(rec.Body.String(), "Surgery") {
		t.Errorf("expected the server conflict, got %s", rec.Body.String())
	}
}

func TestCreateTimeOff_ServerCheckUnavailable(t *testing.T) {
	b, e := setup(t)
	b.Fail(http.MethodPost, checkPath, http.StatusInternalServerError, "boom")

	rec := crudtest.Do(e, http.MethodPost, uiOffs, `{"startDatetime":"2024-01-01T11:00","endDatetime":"2024-01-01T12:00","reason":"Personal"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected the local check to stand, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTimeOff_Validation(t *testing.T) {
	_, e := setup(t)

	rec := crudtest.Do(e, http.MethodPost, uiOffs, `{"startDatetime":"2024-01-01T11:00","endDatetime":"2024-01-01T10:00"}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), `"endDatetime":"must be after startDatetime"`) {
		t.Fatalf("expected an ordering error, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = crudtest.Do(e, http.MethodPost, uiOffs, `{"startDatetime":"tomorrow","endDatetime":"2024-01-01T10:00"}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "startDatetime") {
		t.Fatalf("expected a format error, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSpecialAvailability(t *testing.T) {
	_, e := setup(t)

	rec := crudtest.Do(e, http.MethodPost, uiOffs, `{"startDatetime":"2024-01-01T09:30","endDatetime":"2024-01-01T09:45","isAvailable":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("special availability inside working hours must not warn, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = crudtest.Do(e, http.MethodPost, uiOffs, `{"startDatetime":"2024-01-02T15:00","endDatetime":"2024-01-02T17:00","isAvailable":true}`)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "Conference") {
		t.Fatalf("expected a conflict with the existing time-off, got %d: %s", rec.Code, rec.Body.String())
	}
	got := crudtest.List[TimeOff](t, e, uiOffs+"?special=true")
	if got.Page.Total != 1 {
		t.Errorf("expected one special availability, got %+v", got.Page.Rows)
	}
}

func TestCancelTimeOff_Confirms(t *testing.T) {
	b, e := setup(t)

	crudtest.Do(e, http.MethodGet, uiOffs+"/5", "")
	rec := crudtest.Do(e, http.MethodPatch, uiOffs+"/5/cancel", "")
	c := crudtest.Accepted(t, rec)
	if c.Dialog.Kind != "cancel" || !strings.Contains(c.Dialog.Description, "Conference") {
		t.Errorf("unexpected dialog %+v", c.Dialog)
	}
	if b.Calls(http.MethodPatch, offsPath) != 0 {
		t.Fatal("cancel must wait for confirmation")
	}
	if resp := crudtest.Do(e, http.MethodPost, c.Confirm, ""); resp.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got, _ := b.Get(offsPath, "5"); got["status"] != StatusCancelled {
		t.Errorf("expected cancelled time-off, got %+v", got)
	}

	rec = crudtest.Do(e, http.MethodPost, uiOffs+"/check-conflicts", `{"startDatetime":"2024-01-02T15:00","endDatetime":"2024-01-02T15:30"}`)
	if strings.Contains(rec.Body.String(), "Conference") {
		t.Errorf("a cancelled time-off must not conflict, got %s", rec.Body.String())
	}
}

func TestAvailability_RejectsOverlappingDurations(t *testing.T) {
	b, e := setup(t)

	rec := crudtest.Do(e, http.MethodPost, "/ui/timings/doctors/7/availabilities", `{"dayOfWeek":"FRIDAY","durations":[{"startTime":"09:00","endTime":"12:00"},{"startTime":"11:00","endTime":"13:00"}]}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), `"durations[1].startTime":"overlaps duration 1"`) {
		t.Fatalf("expected an overlap error, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = crudtest.Do(e, http.MethodPost, "/ui/timings/doctors/7/availabilities", `{"dayOfWeek":"FRIDAY","durations":[{"startTime":"9am","endTime":"12:00"}]}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "durations[0].startTime") {
		t.Fatalf("expected a clock error, got %d: %s", rec.Code, rec.Body.String())
	}
	if b.Calls(http.MethodPost, availPath) != 0 {
		t.Error("invalid availability must not reach the backend")
	}

	rec = crudtest.Do(e, http.MethodPost, "/ui/timings/doctors/7/availabilities", `{"dayOfWeek":"FRIDAY","durations":[{"startTime":"09:00","endTime":"12:00"},{"startTime":"12:00","endTime":"13:00"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("adjacent durations are allowed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWeek(t *testing.T) {
	_, e := setup(t)

	rec := crudtest.Do(e, http.MethodGet, "/ui/timings/doctors/7/week", "")
	var days []Day
	crudtest.Decode(t, rec, &days)
	if len(days) != 7 || days[0].DayOfWeek != "MONDAY" || days[6].DayOfWeek != "SUNDAY" {
		t.Fatalf("expected seven days from Monday, got %+v", days)
	}
	if len(days[0].Durations) != 2 || days[0].AvailabilityID != "1" {
		t.Errorf("unexpected Monday %+v", days[0])
	}
	if len(days[1].Durations) != 0 || days[1].Durations == nil {
		t.Errorf("expected an empty Tuesday, got %+v", days[1])
	}
}

func TestFilterTimeOffs(t *testing.T) {
	rows := []TimeOff{
		{ID: "1", StartDatetime: "2024-01-02T14:00", Status: StatusApproved, Reason: "Conference"},
		{ID: "2", StartDatetime: "2024-02-10T09:00", Status: StatusPending, IsAvailable: true},
		{ID: "3", StartDatetime: "2024-03-01T09:00", Status: StatusApproved},
	}
	if got := FilterTimeOffs(rows, liststate.Values{"from": "2024-01-02", "to": "2024-02-10"}); len(got) != 2 {
		t.Errorf("expected an inclusive date window, got %+v", got)
	}
	if got := FilterTimeOffs(rows, liststate.Values{"status": StatusApproved, "search": "conf"}); len(got) != 1 || got[0].ID != "1" {
		t.Errorf("unexpected result %+v", got)
	}
	if got := FilterTimeOffs(rows, liststate.Values{}); len(got) != 3 {
		t.Errorf("empty filters must keep every row, got %d", len(got))
	}
}
