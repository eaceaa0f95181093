// Package timing manages doctors' weekly availability and time-offs,
// including the overlap warnings shown before a time-off is saved.
package timing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/form"
	"github.com/practice/dashboard/internal/platform/liststate"
)

const (
	ResourceAvailabilities = "availabilities"
	ResourceTimeOffs       = "time-offs"
)

// ConflictError blocks a time-off create until the user forces it.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		return "This time-off overlaps 1 existing entry."
	}
	return fmt.Sprintf("This time-off overlaps %d existing entries.", len(e.Conflicts))
}

func (e *ConflictError) ErrorKind() apiclient.Kind { return apiclient.KindConflict }

type Service struct {
	client         *apiclient.Client
	availabilities *crud.Children[Availability]
	timeOffs       *crud.Children[TimeOff]
	logger         zerolog.Logger
}

func NewService(d crud.Deps) *Service {
	return &Service{
		client:         d.Client,
		availabilities: crud.NewChildren[Availability](d, ResourceAvailabilities, "/api/v1/timings/doctors/%s/availabilities"),
		timeOffs:       crud.NewChildren[TimeOff](d, ResourceTimeOffs, "/api/v1/timings/doctors/%s/time-offs"),
		logger:         d.Logger.With().Str("feature", "timing").Logger(),
	}
}

func (s *Service) Availabilities(doctorID string) *crud.Service[Availability] {
	return s.availabilities.Of(doctorID)
}

func (s *Service) TimeOffs(doctorID string) *crud.Service[TimeOff] {
	return s.timeOffs.Of(doctorID)
}

// Week groups the doctor's availability by day, Monday first, with each
// day's durations in start order.
func (s *Service) Week(ctx context.Context, doctorID string) ([]Day, error) {
	res := s.Availabilities(doctorID).All(ctx, nil)
	if res.Err != nil {
		return nil, res.Err
	}
	days := make([]Day, len(Weekdays))
	index := make(map[string]int, len(Weekdays))
	for i, name := range Weekdays {
		days[i] = Day{DayOfWeek: name, Durations: []Duration{}}
		index[name] = i
	}
	for _, a := range res.Data {
		i, ok := index[a.DayOfWeek]
		if !ok {
			continue
		}
		if days[i].AvailabilityID == "" {
			days[i].AvailabilityID = a.ID.String()
		}
		days[i].Durations = append(days[i].Durations, a.Durations...)
	}
	for i := range days {
		sort.SliceStable(days[i].Durations, func(a, b int) bool {
			return days[i].Durations[a].StartTime < days[i].Durations[b].StartTime
		})
	}
	return days, nil
}

// LocalConflicts checks a request against the doctor's loaded availability
// and time-offs.
func (s *Service) LocalConflicts(ctx context.Context, doctorID string, in TimeOffInput) ([]Conflict, error) {
	avail := s.Availabilities(doctorID).All(ctx, nil)
	if avail.Err != nil {
		return nil, avail.Err
	}
	offs := s.TimeOffs(doctorID).All(ctx, nil)
	if offs.Err != nil {
		return nil, offs.Err
	}
	return DetectConflicts(in, avail.Data, offs.Data, "")
}

type serverCheck struct {
	HasConflicts bool `json:"hasConflicts"`
	Conflicts    []struct {
		ID            apiclient.ID `json:"id"`
		StartDatetime string       `json:"startDatetime"`
		EndDatetime   string       `json:"endDatetime"`
		Description   string       `json:"description"`
		Message       string       `json:"message"`
	} `json:"conflicts"`
}

// ServerConflicts asks the backend's check-conflicts endpoint.
func (s *Service) ServerConflicts(ctx context.Context, doctorID string, in TimeOffInput) ([]Conflict, error) {
	path := fmt.Sprintf("/api/v1/timings/doctors/%s/time-offs/check-conflicts", url.PathEscape(doctorID))
	raw, err := s.client.DoRaw(ctx, http.MethodPost, path, nil, in)
	if err != nil {
		return nil, err
	}
	res, err := apiclient.DecodeOne[serverCheck](raw)
	if err != nil || res == nil {
		return nil, err
	}
	var out []Conflict
	for _, c := range res.Conflicts {
		msg := c.Message
		if msg == "" {
			msg = fmt.Sprintf("Overlaps %s to %s", c.StartDatetime, c.EndDatetime)
			if c.Description != "" {
				msg += ": " + c.Description
			}
		}
		out = append(out, Conflict{Source: SourceServer, ID: c.ID.String(), Start: c.StartDatetime, End: c.EndDatetime, Message: msg})
	}
	if res.HasConflicts && len(out) == 0 {
		out = append(out, Conflict{Source: SourceServer, Message: "The server reported a scheduling conflict."})
	}
	return out, nil
}

// CheckConflicts merges local and server-side findings. A failed server
// check is logged and the local result stands.
func (s *Service) CheckConflicts(ctx context.Context, doctorID string, in TimeOffInput) ([]Conflict, error) {
	local, err := s.LocalConflicts(ctx, doctorID, in)
	if err != nil {
		return nil, err
	}
	remote, err := s.ServerConflicts(ctx, doctorID, in)
	if err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", doctorID).Msg("server conflict check failed")
		return local, nil
	}
	seen := make(map[string]bool, len(local))
	for _, c := range local {
		if c.Source == SourceTimeOff {
			seen[c.ID] = true
		}
	}
	for _, c := range remote {
		if c.ID != "" && seen[c.ID] {
			continue
		}
		local = append(local, c)
	}
	return local, nil
}

// CreateTimeOff saves a time-off. Overlaps return a ConflictError unless
// force is set.
func (s *Service) CreateTimeOff(ctx context.Context, doctorID string, in TimeOffInput, force bool) (*TimeOff, error) {
	if !force {
		conflicts, err := s.CheckConflicts(ctx, doctorID, in)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, &ConflictError{Conflicts: conflicts}
		}
	}
	return s.TimeOffs(doctorID).Create(ctx, in)
}

func checkTimeOff(_ context.Context, in TimeOffInput) error {
	start, err := ParseDatetime(in.StartDatetime)
	if err != nil {
		return form.Field("startDatetime", "datetime", "must be a date and time (YYYY-MM-DDTHH:MM)")
	}
	end, err := ParseDatetime(in.EndDatetime)
	if err != nil {
		return form.Field("endDatetime", "datetime", "must be a date and time (YYYY-MM-DDTHH:MM)")
	}
	if !end.After(start) {
		return form.Field("endDatetime", "gtfield", "must be after startDatetime")
	}
	return nil
}

func checkAvailability(_ context.Context, in AvailabilityInput) error {
	var errs form.Errors
	for i, d := range in.Durations {
		from, _ := ParseClock(d.StartTime)
		to, _ := ParseClock(d.EndTime)
		if to <= from {
			errs = append(errs, form.FieldError{Field: fmt.Sprintf("durations[%d].endTime", i), Rule: "gtfield", Message: "must be after startTime"})
		}
	}
	for _, pair := range overlappingDurations(in.Durations) {
		errs = append(errs, form.FieldError{
			Field:   fmt.Sprintf("durations[%d].startTime", pair[1]),
			Rule:    "overlap",
			Message: fmt.Sprintf("overlaps duration %d", pair[0]+1),
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func FilterAvailabilities(rows []Availability, v liststate.Values) []Availability {
	return liststate.Filter(rows,
		liststate.Enum("dayOfWeek", v.Get("dayOfWeek"), func(a Availability) string { return a.DayOfWeek }),
		liststate.Bool("emergency", v.Bool("emergency"), func(a Availability) bool {
			for _, d := range a.Durations {
				if d.IsEmergency {
					return true
				}
			}
			return false
		}),
	)
}

// FilterTimeOffs matches status, free text, the special availability flag
// and a from/to date window on the start date.
func FilterTimeOffs(rows []TimeOff, v liststate.Values) []TimeOff {
	from, to := v.Get("from"), v.Get("to")
	return liststate.Filter(rows,
		liststate.Enum("status", v.Get("status"), func(t TimeOff) string { return t.Status }),
		liststate.AnyText("search", v.Get("search"),
			func(t TimeOff) string { return t.Description },
			func(t TimeOff) string { return t.Reason },
		),
		liststate.Bool("special", v.Bool("special"), func(t TimeOff) bool { return t.IsAvailable }),
		liststate.Predicate[TimeOff]{
			Field:  "date",
			Active: from != "" || to != "",
			Match: func(t TimeOff) bool {
				start, err := ParseDatetime(t.StartDatetime)
				if err != nil {
					return false
				}
				day := start.Format(time.DateOnly)
				return (from == "" || day >= from) && (to == "" || day <= to)
			},
		},
	)
}
