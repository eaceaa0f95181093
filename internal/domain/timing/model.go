package timing

import (
	"github.com/practice/dashboard/internal/platform/apiclient"
)

// Time-off statuses.
const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// Days in display order.
var Weekdays = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// Duration is one working window within a day, as HH:MM or HH:MM:SS clock
// times.
type Duration struct {
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Description string `json:"description,omitempty"`
	IsEmergency bool   `json:"isEmergency"`
}

type Availability struct {
	ID        apiclient.ID `json:"id"`
	DoctorID  apiclient.ID `json:"doctorId"`
	DayOfWeek string       `json:"dayOfWeek"`
	Durations []Duration   `json:"durations"`
}

type DurationInput struct {
	StartTime   string `json:"startTime" validate:"required,clock"`
	EndTime     string `json:"endTime" validate:"required,clock"`
	Description string `json:"description" validate:"omitempty,max=200"`
	IsEmergency bool   `json:"isEmergency"`
}

type AvailabilityInput struct {
	DayOfWeek string          `json:"dayOfWeek" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	Durations []DurationInput `json:"durations" validate:"required,min=1,dive"`
}

// TimeOff is an absence, or with IsAvailable set a special availability
// outside the weekly schedule.
type TimeOff struct {
	ID             apiclient.ID `json:"id"`
	DoctorID       apiclient.ID `json:"doctorId"`
	Description    string       `json:"description,omitempty"`
	StartDatetime  string       `json:"startDatetime"`
	EndDatetime    string       `json:"endDatetime"`
	Reason         string       `json:"reason,omitempty"`
	Status         string       `json:"status,omitempty"`
	RecurrenceRule string       `json:"recurrenceRule,omitempty"`
	IsAvailable    bool         `json:"isAvailable"`
}

// Active reports whether the time-off still blocks or adds time.
func (t TimeOff) Active() bool {
	return t.Status != StatusCancelled && t.Status != StatusRejected
}

type TimeOffInput struct {
	Description    string `json:"description" validate:"omitempty,max=500"`
	StartDatetime  string `json:"startDatetime" validate:"required"`
	EndDatetime    string `json:"endDatetime" validate:"required"`
	Reason         string `json:"reason" validate:"omitempty,max=200"`
	RecurrenceRule string `json:"recurrenceRule" validate:"omitempty,max=200"`
	IsAvailable    bool   `json:"isAvailable"`
}

// Conflict is one existing entry a time-off request overlaps.
type Conflict struct {
	Source  string `json:"source"`
	ID      string `json:"id,omitempty"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Message string `json:"message"`
}

// Conflict sources.
const (
	SourceAvailability = "availability"
	SourceTimeOff      = "time-off"
	SourceServer       = "server"
)

// Day is one row of the weekly schedule.
type Day struct {
	DayOfWeek      string     `json:"dayOfWeek"`
	AvailabilityID string     `json:"availabilityId,omitempty"`
	Durations      []Duration `json:"durations"`
}

func prefillAvailability(a Availability) AvailabilityInput {
	in := AvailabilityInput{DayOfWeek: a.DayOfWeek}
	for _, d := range a.Durations {
		in.Durations = append(in.Durations, DurationInput(d))
	}
	return in
}

func prefillTimeOff(t TimeOff) TimeOffInput {
	return TimeOffInput{
		Description:    t.Description,
		StartDatetime:  t.StartDatetime,
		EndDatetime:    t.EndDatetime,
		Reason:         t.Reason,
		RecurrenceRule: t.RecurrenceRule,
		IsAvailable:    t.IsAvailable,
	}
}
