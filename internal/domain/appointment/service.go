// Package appointment lists the practice's appointments and runs the
// front-desk commands on them: check-in and cancel.
package appointment

import (
	"context"
	"fmt"

	"github.com/practice/dashboard/internal/domain/doctor"
	"github.com/practice/dashboard/internal/domain/timing"
	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/form"
	"github.com/practice/dashboard/internal/platform/liststate"
)

const ResourceAppointments = "appointments"

// StateError rejects a command the appointment's status does not allow.
type StateError struct {
	Command string
	Status  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("Cannot %s an appointment that is %s.", e.Command, e.Status)
}

func (e *StateError) ErrorKind() apiclient.Kind { return apiclient.KindConflict }

type Service struct {
	*crud.Service[Appointment]
	doctors *doctor.Service
}

func NewService(d crud.Deps, doctors *doctor.Service) *Service {
	return &Service{
		Service: crud.NewResourceService[Appointment](d, ResourceAppointments, "/api/v1/appointments", "sessions"),
		doctors: doctors,
	}
}

// CanCheckIn allows check-in of scheduled appointments only.
func CanCheckIn(a Appointment) error {
	if a.Status != StatusScheduled {
		return &StateError{Command: "check in", Status: a.Status}
	}
	return nil
}

// CanCancel allows cancelling until the visit is completed.
func CanCancel(a Appointment) error {
	if a.Status == StatusCompleted || a.Status == StatusCancelled {
		return &StateError{Command: "cancel", Status: a.Status}
	}
	return nil
}

func (s *Service) check(ctx context.Context, in Input) error {
	if _, err := timing.ParseDatetime(in.AppointmentDateTime); err != nil {
		return form.Field("appointmentDateTime", "datetime", "must be a date and time (YYYY-MM-DDTHH:MM)")
	}
	ok, err := s.doctors.IsActive(ctx, in.DoctorID)
	if err != nil {
		return err
	}
	if !ok {
		return form.Field("doctorId", "active", "must be an active doctor")
	}
	return nil
}

var FilterFields = []string{"doctorId", "patientId", "status", "date", "search"}

func FilterAppointments(rows []Appointment, v liststate.Values) []Appointment {
	return liststate.Filter(rows,
		liststate.Enum("doctorId", v.Get("doctorId"), func(a Appointment) string { return a.DoctorID.String() }),
		liststate.Enum("patientId", v.Get("patientId"), func(a Appointment) string { return a.PatientID.String() }),
		liststate.Enum("status", v.Get("status"), func(a Appointment) string { return a.Status }),
		liststate.Enum("date", v.Get("date"), Appointment.Date),
		liststate.AnyText("search", v.Get("search"),
			func(a Appointment) string { return a.PatientName },
			func(a Appointment) string { return a.DoctorName },
			func(a Appointment) string { return a.SessionType },
		),
	)
}
