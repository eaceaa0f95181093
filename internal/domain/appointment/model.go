package appointment

import (
	"github.com/practice/dashboard/internal/platform/apiclient"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusCheckedIn = "CHECKED_IN"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

type Appointment struct {
	ID                  apiclient.ID `json:"id"`
	DoctorID            apiclient.ID `json:"doctorId"`
	DoctorName          string       `json:"doctorName,omitempty"`
	PatientID           apiclient.ID `json:"patientId"`
	PatientName         string       `json:"patientName,omitempty"`
	SessionID           apiclient.ID `json:"sessionId,omitempty"`
	SessionType         string       `json:"sessionType,omitempty"`
	AppointmentDateTime string       `json:"appointmentDateTime"`
	Status              string       `json:"status"`
	CheckedInAt         string       `json:"checkedInAt,omitempty"`
	Notes               string       `json:"notes,omitempty"`
}

// Date is the calendar day of the appointment, YYYY-MM-DD.
func (a Appointment) Date() string {
	if len(a.AppointmentDateTime) < 10 {
		return a.AppointmentDateTime
	}
	return a.AppointmentDateTime[:10]
}

type Input struct {
	DoctorID            string `json:"doctorId" validate:"required"`
	PatientID           string `json:"patientId" validate:"required"`
	SessionID           string `json:"sessionId"`
	SessionType         string `json:"sessionType" validate:"omitempty,max=100"`
	AppointmentDateTime string `json:"appointmentDateTime" validate:"required"`
	Notes               string `json:"notes" validate:"omitempty,max=1000"`
}

func prefill(a Appointment) Input {
	return Input{
		DoctorID:            a.DoctorID.String(),
		PatientID:           a.PatientID.String(),
		SessionID:           a.SessionID.String(),
		SessionType:         a.SessionType,
		AppointmentDateTime: a.AppointmentDateTime,
		Notes:               a.Notes,
	}
}
