package session

import (
	"github.com/practice/dashboard/internal/platform/apiclient"
)

type SessionType struct {
	ID                      apiclient.ID `json:"id"`
	Name                    string       `json:"name"`
	Description             string       `json:"description,omitempty"`
	DefaultDurationMinutes  int          `json:"defaultDurationMinutes"`
	IsActive                bool         `json:"isActive"`
	IsTelemedicineAvailable bool         `json:"isTelemedicineAvailable"`
}

type SessionTypeInput struct {
	Name                    string `json:"name" validate:"required,max=100"`
	Description             string `json:"description" validate:"omitempty,max=500"`
	DefaultDurationMinutes  int    `json:"defaultDurationMinutes" validate:"required,gte=5,lte=480"`
	IsActive                bool   `json:"isActive"`
	IsTelemedicineAvailable bool   `json:"isTelemedicineAvailable"`
}

func prefillType(t SessionType) SessionTypeInput {
	return SessionTypeInput{
		Name:                    t.Name,
		Description:             t.Description,
		DefaultDurationMinutes:  t.DefaultDurationMinutes,
		IsActive:                t.IsActive,
		IsTelemedicineAvailable: t.IsTelemedicineAvailable,
	}
}

type Session struct {
	ID              apiclient.ID `json:"id"`
	SessionTypeID   apiclient.ID `json:"sessionTypeId"`
	SessionTypeName string       `json:"sessionTypeName,omitempty"`
	DoctorID        apiclient.ID `json:"doctorId"`
	DoctorName      string       `json:"doctorName,omitempty"`
	PracticeID      apiclient.ID `json:"practiceId,omitempty"`
	Price           float64      `json:"price"`
	IsActive        bool         `json:"isActive"`
}

type Input struct {
	SessionTypeID string  `json:"sessionTypeId" validate:"required"`
	DoctorID      string  `json:"doctorId" validate:"required"`
	PracticeID    string  `json:"practiceId,omitempty"`
	Price         float64 `json:"price" validate:"gte=0"`
	IsActive      bool    `json:"isActive"`
}

func prefill(s Session) Input {
	return Input{
		SessionTypeID: s.SessionTypeID.String(),
		DoctorID:      s.DoctorID.String(),
		PracticeID:    s.PracticeID.String(),
		Price:         s.Price,
		IsActive:      s.IsActive,
	}
}

// BatchInput creates the same session for several doctors at once.
type BatchInput struct {
	SessionTypeID string   `json:"sessionTypeId" validate:"required"`
	DoctorIDs     []string `json:"doctorIds" validate:"required,min=1,dive,required"`
	PracticeID    string   `json:"practiceId,omitempty"`
	Price         float64  `json:"price" validate:"gte=0"`
	IsActive      bool     `json:"isActive"`
}
