package patient

import (
	"strings"

	"github.com/practice/dashboard/internal/platform/apiclient"
)

type Patient struct {
	ID                    apiclient.ID `json:"id"`
	FirstName             string       `json:"firstName"`
	LastName              string       `json:"lastName"`
	Email                 string       `json:"email,omitempty"`
	Phone                 string       `json:"phone,omitempty"`
	DateOfBirth           string       `json:"dateOfBirth,omitempty"`
	Gender                string       `json:"gender,omitempty"`
	BloodGroup            string       `json:"bloodGroup,omitempty"`
	Height                float64      `json:"height,omitempty"`
	Weight                float64      `json:"weight,omitempty"`
	EmergencyContactName  string       `json:"emergencyContactName,omitempty"`
	EmergencyContactPhone string       `json:"emergencyContactPhone,omitempty"`
	MedicalHistory        string       `json:"medicalHistory,omitempty"`
	CurrentMedications    string       `json:"currentMedications,omitempty"`
	Address               string       `json:"address,omitempty"`
	IsActive              bool         `json:"isActive"`
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Input is the patient form.
type Input struct {
	FirstName             string  `json:"firstName" validate:"required,max=50"`
	LastName              string  `json:"lastName" validate:"required,max=50"`
	Email                 string  `json:"email" validate:"omitempty,email"`
	Phone                 string  `json:"phone" validate:"required,phone"`
	DateOfBirth           string  `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Gender                string  `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	BloodGroup            string  `json:"bloodGroup" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Height                float64 `json:"height" validate:"gte=0,lte=300"`
	Weight                float64 `json:"weight" validate:"gte=0,lte=500"`
	EmergencyContactName  string  `json:"emergencyContactName" validate:"omitempty,max=100"`
	EmergencyContactPhone string  `json:"emergencyContactPhone" validate:"omitempty,phone"`
	MedicalHistory        string  `json:"medicalHistory" validate:"omitempty,max=2000"`
	CurrentMedications    string  `json:"currentMedications" validate:"omitempty,max=2000"`
	Address               string  `json:"address" validate:"omitempty,max=255"`
}

func prefill(p Patient) Input {
	return Input{
		FirstName:             p.FirstName,
		LastName:              p.LastName,
		Email:                 p.Email,
		Phone:                 p.Phone,
		DateOfBirth:           p.DateOfBirth,
		Gender:                p.Gender,
		BloodGroup:            p.BloodGroup,
		Height:                p.Height,
		Weight:                p.Weight,
		EmergencyContactName:  p.EmergencyContactName,
		EmergencyContactPhone: p.EmergencyContactPhone,
		MedicalHistory:        p.MedicalHistory,
		CurrentMedications:    p.CurrentMedications,
		Address:               p.Address,
	}
}

type Allergy struct {
	ID        apiclient.ID `json:"id"`
	PatientID apiclient.ID `json:"patientId"`
	Allergen  string       `json:"allergen"`
	Reaction  string       `json:"reaction,omitempty"`
	Severity  string       `json:"severity,omitempty"`
	Notes     string       `json:"notes,omitempty"`
}

type AllergyInput struct {
	PatientID string `json:"patientId" validate:"required"`
	Allergen  string `json:"allergen" validate:"required,max=100"`
	Reaction  string `json:"reaction" validate:"omitempty,max=255"`
	Severity  string `json:"severity" validate:"required,oneof=MILD MODERATE SEVERE"`
	Notes     string `json:"notes" validate:"omitempty,max=500"`
}

func prefillAllergy(a Allergy) AllergyInput {
	return AllergyInput{
		PatientID: a.PatientID.String(),
		Allergen:  a.Allergen,
		Reaction:  a.Reaction,
		Severity:  a.Severity,
		Notes:     a.Notes,
	}
}

type EmergencyContact struct {
	ID           apiclient.ID `json:"id"`
	PatientID    apiclient.ID `json:"patientId"`
	Name         string       `json:"name"`
	Relationship string       `json:"relationship,omitempty"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email,omitempty"`
	IsPrimary    bool         `json:"isPrimary"`
}

type EmergencyContactInput struct {
	PatientID    string `json:"patientId" validate:"required"`
	Name         string `json:"name" validate:"required,max=100"`
	Relationship string `json:"relationship" validate:"required,max=50"`
	Phone        string `json:"phone" validate:"required,phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	IsPrimary    bool   `json:"isPrimary"`
}

func prefillContact(c EmergencyContact) EmergencyContactInput {
	return EmergencyContactInput{
		PatientID:    c.PatientID.String(),
		Name:         c.Name,
		Relationship: c.Relationship,
		Phone:        c.Phone,
		Email:        c.Email,
		IsPrimary:    c.IsPrimary,
	}
}
