package credential

import (
	"github.com/practice/dashboard/internal/platform/apiclient"
)

type Specialization struct {
	ID          apiclient.ID `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IsActive    bool         `json:"isActive"`
}

type SpecializationInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	IsActive    bool   `json:"isActive"`
}

type Award struct {
	ID          apiclient.ID `json:"id"`
	DoctorID    apiclient.ID `json:"doctorId"`
	Title       string       `json:"title"`
	Issuer      string       `json:"issuer,omitempty"`
	Year        int          `json:"year"`
	Description string       `json:"description,omitempty"`
}

type AwardInput struct {
	DoctorID    string `json:"doctorId" validate:"required"`
	Title       string `json:"title" validate:"required,max=150"`
	Issuer      string `json:"issuer" validate:"omitempty,max=150"`
	Year        int    `json:"year" validate:"required,gte=1950"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type Qualification struct {
	ID             apiclient.ID `json:"id"`
	DoctorID       apiclient.ID `json:"doctorId"`
	Degree         string       `json:"degree"`
	Institution    string       `json:"institution"`
	Year           int          `json:"year"`
	CertificateURL string       `json:"certificateUrl,omitempty"`
}

type QualificationInput struct {
	DoctorID       string `json:"doctorId" validate:"required"`
	Degree         string `json:"degree" validate:"required,max=100"`
	Institution    string `json:"institution" validate:"required,max=150"`
	Year           int    `json:"year" validate:"required,gte=1950"`
	CertificateURL string `json:"certificateUrl" validate:"omitempty,url"`
}
