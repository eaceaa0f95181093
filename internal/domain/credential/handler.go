package credential

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/crud"
)

type Handler struct {
	specializations *crud.Handler[Specialization, SpecializationInput]
	awards          *crud.Handler[Award, AwardInput]
	qualifications  *crud.Handler[Qualification, QualificationInput]
}

func byDoctor(c echo.Context) apiclient.Params {
	return apiclient.Params{}.With("doctorId", c.QueryParam("doctorId"))
}

func NewHandler(svc *Service, d crud.Deps) *Handler {
	return &Handler{
		specializations: crud.NewHandler(crud.Spec[Specialization, SpecializationInput]{
			Service:  svc.Specializations,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   []string{"name", "active"},
			Filter:   FilterSpecializations,
			Noun:     "specialization",
			Label:    func(s Specialization) string { return s.Name },
			Defaults: func() SpecializationInput { return SpecializationInput{IsActive: true} },
			Prefill: func(s Specialization) SpecializationInput {
				return SpecializationInput{Name: s.Name, Description: s.Description, IsActive: s.IsActive}
			},
		}),
		awards: crud.NewHandler(crud.Spec[Award, AwardInput]{
			Service:  svc.Awards,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   []string{"title", "issuer", "fromYear", "toYear"},
			Filter:   FilterAwards,
			Scope:    byDoctor,
			Noun:     "award",
			Label:    func(a Award) string { return a.Title },
			Prefill: func(a Award) AwardInput {
				return AwardInput{DoctorID: a.DoctorID.String(), Title: a.Title, Issuer: a.Issuer, Year: a.Year, Description: a.Description}
			},
			Check: checkAward(time.Now),
		}),
		qualifications: crud.NewHandler(crud.Spec[Qualification, QualificationInput]{
			Service:  svc.Qualifications,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   []string{"degree", "institution", "fromYear", "toYear"},
			Filter:   FilterQualifications,
			Scope:    byDoctor,
			Noun:     "qualification",
			Label:    func(q Qualification) string { return q.Degree + ", " + q.Institution },
			Prefill: func(q Qualification) QualificationInput {
				return QualificationInput{DoctorID: q.DoctorID.String(), Degree: q.Degree, Institution: q.Institution, Year: q.Year, CertificateURL: q.CertificateURL}
			},
			Check: checkQualification(time.Now),
		}),
	}
}

func (h *Handler) RegisterRoutes(ui *echo.Group) {
	h.specializations.RegisterRoutes(ui, "/specializations")
	h.awards.RegisterRoutes(ui, "/awards")
	h.qualifications.RegisterRoutes(ui, "/qualifications")
}
