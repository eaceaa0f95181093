package patient

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/crud"
)

type Handler struct {
	patients  *crud.Handler[Patient, Input]
	allergies *crud.Handler[Allergy, AllergyInput]
	contacts  *crud.Handler[EmergencyContact, EmergencyContactInput]
}

// byPatient scopes attribute lists to the patientId query parameter.
func byPatient(c echo.Context) apiclient.Params {
	return apiclient.Params{}.With("patientId", c.QueryParam("patientId"))
}

func NewHandler(svc *Service, d crud.Deps) *Handler {
	return &Handler{
		patients: crud.NewHandler(crud.Spec[Patient, Input]{
			Service:    svc.Patients,
			Modals:     d.Modals,
			Views:      d.Views,
			PageSize:   d.PageSize,
			Fields:     FilterFields,
			Filter:     FilterPatients,
			Scope:      crud.BranchScope,
			SoftDelete: "deactivate",
			Noun:       "patient",
			Label:      Patient.FullName,
			Defaults:   func() Input { return Input{Gender: "OTHER"} },
			Prefill:    prefill,
			Check:      checkBirthDate(time.Now),
		}),
		allergies: crud.NewHandler(crud.Spec[Allergy, AllergyInput]{
			Service:  svc.Allergies,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   []string{"allergen", "severity"},
			Filter:   FilterAllergies,
			Scope:    byPatient,
			Noun:     "allergy",
			Label:    func(a Allergy) string { return a.Allergen },
			Defaults: func() AllergyInput { return AllergyInput{Severity: "MILD"} },
			Prefill:  prefillAllergy,
		}),
		contacts: crud.NewHandler(crud.Spec[EmergencyContact, EmergencyContactInput]{
			Service:  svc.Contacts,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   []string{"name", "relationship"},
			Filter:   FilterContacts,
			Scope:    byPatient,
			Noun:     "emergency contact",
			Label:    func(c EmergencyContact) string { return c.Name },
			Prefill:  prefillContact,
		}),
	}
}

func (h *Handler) RegisterRoutes(ui *echo.Group) {
	h.patients.RegisterRoutes(ui, "/patients")
	ui.PATCH("/patients/:id/deactivate", h.patients.Toggle("deactivate", "Deactivate"))
	ui.PATCH("/patients/:id/reactivate", h.patients.Toggle("reactivate", "Reactivate"))

	h.allergies.RegisterRoutes(ui, "/patient-allergies")
	h.contacts.RegisterRoutes(ui, "/emergency-contacts")
}
