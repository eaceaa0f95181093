package patient

import (
	"context"
	"time"

	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/form"
	"github.com/practice/dashboard/internal/platform/liststate"
)

const (
	ResourcePatients          = "patients"
	ResourceAllergies         = "patient-allergies"
	ResourceEmergencyContacts = "emergency-contacts"
)

type Service struct {
	Patients  *crud.Service[Patient]
	Allergies *crud.Service[Allergy]
	Contacts  *crud.Service[EmergencyContact]
}

func NewService(d crud.Deps) *Service {
	return &Service{
		Patients:  crud.NewResourceService[Patient](d, ResourcePatients, "/api/v1/patients", "appointments"),
		Allergies: crud.NewResourceService[Allergy](d, ResourceAllergies, "/api/v1/patient-allergies", ResourcePatients),
		Contacts:  crud.NewResourceService[EmergencyContact](d, ResourceEmergencyContacts, "/api/v1/emergency-contacts", ResourcePatients),
	}
}

// FilterPatients applies the patients list filters.
func FilterPatients(rows []Patient, v liststate.Values) []Patient {
	return liststate.Filter(rows,
		liststate.AnyText("name", v.Get("name"),
			Patient.FullName,
			func(p Patient) string { return p.LastName + " " + p.FirstName },
		),
		liststate.Text("email", v.Get("email"), func(p Patient) string { return p.Email }),
		liststate.Text("phone", v.Get("phone"), func(p Patient) string { return p.Phone }),
		liststate.Enum("gender", v.Get("gender"), func(p Patient) string { return p.Gender }),
		liststate.Enum("bloodGroup", v.Get("bloodGroup"), func(p Patient) string { return p.BloodGroup }),
		liststate.Bool("active", v.Bool("active"), func(p Patient) bool { return p.IsActive }),
	)
}

var FilterFields = []string{"name", "email", "phone", "gender", "bloodGroup", "active"}

func FilterAllergies(rows []Allergy, v liststate.Values) []Allergy {
	return liststate.Filter(rows,
		liststate.Text("allergen", v.Get("allergen"), func(a Allergy) string { return a.Allergen }),
		liststate.Enum("severity", v.Get("severity"), func(a Allergy) string { return a.Severity }),
	)
}

func FilterContacts(rows []EmergencyContact, v liststate.Values) []EmergencyContact {
	return liststate.Filter(rows,
		liststate.Text("name", v.Get("name"), func(c EmergencyContact) string { return c.Name }),
		liststate.Text("relationship", v.Get("relationship"), func(c EmergencyContact) string { return c.Relationship }),
	)
}

// checkBirthDate rejects dates of birth in the future.
func checkBirthDate(now func() time.Time) func(context.Context, Input) error {
	return func(_ context.Context, in Input) error {
		dob, err := time.Parse(time.DateOnly, in.DateOfBirth)
		if err != nil {
			return form.Field("dateOfBirth", "datetime", "must be a date (YYYY-MM-DD)")
		}
		if dob.After(now()) {
			return form.Field("dateOfBirth", "past", "must be in the past")
		}
		return nil
	}
}
