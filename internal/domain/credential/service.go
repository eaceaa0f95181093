// Package credential manages the attribute records shown on a doctor's
// profile: specializations, awards and qualifications.
package credential

import (
	"context"
	"time"

	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/form"
	"github.com/practice/dashboard/internal/platform/liststate"
)

const (
	ResourceSpecializations = "specializations"
	ResourceAwards          = "awards"
	ResourceQualifications  = "qualifications"
)

type Service struct {
	Specializations *crud.Service[Specialization]
	Awards          *crud.Service[Award]
	Qualifications  *crud.Service[Qualification]
}

func NewService(d crud.Deps) *Service {
	return &Service{
		Specializations: crud.NewResourceService[Specialization](d, ResourceSpecializations, "/api/v1/specializations", "doctors"),
		Awards:          crud.NewResourceService[Award](d, ResourceAwards, "/api/v1/awards", "doctors"),
		Qualifications:  crud.NewResourceService[Qualification](d, ResourceQualifications, "/api/v1/qualifications", "doctors"),
	}
}

// notFuture rejects a year after the current one.
func notFuture(now func() time.Time, year int) error {
	if year > now().Year() {
		return form.Field("year", "past", "must not be in the future")
	}
	return nil
}

func checkAward(now func() time.Time) func(context.Context, AwardInput) error {
	return func(_ context.Context, in AwardInput) error { return notFuture(now, in.Year) }
}

func checkQualification(now func() time.Time) func(context.Context, QualificationInput) error {
	return func(_ context.Context, in QualificationInput) error { return notFuture(now, in.Year) }
}

func FilterSpecializations(rows []Specialization, v liststate.Values) []Specialization {
	return liststate.Filter(rows,
		liststate.AnyText("name", v.Get("name"),
			func(s Specialization) string { return s.Name },
			func(s Specialization) string { return s.Description },
		),
		liststate.Bool("active", v.Bool("active"), func(s Specialization) bool { return s.IsActive }),
	)
}

func FilterAwards(rows []Award, v liststate.Values) []Award {
	return liststate.Filter(rows,
		liststate.Text("title", v.Get("title"), func(a Award) string { return a.Title }),
		liststate.Text("issuer", v.Get("issuer"), func(a Award) string { return a.Issuer }),
		liststate.Range("year", v.Float("fromYear"), v.Float("toYear"), func(a Award) float64 { return float64(a.Year) }),
	)
}

func FilterQualifications(rows []Qualification, v liststate.Values) []Qualification {
	return liststate.Filter(rows,
		liststate.Text("degree", v.Get("degree"), func(q Qualification) string { return q.Degree }),
		liststate.Text("institution", v.Get("institution"), func(q Qualification) string { return q.Institution }),
		liststate.Range("year", v.Float("fromYear"), v.Float("toYear"), func(q Qualification) float64 { return float64(q.Year) }),
	)
}
