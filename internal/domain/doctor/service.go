package doctor

import (
	"context"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/liststate"
	"github.com/practice/dashboard/internal/platform/query"
)

// Resource names used as cache keys.
const (
	ResourceDoctors   = "doctors"
	ResourceAddresses = "doctor-addresses"
)

type Service struct {
	*crud.Service[Doctor]
	addresses *crud.Children[Address]
}

func NewService(d crud.Deps) *Service {
	return &Service{
		// Sessions and appointments embed doctor names; timings hang off
		// the doctor record.
		Service:   crud.NewResourceService[Doctor](d, ResourceDoctors, "/api/v1/doctors", "sessions", "appointments", "availabilities", "time-offs"),
		addresses: crud.NewChildren[Address](d, ResourceAddresses, "/api/v1/doctors/%s/addresses", ResourceDoctors),
	}
}

// Active returns the active doctors, optionally limited to one branch. Every
// form that picks a doctor reads through here.
func (s *Service) Active(ctx context.Context, branchID string) query.Result[[]Doctor] {
	res := s.All(ctx, apiclient.Params{}.With("branchId", branchID))
	res.Data = ActiveDoctors(res.Data)
	return res
}

// IsActive reports whether id names an active doctor.
func (s *Service) IsActive(ctx context.Context, id string) (bool, error) {
	res := s.Active(ctx, "")
	if res.Err != nil {
		return false, res.Err
	}
	for _, d := range res.Data {
		if d.ID.String() == id {
			return true, nil
		}
	}
	return false, nil
}

// Addresses returns the branches a doctor works at.
func (s *Service) Addresses(doctorID string) *crud.Service[Address] {
	return s.addresses.Of(doctorID)
}

// ActiveDoctors keeps doctors whose status is ACTIVE, preserving order.
func ActiveDoctors(rows []Doctor) []Doctor {
	return liststate.Filter(rows, liststate.Predicate[Doctor]{
		Field:  "status",
		Active: true,
		Match:  Doctor.Active,
	})
}

// Options renders doctors for a picker.
func Options(rows []Doctor) []Option {
	out := make([]Option, len(rows))
	for i, d := range rows {
		out[i] = Option{ID: d.ID, Name: d.Name, Speciality: d.Speciality}
	}
	return out
}

// FilterDoctors applies the doctors list filters.
func FilterDoctors(rows []Doctor, v liststate.Values) []Doctor {
	return liststate.Filter(rows,
		liststate.Text("name", v.Get("name"), func(d Doctor) string { return d.Name }),
		liststate.Text("email", v.Get("email"), func(d Doctor) string { return d.Email }),
		liststate.Text("speciality", v.Get("speciality"), func(d Doctor) string { return d.Speciality }),
		liststate.Enum("status", v.Get("status"), func(d Doctor) string { return string(d.Status) }),
		liststate.Enum("gender", v.Get("gender"), func(d Doctor) string { return d.Gender }),
		liststate.Range("experience", v.Float("minExperience"), v.Float("maxExperience"), func(d Doctor) float64 {
			return float64(d.ExperienceYears)
		}),
		liststate.Range("rating", v.Float("minRating"), nil, func(d Doctor) float64 { return d.RatingAverage }),
		liststate.Bool("verified", v.Bool("verified"), func(d Doctor) bool { return d.IsVerified }),
	)
}

// FilterFields are the doctors list filter inputs.
var FilterFields = []string{"name", "email", "speciality", "status", "gender", "minExperience", "maxExperience", "minRating", "verified"}
