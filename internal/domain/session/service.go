package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/practice/dashboard/internal/domain/doctor"
	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/form"
	"github.com/practice/dashboard/internal/platform/liststate"
)

const (
	ResourceSessionTypes = "session-types"
	ResourceSessions     = "sessions"
)

type Service struct {
	Types    *crud.Service[SessionType]
	Sessions *crud.Service[Session]
	doctors  *doctor.Service
}

func NewService(d crud.Deps, doctors *doctor.Service) *Service {
	return &Service{
		// Sessions carry their type's name.
		Types:    crud.NewResourceService[SessionType](d, ResourceSessionTypes, "/api/v1/session-types", ResourceSessions),
		Sessions: crud.NewResourceService[Session](d, ResourceSessions, "/api/v1/sessions", "appointments"),
		doctors:  doctors,
	}
}

// CreateBatch creates one session per doctor in a single request.
func (s *Service) CreateBatch(ctx context.Context, in BatchInput) ([]Session, error) {
	return s.Sessions.ActOnCollection(ctx, crud.Action{Method: http.MethodPost, Name: "batch", Body: in})
}

// checkDoctors rejects doctors that are not active. field is the form
// field reported on failure.
func (s *Service) checkDoctors(ctx context.Context, field string, ids []string) error {
	var errs form.Errors
	for i, id := range ids {
		ok, err := s.doctors.IsActive(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			name := field
			if len(ids) > 1 {
				name = fmt.Sprintf("%s[%d]", field, i)
			}
			errs = append(errs, form.Field(name, "active", "must be an active doctor")...)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Service) checkSession(ctx context.Context, in Input) error {
	return s.checkDoctors(ctx, "doctorId", []string{in.DoctorID})
}

func (s *Service) checkBatch(ctx context.Context, in BatchInput) error {
	seen := make(map[string]bool, len(in.DoctorIDs))
	for _, id := range in.DoctorIDs {
		if seen[id] {
			return form.Field("doctorIds", "unique", "must not list a doctor twice")
		}
		seen[id] = true
	}
	return s.checkDoctors(ctx, "doctorIds", in.DoctorIDs)
}

func FilterTypes(rows []SessionType, v liststate.Values) []SessionType {
	return liststate.Filter(rows,
		liststate.Text("name", v.Get("name"), func(t SessionType) string { return t.Name }),
		liststate.Bool("active", v.Bool("active"), func(t SessionType) bool { return t.IsActive }),
		liststate.Bool("telemedicine", v.Bool("telemedicine"), func(t SessionType) bool { return t.IsTelemedicineAvailable }),
		liststate.Range("duration", v.Float("minDuration"), v.Float("maxDuration"), func(t SessionType) float64 {
			return float64(t.DefaultDurationMinutes)
		}),
	)
}

func FilterSessions(rows []Session, v liststate.Values) []Session {
	return liststate.Filter(rows,
		liststate.Enum("doctorId", v.Get("doctorId"), func(s Session) string { return s.DoctorID.String() }),
		liststate.Enum("sessionTypeId", v.Get("sessionTypeId"), func(s Session) string { return s.SessionTypeID.String() }),
		liststate.AnyText("search", v.Get("search"),
			func(s Session) string { return s.DoctorName },
			func(s Session) string { return s.SessionTypeName },
		),
		liststate.Range("price", v.Float("minPrice"), v.Float("maxPrice"), func(s Session) float64 { return s.Price }),
		liststate.Bool("active", v.Bool("active"), func(s Session) bool { return s.IsActive }),
	)
}
