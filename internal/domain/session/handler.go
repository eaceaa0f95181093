package session

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/form"
	"github.com/practice/dashboard/internal/platform/view"
)

type Handler struct {
	svc      *Service
	types    *crud.Handler[SessionType, SessionTypeInput]
	sessions *crud.Handler[Session, Input]
}

func NewHandler(svc *Service, d crud.Deps) *Handler {
	return &Handler{
		svc: svc,
		types: crud.NewHandler(crud.Spec[SessionType, SessionTypeInput]{
			Service:  svc.Types,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   []string{"name", "active", "telemedicine", "minDuration", "maxDuration"},
			Filter:   FilterTypes,
			Noun:     "session type",
			Label:    func(t SessionType) string { return t.Name },
			Defaults: func() SessionTypeInput { return SessionTypeInput{DefaultDurationMinutes: 30, IsActive: true} },
			Prefill:  prefillType,
		}),
		sessions: crud.NewHandler(crud.Spec[Session, Input]{
			Service:  svc.Sessions,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   []string{"doctorId", "sessionTypeId", "search", "minPrice", "maxPrice", "active"},
			Filter:   FilterSessions,
			Scope:    crud.BranchScope,
			Noun:     "session",
			Label: func(s Session) string {
				if s.DoctorName != "" && s.SessionTypeName != "" {
					return s.SessionTypeName + " with " + s.DoctorName
				}
				return "session #" + s.ID.String()
			},
			Defaults: func() Input { return Input{IsActive: true} },
			Prefill:  prefill,
			Check:    svc.checkSession,
		}),
	}
}

func (h *Handler) RegisterRoutes(ui *echo.Group) {
	h.types.RegisterRoutes(ui, "/session-types")
	ui.POST("/sessions/batch", h.CreateBatch)
	h.sessions.RegisterRoutes(ui, "/sessions")
}

// CreateBatch creates a session for every listed doctor. Like any create it
// commits without a confirmation.
func (h *Handler) CreateBatch(c echo.Context) error {
	var in BatchInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := form.Validate(in); err != nil {
		return c.JSON(view.HTTPStatus(err), form.NewCreate(in).WithError(err))
	}
	if err := h.svc.checkBatch(ctx, in); err != nil {
		return c.JSON(view.HTTPStatus(err), form.NewCreate(in).WithError(err))
	}
	out, err := h.svc.CreateBatch(ctx, in)
	if err != nil {
		return c.JSON(view.HTTPStatus(err), form.NewCreate(in).WithError(err))
	}
	return c.JSON(http.StatusCreated, out)
}
