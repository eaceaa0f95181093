package appointment

import (
	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/modal"
	"github.com/practice/dashboard/internal/platform/view"
)

type Handler struct {
	svc          *Service
	appointments *crud.Handler[Appointment, Input]
}

func NewHandler(svc *Service, d crud.Deps) *Handler {
	return &Handler{
		svc: svc,
		appointments: crud.NewHandler(crud.Spec[Appointment, Input]{
			Service:  svc.Service,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   FilterFields,
			Filter:   FilterAppointments,
			Scope:    crud.BranchScope,
			Noun:     "appointment",
			Label: func(a Appointment) string {
				if a.PatientName == "" {
					return "appointment #" + a.ID.String()
				}
				return "the appointment of " + a.PatientName + " on " + a.AppointmentDateTime
			},
			Prefill: prefill,
			Check:   svc.check,
		}),
	}
}

func (h *Handler) RegisterRoutes(ui *echo.Group) {
	h.appointments.RegisterRoutes(ui, "/appointments")
	ui.PATCH("/appointments/:id/check-in", h.guard(CanCheckIn, h.appointments.Command(modal.KindToggle, "check-in", "Check in")))
	ui.PATCH("/appointments/:id/cancel", h.guard(CanCancel, h.appointments.Command(modal.KindCancel, "cancel", "Cancel")))
}

// guard loads the appointment and refuses the command when its status does
// not allow it. No dialog is opened in that case.
func (h *Handler) guard(allowed func(Appointment) error, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		res := h.svc.Get(c.Request().Context(), c.Param("id"))
		if res.Err != nil {
			return view.WriteError(c, res.Err)
		}
		if res.Data != nil {
			if err := allowed(*res.Data); err != nil {
				return view.WriteError(c, err)
			}
		}
		return next(c)
	}
}
