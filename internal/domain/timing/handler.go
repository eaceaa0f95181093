package timing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/form"
	"github.com/practice/dashboard/internal/platform/modal"
	"github.com/practice/dashboard/internal/platform/view"
)

const base = "/timings/doctors/:doctorId"

type Handler struct {
	svc            *Service
	availabilities *crud.Handler[Availability, AvailabilityInput]
	timeOffs       *crud.Handler[TimeOff, TimeOffInput]
}

func NewHandler(svc *Service, d crud.Deps) *Handler {
	return &Handler{
		svc: svc,
		availabilities: crud.NewHandler(crud.Spec[Availability, AvailabilityInput]{
			Resolve:  func(c echo.Context) *crud.Service[Availability] { return svc.Availabilities(c.Param("doctorId")) },
			IDParam:  "availabilityId",
			View:     ResourceAvailabilities,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   []string{"dayOfWeek", "emergency"},
			Filter:   FilterAvailabilities,
			Noun:     "availability",
			Label:    func(a Availability) string { return a.DayOfWeek + " availability" },
			Defaults: func() AvailabilityInput {
				return AvailabilityInput{DayOfWeek: "MONDAY", Durations: []DurationInput{{StartTime: "09:00", EndTime: "17:00"}}}
			},
			Prefill: prefillAvailability,
			Check:   checkAvailability,
		}),
		timeOffs: crud.NewHandler(crud.Spec[TimeOff, TimeOffInput]{
			Resolve:  func(c echo.Context) *crud.Service[TimeOff] { return svc.TimeOffs(c.Param("doctorId")) },
			IDParam:  "timeOffId",
			View:     ResourceTimeOffs,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   []string{"status", "search", "special", "from", "to"},
			Filter:   FilterTimeOffs,
			Noun:     "time-off",
			Label: func(t TimeOff) string {
				if t.Description != "" {
					return "time-off \"" + t.Description + "\""
				}
				return "time-off from " + t.StartDatetime
			},
			Prefill: prefillTimeOff,
			Check:   checkTimeOff,
		}),
	}
}

func (h *Handler) RegisterRoutes(ui *echo.Group) {
	ui.GET(base+"/week", h.Week)
	h.availabilities.RegisterRoutes(ui, base+"/availabilities")

	offs := base + "/time-offs"
	item := offs + "/:timeOffId"
	ui.GET(offs, h.timeOffs.List)
	ui.GET(offs+"/new", h.timeOffs.NewForm)
	ui.POST(offs+"/check-conflicts", h.CheckConflicts)
	ui.POST(offs, h.CreateTimeOff)
	ui.GET(item, h.timeOffs.Detail)
	ui.PATCH(item+"/cancel", h.timeOffs.Command(modal.KindCancel, "cancel", "Cancel"))
}

func (h *Handler) Week(c echo.Context) error {
	days, err := h.svc.Week(c.Request().Context(), c.Param("doctorId"))
	if err != nil {
		return view.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, days)
}

// ConflictReport is the warning list for a time-off request.
type ConflictReport struct {
	HasConflicts bool       `json:"hasConflicts"`
	Conflicts    []Conflict `json:"conflicts"`
}

// CheckConflicts reports overlaps without saving anything.
func (h *Handler) CheckConflicts(c echo.Context) error {
	var in TimeOffInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.timeOffs.Validate(ctx, in); err != nil {
		return view.WriteError(c, err)
	}
	conflicts, err := h.svc.CheckConflicts(ctx, c.Param("doctorId"), in)
	if err != nil {
		return view.WriteError(c, err)
	}
	if conflicts == nil {
		conflicts = []Conflict{}
	}
	return c.JSON(http.StatusOK, ConflictReport{HasConflicts: len(conflicts) > 0, Conflicts: conflicts})
}

// timeOffForm is the create form with any overlap warnings. Force, when
// set, is where the same values can be resubmitted to save anyway.
type timeOffForm struct {
	form.View[TimeOffInput]
	Conflicts []Conflict `json:"conflicts,omitempty"`
	Force     string     `json:"force,omitempty"`
}

// CreateTimeOff saves directly when nothing overlaps. Otherwise it answers
// 409 with the warnings; resubmitting with ?force=true saves anyway.
func (h *Handler) CreateTimeOff(c echo.Context) error {
	var in TimeOffInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.timeOffs.Validate(ctx, in); err != nil {
		return c.JSON(view.HTTPStatus(err), timeOffForm{View: form.NewCreate(in).WithError(err)})
	}
	force, _ := strconv.ParseBool(c.QueryParam("force"))
	out, err := h.svc.CreateTimeOff(ctx, c.Param("doctorId"), in, force)
	if err != nil {
		v := timeOffForm{View: form.NewCreate(in).WithError(err)}
		var ce *ConflictError
		if errors.As(err, &ce) {
			v.Conflicts = ce.Conflicts
			v.Force = c.Request().URL.Path + "?force=true"
		}
		return c.JSON(view.HTTPStatus(err), v)
	}
	return c.JSON(http.StatusCreated, out)
}
