package doctor

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/crud"
	"github.com/practice/dashboard/internal/platform/view"
)

type Handler struct {
	svc       *Service
	doctors   *crud.Handler[Doctor, Input]
	addresses *crud.Handler[Address, AddressInput]
}

func NewHandler(svc *Service, d crud.Deps) *Handler {
	return &Handler{
		svc: svc,
		doctors: crud.NewHandler(crud.Spec[Doctor, Input]{
			Service:  svc.Service,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Fields:   FilterFields,
			Filter:   FilterDoctors,
			Scope:    crud.BranchScope,
			Noun:     "doctor",
			Label:    func(doc Doctor) string { return doc.Name },
			Defaults: defaults,
			Prefill:  prefill,
		}),
		addresses: crud.NewHandler(crud.Spec[Address, AddressInput]{
			Resolve:  func(c echo.Context) *crud.Service[Address] { return svc.Addresses(c.Param("id")) },
			IDParam:  "addressId",
			View:     ResourceAddresses,
			Modals:   d.Modals,
			Views:    d.Views,
			PageSize: d.PageSize,
			Noun:     "branch assignment",
			Label:    func(a Address) string { return a.Address },
		}),
	}
}

func (h *Handler) RegisterRoutes(ui *echo.Group) {
	ui.GET("/doctors/options", h.Options)
	h.doctors.RegisterRoutes(ui, "/doctors")
	ui.PATCH("/doctors/:id/activate", h.doctors.Toggle("activate", "Activate"))
	ui.PATCH("/doctors/:id/deactivate", h.doctors.Toggle("deactivate", "Deactivate"))

	ui.GET("/doctors/:id/addresses", h.addresses.List)
	ui.POST("/doctors/:id/addresses", h.addresses.Create)
	ui.DELETE("/doctors/:id/addresses/:addressId", h.addresses.Delete)
}

// Options lists the active doctors of the selected branch for pickers.
func (h *Handler) Options(c echo.Context) error {
	res := h.svc.Active(c.Request().Context(), appctx.From(c).BranchID)
	if res.Err != nil {
		return view.WriteError(c, res.Err)
	}
	return c.JSON(http.StatusOK, Options(res.Data))
}
