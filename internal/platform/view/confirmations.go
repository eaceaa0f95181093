package view

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/modal"
)

// ConfirmationHandler serves the dialogs a session has open.
type ConfirmationHandler struct {
	modals *modal.Store
}

func NewConfirmationHandler(modals *modal.Store) *ConfirmationHandler {
	return &ConfirmationHandler{modals: modals}
}

func (h *ConfirmationHandler) RegisterRoutes(ui *echo.Group) {
	ui.GET("/confirmations", h.List)
	ui.GET("/confirmations/:id", h.Get)
	ui.POST("/confirmations/:id/confirm", h.Confirm)
	ui.POST("/confirmations/:id/cancel", h.Cancel)
	ui.POST("/confirmations/:id/acknowledge", h.Acknowledge)
}

func (h *ConfirmationHandler) List(c echo.Context) error {
	dialogs := h.modals.List(appctx.From(c).SessionID)
	out := make([]Confirmation, len(dialogs))
	for i, d := range dialogs {
		out[i] = ConfirmationOf(d)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ConfirmationHandler) Get(c echo.Context) error {
	d, err := h.modals.Get(appctx.From(c).SessionID, c.Param("id"))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, ConfirmationOf(d))
}

// Confirm runs the dialog's action. On failure the dialog stays open and the
// error is returned with the dialog so the form remains editable.
func (h *ConfirmationHandler) Confirm(c echo.Context) error {
	owner := appctx.From(c).SessionID
	id := c.Param("id")
	out, err := h.modals.Confirm(c.Request().Context(), owner, id)
	if err != nil {
		return WriteError(c, err)
	}
	if out == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ConfirmationHandler) Cancel(c echo.Context) error {
	if err := h.modals.Cancel(appctx.From(c).SessionID, c.Param("id")); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ConfirmationHandler) Acknowledge(c echo.Context) error {
	if err := h.modals.Acknowledge(appctx.From(c).SessionID, c.Param("id")); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
