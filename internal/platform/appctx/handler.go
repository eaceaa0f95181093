package appctx

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	branches *BranchStore
}

func NewHandler(branches *BranchStore) *Handler {
	return &Handler{branches: branches}
}

func (h *Handler) RegisterRoutes(ui *echo.Group) {
	ui.GET("/context", h.Get)
	ui.PUT("/context/branch", h.SelectBranch)
}

func (h *Handler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, From(c))
}

type branchRequest struct {
	BranchID string `json:"branchId"`
}

// SelectBranch sets or clears the session's selected branch.
func (h *Handler) SelectBranch(c echo.Context) error {
	var req branchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a := From(c)
	if a.SessionID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	h.branches.Set(a.SessionID, req.BranchID)
	a.BranchID = req.BranchID
	return c.JSON(http.StatusOK, a)
}
