package audit

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/liststate"
	"github.com/practice/dashboard/internal/platform/query"
	"github.com/practice/dashboard/internal/platform/view"
	"github.com/practice/dashboard/pkg/pagination"
)

// Handler serves the audit trail through the same list pipeline as every
// other list view.
type Handler struct {
	rec       Recorder
	views     *liststate.Store
	sel       *liststate.Selector[Entry]
	fetchSize int
}

func NewHandler(rec Recorder, views *liststate.Store, pageSize, fetchSize int) *Handler {
	return &Handler{
		rec:       rec,
		views:     views,
		sel:       liststate.NewSelector(pageSize, FilterEntries),
		fetchSize: fetchSize,
	}
}

func (h *Handler) RegisterRoutes(ui *echo.Group) {
	ui.GET("/audit", h.List)
}

// FilterEntries applies the audit view's filters.
func FilterEntries(rows []Entry, v liststate.Values) []Entry {
	return liststate.Filter(rows,
		liststate.Enum("resource", v.Get("resource"), func(e Entry) string { return e.Resource }),
		liststate.Enum("action", v.Get("action"), func(e Entry) string { return e.Action }),
		liststate.Enum("outcome", v.Get("outcome"), func(e Entry) string { return string(e.Outcome) }),
		liststate.Text("user", v.Get("user"), func(e Entry) string { return e.UserID }),
		liststate.Text("target", v.Get("target"), func(e Entry) string { return e.TargetID }),
	)
}

func (h *Handler) List(c echo.Context) error {
	filters := liststate.Values{
		"resource": c.QueryParam("resource"),
		"action":   c.QueryParam("action"),
		"outcome":  c.QueryParam("outcome"),
		"user":     c.QueryParam("user"),
		"target":   c.QueryParam("target"),
	}
	st := h.views.Apply(appctx.From(c).SessionID, "audit", filters, pagination.FromContext(c).Ptr())

	res := h.read(c.Request().Context())
	return c.JSON(http.StatusOK, view.ListOf(c, res, st, h.sel))
}

func (h *Handler) read(ctx context.Context) query.Result[[]Entry] {
	entries, err := h.rec.List(ctx, h.fetchSize)
	if err != nil {
		return query.Result[[]Entry]{Err: err, Status: query.StatusError}
	}
	// The trail is append-only and newest first, so the newest entry
	// identifies the collection.
	var version uint64
	if len(entries) > 0 {
		version = uint64(entries[0].OccurredAt.UnixNano())
	}
	return query.Result[[]Entry]{Data: entries, Status: query.StatusSuccess, Version: version}
}
