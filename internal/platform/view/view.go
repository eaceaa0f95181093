// Package view renders the JSON documents the dashboard shell displays: list
// and detail views with their loading, error and success states, form views,
// and confirmation hand-offs.
package view

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/form"
	"github.com/practice/dashboard/internal/platform/liststate"
	"github.com/practice/dashboard/internal/platform/modal"
	"github.com/practice/dashboard/internal/platform/query"
	"github.com/practice/dashboard/pkg/pagination"
)

// Error describes a failure the view must show with a retry affordance.
type Error struct {
	Kind    apiclient.Kind `json:"kind"`
	Message string         `json:"message"`
	Status  int            `json:"status,omitempty"`
	Retry   string         `json:"retry,omitempty"`
}

// ErrorOf builds the error panel for err. retry is the href that re-issues
// the failed read.
func ErrorOf(err error, retry string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    apiclient.KindOf(err),
		Message: apiclient.Message(err),
		Status:  apiclient.StatusOf(err),
		Retry:   retry,
	}
}

// List is a list view. State is exactly one of loading, error or success.
// When State is error and rows from an earlier read are still shown, Stale
// is set so they are never mistaken for fresh data.
type List[T any] struct {
	State     query.Status      `json:"state"`
	Filters   liststate.Values  `json:"filters"`
	Page      liststate.Page[T] `json:"page"`
	Links     pagination.Links  `json:"links"`
	Stale     bool              `json:"stale"`
	Error     *Error            `json:"error,omitempty"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
}

// ListOf derives the visible page from a read result and the view state.
func ListOf[T any](c echo.Context, res query.Result[[]T], st liststate.State, sel *liststate.Selector[T]) List[T] {
	self := c.Request().URL.Path
	out := List[T]{State: res.Status, Filters: st.Filters}
	if out.Filters == nil {
		out.Filters = liststate.Values{}
	}

	switch res.Status {
	case query.StatusSuccess, query.StatusError:
		out.Stale = res.Stale
		if res.Status == query.StatusError {
			out.Error = ErrorOf(res.Err, self)
		}
		if res.Status == query.StatusSuccess || res.Stale {
			out.Page = sel.Select(res.Version, res.Data, st)
			at := res.UpdatedAt
			out.UpdatedAt = &at
		} else {
			out.Page = liststate.Paginate[T](nil, 0, sel.PageSize())
		}
	default:
		out.Page = liststate.Paginate[T](nil, 0, sel.PageSize())
	}
	out.Links = pagination.PageLinks(self, c.QueryParams(), st.Page, out.Page.TotalPages)
	return out
}

// Detail is a single-record view.
type Detail[T any] struct {
	State query.Status `json:"state"`
	Data  *T           `json:"data,omitempty"`
	Stale bool         `json:"stale"`
	Error *Error       `json:"error,omitempty"`
}

// DetailOf renders a read of one record.
func DetailOf[T any](c echo.Context, res query.Result[*T]) Detail[T] {
	d := Detail[T]{State: res.Status, Stale: res.Stale}
	if res.Status == query.StatusSuccess || res.Stale {
		d.Data = res.Data
	}
	if res.Status == query.StatusError {
		d.Error = ErrorOf(res.Err, c.Request().URL.Path)
	}
	return d
}

// StatusOf returns the HTTP status a view with this error is served with.
// Reads that failed upstream still render a view, so only missing records
// change the status.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if apiclient.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusOK
}

// HTTPStatus maps a failed command to the response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, query.ErrMutationPending), errors.Is(err, modal.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, modal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, modal.ErrNotError):
		return http.StatusBadRequest
	}

	switch apiclient.KindOf(err) {
	case apiclient.KindValidation:
		return http.StatusUnprocessableEntity
	case apiclient.KindConflict:
		return http.StatusConflict
	case apiclient.KindRequest:
		if s := apiclient.StatusOf(err); s >= 400 && s < 500 {
			return s
		}
		return http.StatusBadRequest
	case apiclient.KindServer, apiclient.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error  *Error            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteError renders a failed command. Field-scoped validation errors are
// returned per field.
func WriteError(c echo.Context, err error) error {
	body := errorBody{Error: &Error{Kind: apiclient.KindOf(err), Message: apiclient.Message(err), Status: apiclient.StatusOf(err)}}
	if errors.Is(err, query.ErrMutationPending) || errors.Is(err, modal.ErrBusy) ||
		errors.Is(err, modal.ErrNotFound) || errors.Is(err, modal.ErrNotError) {
		body.Error.Message = err.Error()
	}
	var ferrs form.Errors
	if errors.As(err, &ferrs) {
		body.Error.Message = "Please correct the highlighted fields."
		body.Fields = ferrs.ByField()
	}
	return c.JSON(HTTPStatus(err), body)
}

// Confirmation is returned with 202 when a command waits for the user to
// confirm it.
type Confirmation struct {
	Dialog  modal.Dialog `json:"confirmation"`
	Confirm string       `json:"confirm"`
	Cancel  string       `json:"cancel"`
}

// ConfirmationPath is where dialogs are served.
const ConfirmationPath = "/ui/confirmations/"

// Accepted writes the 202 hand-off for an opened dialog.
func Accepted(c echo.Context, d modal.Dialog) error {
	return c.JSON(http.StatusAccepted, ConfirmationOf(d))
}

func ConfirmationOf(d modal.Dialog) Confirmation {
	return Confirmation{
		Dialog:  d,
		Confirm: ConfirmationPath + d.ID + "/confirm",
		Cancel:  ConfirmationPath + d.ID + "/cancel",
	}
}
