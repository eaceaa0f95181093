package crud

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/form"
	"github.com/practice/dashboard/internal/platform/liststate"
	"github.com/practice/dashboard/internal/platform/modal"
	"github.com/practice/dashboard/internal/platform/query"
	"github.com/practice/dashboard/internal/platform/view"
	"github.com/practice/dashboard/pkg/pagination"
)

// Spec describes the standard views of one resource. T is the record, In
// the form input.
type Spec[T any, In any] struct {
	Service *Service[T]
	// Resolve picks the service per request for nested collections.
	Resolve func(c echo.Context) *Service[T]
	// IDParam defaults to "id".
	IDParam string
	Modals  *modal.Store
	Views   *liststate.Store

	// View names the per-session list state; defaults to the service name.
	View     string
	PageSize int
	// Fields are the filter inputs read from the query string.
	Fields []string
	Filter func(rows []T, v liststate.Values) []T
	// Scope adds backend query parameters to the list read.
	Scope func(c echo.Context) apiclient.Params

	// SoftDelete names the action a delete runs instead of DELETE.
	SoftDelete string

	// Noun names one record in dialog titles, e.g. "doctor".
	Noun  string
	Label func(T) string

	Defaults func() In
	Prefill  func(T) In
	// Check runs after tag validation.
	Check func(ctx context.Context, in In) error
}

// Handler serves list, detail, form, create, update, delete and
// confirmation-backed commands for one resource.
type Handler[T any, In any] struct {
	spec Spec[T, In]
	sel  *liststate.Selector[T]
}

func NewHandler[T any, In any](spec Spec[T, In]) *Handler[T, In] {
	if spec.View == "" && spec.Service != nil {
		spec.View = spec.Service.Name()
	}
	if spec.IDParam == "" {
		spec.IDParam = "id"
	}
	if spec.Filter == nil {
		spec.Filter = func(rows []T, _ liststate.Values) []T { return rows }
	}
	return &Handler[T, In]{
		spec: spec,
		sel:  liststate.NewSelector(spec.PageSize, spec.Filter),
	}
}

// Selector exposes the memoized list pipeline.
func (h *Handler[T, In]) Selector() *liststate.Selector[T] { return h.sel }

// RegisterRoutes mounts the standard routes under path.
func (h *Handler[T, In]) RegisterRoutes(ui *echo.Group, path string) {
	ui.GET(path, h.List)
	ui.GET(path+"/new", h.NewForm)
	item := path + "/:" + h.spec.IDParam
	ui.GET(item, h.Detail)
	ui.GET(item+"/edit", h.EditForm)
	ui.POST(path, h.Create)
	ui.PUT(item, h.Update)
	ui.DELETE(item, h.Delete)
}

// ListState applies the request's filters and page to the stored view state.
func (h *Handler[T, In]) ListState(c echo.Context) liststate.State {
	filters := liststate.Values{}
	for _, f := range h.spec.Fields {
		filters[f] = c.QueryParam(f)
	}
	return h.spec.Views.Apply(appctx.From(c).SessionID, h.spec.View, filters, pagination.FromContext(c).Ptr())
}

func (h *Handler[T, In]) service(c echo.Context) *Service[T] {
	if h.spec.Resolve != nil {
		return h.spec.Resolve(c)
	}
	return h.spec.Service
}

func (h *Handler[T, In]) id(c echo.Context) string {
	return c.Param(h.spec.IDParam)
}

func (h *Handler[T, In]) scope(c echo.Context) apiclient.Params {
	if h.spec.Scope == nil {
		return nil
	}
	return h.spec.Scope(c)
}

func (h *Handler[T, In]) List(c echo.Context) error {
	st := h.ListState(c)
	res := h.service(c).All(c.Request().Context(), h.scope(c))
	return c.JSON(http.StatusOK, view.ListOf(c, res, st, h.sel))
}

func (h *Handler[T, In]) Detail(c echo.Context) error {
	res := h.service(c).Get(c.Request().Context(), h.id(c))
	return c.JSON(view.StatusOf(res.Err), view.DetailOf(c, res))
}

func (h *Handler[T, In]) NewForm(c echo.Context) error {
	var in In
	if h.spec.Defaults != nil {
		in = h.spec.Defaults()
	}
	return c.JSON(http.StatusOK, form.NewCreate(in))
}

// EditForm returns the form prefilled from the fetched record.
func (h *Handler[T, In]) EditForm(c echo.Context) error {
	id := h.id(c)
	res := h.service(c).Get(c.Request().Context(), id)
	if res.Status != query.StatusSuccess || res.Data == nil {
		var in In
		if h.spec.Defaults != nil {
			in = h.spec.Defaults()
		}
		v := form.NewEdit(id, in)
		v.Loading = res.IsLoading()
		if res.Err != nil {
			v = v.WithError(res.Err)
		}
		return c.JSON(view.StatusOf(res.Err), v)
	}
	v := form.NewEdit(id, h.spec.Prefill(*res.Data))
	v.Pending = h.service(c).Pending(id)
	return c.JSON(http.StatusOK, v)
}

// Validate runs the schema and the cross-field check.
func (h *Handler[T, In]) Validate(ctx context.Context, in In) error {
	if err := form.Validate(in); err != nil {
		return err
	}
	if h.spec.Check != nil {
		return h.spec.Check(ctx, in)
	}
	return nil
}

// Create commits directly. A failure keeps the submitted values in the
// returned form.
func (h *Handler[T, In]) Create(c echo.Context) error {
	var in In
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.Validate(ctx, in); err != nil {
		return c.JSON(view.HTTPStatus(err), form.NewCreate(in).WithError(err))
	}
	out, err := h.service(c).Create(ctx, in)
	if err != nil {
		return c.JSON(view.HTTPStatus(err), form.NewCreate(in).WithError(err))
	}
	return c.JSON(http.StatusCreated, out)
}

// Update validates the edit, then opens an update confirmation. Nothing is
// sent to the backend until the dialog is confirmed.
func (h *Handler[T, In]) Update(c echo.Context) error {
	id := h.id(c)
	var in In
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.Validate(c.Request().Context(), in); err != nil {
		return c.JSON(view.HTTPStatus(err), form.NewEdit(id, in).WithError(err))
	}
	svc := h.service(c)
	return h.Confirm(c, modal.Request{
		Kind:        modal.KindUpdate,
		Title:       fmt.Sprintf("Update %s", h.spec.Noun),
		Description: fmt.Sprintf("Save changes to %s?", h.describe(c, id)),
		Target:      modal.Target{Resource: svc.Name(), ID: id, Payload: in},
	}, func(ctx context.Context) (any, error) {
		return svc.Update(ctx, id, in)
	})
}

// Delete opens a delete confirmation.
func (h *Handler[T, In]) Delete(c echo.Context) error {
	id := h.id(c)
	svc := h.service(c)
	req := modal.Request{
		Kind:        modal.KindDelete,
		Title:       fmt.Sprintf("Delete %s", h.spec.Noun),
		Description: fmt.Sprintf("Delete %s? This cannot be undone.", h.describe(c, id)),
		Target:      modal.Target{Resource: svc.Name(), ID: id},
	}
	if h.spec.SoftDelete != "" {
		req.Description = fmt.Sprintf("Delete %s? It can be reactivated later.", h.describe(c, id))
		return h.Confirm(c, req, func(ctx context.Context) (any, error) {
			return svc.Act(ctx, Action{Method: http.MethodPatch, ID: id, Name: h.spec.SoftDelete})
		})
	}
	return h.Confirm(c, req, func(ctx context.Context) (any, error) {
		if err := svc.Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{"id": id, "status": "deleted"}, nil
	})
}

// Toggle returns a handler that confirms a status command such as
// activate or deactivate.
func (h *Handler[T, In]) Toggle(action, verb string) echo.HandlerFunc {
	return h.Command(modal.KindToggle, action, verb)
}

// Command returns a handler that confirms a PATCH action on one record. A
// JSON request body, when present, is sent with the action.
func (h *Handler[T, In]) Command(kind modal.Kind, action, verb string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := h.id(c)
		svc := h.service(c)
		var body map[string]any
		if c.Request().ContentLength > 0 {
			if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
			}
		}
		return h.Confirm(c, modal.Request{
			Kind:        kind,
			Title:       fmt.Sprintf("%s %s", verb, h.spec.Noun),
			Description: fmt.Sprintf("%s %s?", verb, h.describe(c, id)),
			Target:      modal.Target{Resource: svc.Name(), ID: id, Payload: body},
		}, func(ctx context.Context) (any, error) {
			a := Action{Method: http.MethodPatch, ID: id, Name: action}
			if body != nil {
				a.Body = body
			}
			return svc.Act(ctx, a)
		})
	}
}

// Confirm opens a dialog owned by the caller's session and answers 202.
func (h *Handler[T, In]) Confirm(c echo.Context, req modal.Request, cb modal.Callback) error {
	d := h.spec.Modals.Open(appctx.From(c).SessionID, req, cb)
	return view.Accepted(c, d)
}

// describe names a record for a dialog, using the cached copy when there is
// one.
func (h *Handler[T, In]) describe(c echo.Context, id string) string {
	if h.spec.Label != nil {
		if res := h.service(c).Peek(c.Request().Context(), id); res.Data != nil {
			return h.spec.Label(*res.Data)
		}
	}
	return fmt.Sprintf("%s #%s", h.spec.Noun, id)
}
