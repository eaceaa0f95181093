package crud

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practice/dashboard/internal/platform/apiclient"
	"github.com/practice/dashboard/internal/platform/appctx"
	"github.com/practice/dashboard/internal/platform/audit"
	"github.com/practice/dashboard/internal/platform/liststate"
	"github.com/practice/dashboard/internal/platform/modal"
	"github.com/practice/dashboard/internal/platform/query"
)

// Deps is what every feature area is built from.
type Deps struct {
	Client    *apiclient.Client
	Cache     *query.Client
	Audit     audit.Recorder
	Modals    *modal.Store
	Views     *liststate.Store
	PageSize  int
	FetchSize int
	Logger    zerolog.Logger
}

// NewResourceService binds the collection at path to the shared cache and
// audit trail.
func NewResourceService[T any](d Deps, name, path string, related ...string) *Service[T] {
	return NewService(Options[T]{
		Name:      name,
		Resource:  apiclient.NewResource[T](d.Client, path),
		Cache:     d.Cache,
		Audit:     d.Audit,
		FetchSize: d.FetchSize,
		Related:   related,
		Logger:    d.Logger.With().Str("resource", name).Logger(),
	})
}

// BranchScope limits a list read to the session's selected branch.
func BranchScope(c echo.Context) apiclient.Params {
	if b := appctx.From(c).BranchID; b != "" {
		return apiclient.Params{"branchId": b}
	}
	return nil
}
