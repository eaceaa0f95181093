package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery turns a panicking view handler into a 500 error panel. The panic
// and its stack go to the log, never to the response.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				rid, _ := c.Get("request_id").(string)
				sid, _ := c.Get("session_id").(string)
				logger.Error().
					Str("request_id", rid).
					Str("session_id", sid).
					Str("method", c.Request().Method).
					Str("path", c.Path()).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("view handler panicked")

				err = echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong. Try again.")
			}()
			return next(c)
		}
	}
}
