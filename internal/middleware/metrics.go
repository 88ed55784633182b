package middleware

import (
	"ai-build-shop/internal/metrics"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Metrics records request counts and latency per route pattern. Errors are
// rendered here first so the observed status is the one the client gets; the
// error handler ignores already committed responses.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveHTTPRequest(c.Request().Method, route, strconv.Itoa(c.Response().Status), time.Since(start))
			return err
		}
	}
}
