package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// RecordFunc receives one observation per request.
type RecordFunc func(method, endpoint string, statusCode int, duration time.Duration)

// Metrics times each request and reports it under its route pattern, so
// /api/specialists/:id is one series regardless of the id.
func Metrics(record RecordFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = StatusOf(err)
			}
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			record(c.Request().Method, endpoint, status, time.Since(start))
			return err
		}
	}
}
