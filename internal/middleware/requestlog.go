package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-gateway/internal/metrics"
)

// RequestLog logs one line per request and records it in m.  The client id
// is read after the handler ran, so it is present for authenticated routes.
func RequestLog(log *slog.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			req := c.Request()
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			if m != nil {
				m.HTTPRequest(req.Method, route, status, elapsed)
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			log.LogAttrs(req.Context(), level, "http request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Duration("latency", elapsed),
				slog.String("ip", c.RealIP()),
				slog.String("client_id", clientOrAnon(c)),
			)
			return nil
		}
	}
}
