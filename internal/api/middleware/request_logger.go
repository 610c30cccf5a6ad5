package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/diagramstudio/diagram-api/internal/core/ports"
	"github.com/diagramstudio/diagram-api/pkg/logger"
)

// RequestLogger attaches a request-scoped logger and the audit ClientInfo to
// the request context, then logs the outcome once the handler returns.
// Errors are rendered here so the logged status is the one sent.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := base.With().
				Str("method", req.Method).
				Str("path", c.Path()).
				Str("remote_ip", c.RealIP()).
				Str("request_id", rid).
				Logger()

			ctx := logger.WithContext(req.Context(), l)
			ctx = ports.WithClientInfo(ctx, ports.ClientInfo{
				IP:        c.RealIP(),
				UserAgent: req.UserAgent(),
				RequestID: rid,
			})
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			dur := time.Since(start)
			status := c.Response().Status

			switch {
			case status >= 500:
				l.Error().Err(err).Int("status", status).Dur("duration", dur).Msg("request completed")
			case status >= 400:
				l.Warn().Int("status", status).Dur("duration", dur).Msg("request completed")
			default:
				l.Info().Int("status", status).Dur("duration", dur).Int64("bytes", c.Response().Size).Msg("request completed")
			}
			return nil
		}
	}
}
