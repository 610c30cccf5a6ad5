package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// AdminAuthorizer checks that a user currently holds admin rights.
type AdminAuthorizer interface {
	AuthorizeAdmin(ctx context.Context, userID string) error
}

// RequireAdmin must run after Auth. The user is re-read from the store on
// every request so demotions take effect before the token expires.
func RequireAdmin(authz AdminAuthorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(ContextUserID).(string)
			if userID == "" {
				return domain.ErrTokenInvalid
			}
			if err := authz.AuthorizeAdmin(c.Request().Context(), userID); err != nil {
				return err
			}
			return next(c)
		}
	}
}
