package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/diagramstudio/diagram-api/internal/api/metrics"
	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

// Context keys set by the authentication middlewares.
const (
	ContextUserID     = "user_id"
	ContextUsername   = "username"
	ContextAuthMethod = "auth_method"
	ContextAPIKey     = "api_key"
)

// Values stored under ContextAuthMethod.
const (
	AuthMethodBearer = "bearer"
	AuthMethodAPIKey = "api_key"
)

// HeaderAPIKey carries a raw API key.
const HeaderAPIKey = "X-API-Key"

// Auth validates the bearer token and injects the caller identity into the
// echo context. Expired tokens fail with domain.ErrTokenExpired, anything
// else with domain.ErrTokenInvalid.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authenticateBearer(c, verifier); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// AuthOrAPIKey accepts either an X-API-Key header or a bearer token. The API
// key wins when both are present.
func AuthOrAPIKey(verifier ports.TokenVerifier, keys ports.APIKeyService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
			if raw == "" {
				if err := authenticateBearer(c, verifier); err != nil {
					return err
				}
				return next(c)
			}

			key, err := keys.Authenticate(c.Request().Context(), raw)
			if err != nil {
				metrics.APIKeyAuthTotal.WithLabelValues(apiKeyResult(err)).Inc()
				return err
			}
			metrics.APIKeyAuthTotal.WithLabelValues("ok").Inc()

			c.Set(ContextUserID, key.UserID)
			c.Set(ContextAuthMethod, AuthMethodAPIKey)
			c.Set(ContextAPIKey, key)
			return next(c)
		}
	}
}

// RequirePermission rejects API-key callers whose key lacks permission.
// Bearer sessions act with the full rights of their user.
func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if method, _ := c.Get(ContextAuthMethod).(string); method != AuthMethodAPIKey {
				return next(c)
			}
			key, _ := c.Get(ContextAPIKey).(*domain.APIKey)
			if key == nil || !key.HasPermission(permission) {
				metrics.APIKeyAuthTotal.WithLabelValues("forbidden").Inc()
				return domain.ErrInsufficientScope
			}
			return next(c)
		}
	}
}

func authenticateBearer(c echo.Context, verifier ports.TokenVerifier) error {
	token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return domain.ErrTokenInvalid
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		return err
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextAuthMethod, AuthMethodBearer)
	return nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func apiKeyResult(err error) string {
	if errors.Is(err, domain.ErrUnauthenticated) {
		return "rejected"
	}
	return "error"
}
