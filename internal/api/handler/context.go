package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/diagramstudio/diagram-api/internal/api/middleware"
	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// currentUserID returns the caller identity injected by the auth middleware.
// An empty id means the middleware did not run, which is treated as an
// invalid session rather than a server error.
func currentUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.ContextUserID).(string)
	if id == "" {
		return "", domain.ErrTokenInvalid
	}
	return id, nil
}

// pageParams reads the optional page and limit query parameters. Range
// checks are left to the services.
func pageParams(c echo.Context) (page, limit int, err error) {
	err = echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return 0, 0, domain.Validationf("page and limit must be integers")
	}
	return page, limit, nil
}
