package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

// APIKeyHandler manages the caller's API keys.
type APIKeyHandler struct {
	service ports.APIKeyService
}

func NewAPIKeyHandler(service ports.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{service: service}
}

// Create issues a new key. The raw key is only ever returned here.
//
// @Summary      Create an API key
// @Tags         api-keys
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAPIKeyRequest  true  "Key name, permissions and optional lifetime"
// @Success      201   {object}  createAPIKeyResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /users/me/api-keys [post]
func (h *APIKeyHandler) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req createAPIKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	created, err := h.service.Create(c.Request().Context(), ports.CreateAPIKeyInput{
		UserID:        userID,
		Name:          req.Name,
		Permissions:   req.Permissions,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, createAPIKeyResponse{APIKey: created.Key, Key: created.RawKey})
}

// List returns the caller's keys, newest first.
//
// @Summary      List API keys
// @Tags         api-keys
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiKeyListResponse
// @Failure      401  {object}  errorResponse
// @Router       /users/me/api-keys [get]
func (h *APIKeyHandler) List(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	keys, err := h.service.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiKeyListResponse{Items: keys})
}

// Revoke deactivates one of the caller's keys.
//
// @Summary      Revoke an API key
// @Tags         api-keys
// @Security     BearerAuth
// @Param        id   path  string  true  "API key id"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/me/api-keys/{id} [delete]
func (h *APIKeyHandler) Revoke(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.service.Revoke(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
