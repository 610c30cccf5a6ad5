package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

// AdminHandler serves user administration and the audit trail. Routes are
// mounted behind middleware.RequireAdmin.
type AdminHandler struct {
	service ports.UserService
}

func NewAdminHandler(service ports.UserService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListUsers handles GET /admin/users.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page (1-based)"
// @Param        limit  query     int  false  "Page size (max 100)"
// @Success      200    {object}  userListResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}

	res, err := h.service.ListUsers(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userListResponse{
		Items:      res.Items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	})
}

// UpdateUser handles PATCH /admin/users/:id.
//
// @Summary      Toggle account flags
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                  true  "User id"
// @Param        body  body      adminUpdateUserRequest  true  "Flags to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /admin/users/{id} [patch]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req adminUpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.AdminUpdate(c.Request().Context(), actorID, c.Param("id"), ports.AdminUpdateInput{
		IsActive: req.IsActive,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// AuditLogs handles GET /admin/audit-logs.
//
// @Summary      List audit events
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        userId  query     string  false  "Filter by user id"
// @Param        action  query     string  false  "Filter by action (e.g. auth.login_failed)"
// @Param        limit   query     int     false  "Maximum events (max 200)"
// @Success      200     {object}  auditLogResponse
// @Failure      400     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Router       /admin/audit-logs [get]
func (h *AdminHandler) AuditLogs(c echo.Context) error {
	var (
		userID, action string
		limit          int
	)
	err := echo.QueryParamsBinder(c).
		String("userId", &userID).
		String("action", &action).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return domain.Validationf("limit must be an integer")
	}

	events, err := h.service.AuditLog(c.Request().Context(), domain.AuditFilter{
		UserID: userID,
		Action: domain.AuditAction(action),
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, auditLogResponse{Items: events})
}
