package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

// DiagramHandler handles HTTP requests for diagram operations. Every
// operation is scoped to the authenticated owner.
type DiagramHandler struct {
	service ports.DiagramService
}

func NewDiagramHandler(service ports.DiagramService) *DiagramHandler {
	return &DiagramHandler{service: service}
}

// Create handles POST /diagrams.
//
// @Summary      Create a diagram
// @Tags         diagrams
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     APIKeyAuth
// @Param        body  body      createDiagramRequest  true  "Diagram"
// @Success      201   {object}  domain.Diagram
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /diagrams [post]
func (h *DiagramHandler) Create(c echo.Context) error {
	ownerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req createDiagramRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	d, err := h.service.Create(c.Request().Context(), ports.CreateDiagramInput{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

// List handles GET /diagrams.
//
// @Summary      List diagrams
// @Tags         diagrams
// @Produce      json
// @Security     BearerAuth
// @Security     APIKeyAuth
// @Param        page   query     int  false  "Page (1-based)"
// @Param        limit  query     int  false  "Page size (max 100)"
// @Success      200    {object}  diagramListResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Router       /diagrams [get]
func (h *DiagramHandler) List(c echo.Context) error {
	ownerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}

	res, err := h.service.List(c.Request().Context(), ownerID, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, diagramListResponse{
		Items:      res.Items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	})
}

// Get handles GET /diagrams/:id.
//
// @Summary      Get a diagram
// @Tags         diagrams
// @Produce      json
// @Security     BearerAuth
// @Security     APIKeyAuth
// @Param        id   path      string  true  "Diagram id"
// @Success      200  {object}  domain.Diagram
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /diagrams/{id} [get]
func (h *DiagramHandler) Get(c echo.Context) error {
	ownerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	d, err := h.service.Get(c.Request().Context(), ownerID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Update handles PATCH /diagrams/:id.
//
// @Summary      Update a diagram
// @Tags         diagrams
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     APIKeyAuth
// @Param        id    path      string                true  "Diagram id"
// @Param        body  body      updateDiagramRequest  true  "Fields to change"
// @Success      200   {object}  domain.Diagram
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /diagrams/{id} [patch]
func (h *DiagramHandler) Update(c echo.Context) error {
	ownerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req updateDiagramRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	d, err := h.service.Update(c.Request().Context(), ownerID, c.Param("id"), domain.DiagramUpdate{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Delete handles DELETE /diagrams/:id.
//
// @Summary      Delete a diagram
// @Tags         diagrams
// @Security     BearerAuth
// @Security     APIKeyAuth
// @Param        id   path  string  true  "Diagram id"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /diagrams/{id} [delete]
func (h *DiagramHandler) Delete(c echo.Context) error {
	ownerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), ownerID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
