package ports

import (
	"context"
	"encoding/json"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// CreateDiagramInput carries a new diagram.
type CreateDiagramInput struct {
	OwnerID     string
	Title       string
	Description string
	Content     json.RawMessage
}

// ListDiagramsResult is a page of diagrams.
type ListDiagramsResult struct {
	Items      []*domain.Diagram
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// DiagramService defines use-case operations for diagrams.
type DiagramService interface {
	Create(ctx context.Context, in CreateDiagramInput) (*domain.Diagram, error)
	Get(ctx context.Context, ownerID, id string) (*domain.Diagram, error)
	List(ctx context.Context, ownerID string, page, limit int) (*ListDiagramsResult, error)
	Update(ctx context.Context, ownerID, id string, upd domain.DiagramUpdate) (*domain.Diagram, error)
	Delete(ctx context.Context, ownerID, id string) error
}
