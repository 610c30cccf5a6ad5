package ports

import (
	"context"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// DiagramRepository defines persistence for diagrams. Every lookup is scoped
// to ownerID; a diagram owned by someone else yields domain.ErrDiagramNotFound.
type DiagramRepository interface {
	Create(ctx context.Context, d *domain.Diagram) error
	FindByID(ctx context.Context, id, ownerID string) (*domain.Diagram, error)
	List(ctx context.Context, ownerID string, page, limit int) ([]*domain.Diagram, int64, error)
	Update(ctx context.Context, id, ownerID string, upd domain.DiagramUpdate) (*domain.Diagram, error)
	Delete(ctx context.Context, id, ownerID string) error
}
