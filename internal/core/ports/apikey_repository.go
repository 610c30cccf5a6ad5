package ports

import (
	"context"
	"time"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// APIKeyRepository persists API key records. Lookups that match nothing
// return domain.ErrAPIKeyMissing.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	FindByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.APIKey, error)
	// Deactivate flags the key inactive. The key must belong to userID.
	Deactivate(ctx context.Context, id, userID string) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}
