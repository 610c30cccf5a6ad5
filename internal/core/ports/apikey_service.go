package ports

import (
	"context"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// CreateAPIKeyInput carries the parameters for issuing a key.
type CreateAPIKeyInput struct {
	UserID      string
	Name        string
	Permissions []string
	// ExpiresInDays is optional; nil means the key never expires.
	ExpiresInDays *int
}

// CreatedAPIKey pairs the stored record with the raw key, which is shown once.
type CreatedAPIKey struct {
	Key    *domain.APIKey
	RawKey string
}

// APIKeyService manages API keys.
type APIKeyService interface {
	Create(ctx context.Context, in CreateAPIKeyInput) (*CreatedAPIKey, error)
	List(ctx context.Context, userID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, userID, id string) error
	Authenticate(ctx context.Context, rawKey string) (*domain.APIKey, error)
}
