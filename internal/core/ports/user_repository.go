package ports

import (
	"context"
	"time"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// UserRepository defines the credential store.
type UserRepository interface {
	// Create persists a new user. A duplicate email or username yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail matches the email exactly.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// List returns a page of users ordered by creation time and the total count.
	List(ctx context.Context, page, limit int) ([]*domain.User, int64, error)
	Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error)

	SetPendingTOTP(ctx context.Context, id, secret string) error
	// PromotePendingTOTP moves the pending secret to the active slot only if the
	// pending secret still equals secret. Otherwise it returns
	// domain.ErrNoPendingEnrollment.
	PromotePendingTOTP(ctx context.Context, id, secret string) error
	// ClearTOTP removes both the active and the pending secret.
	ClearTOTP(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
