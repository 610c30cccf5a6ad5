package ports

import (
	"context"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// UpdateProfileInput is a self-service partial update.
type UpdateProfileInput struct {
	Username *string
	Email    *string
}

// AdminUpdateInput toggles account flags.
type AdminUpdateInput struct {
	IsActive *bool
	IsAdmin  *bool
}

// ListUsersResult is a page of users.
type ListUsersResult struct {
	Items      []*domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UserService covers profile management and user administration.
type UserService interface {
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	// AuthorizeAdmin loads the user fresh from the store and returns domain.ErrForbidden
	// unless it is active and an admin.
	AuthorizeAdmin(ctx context.Context, userID string) error
	ListUsers(ctx context.Context, page, limit int) (*ListUsersResult, error)
	AdminUpdate(ctx context.Context, actorID, userID string, in AdminUpdateInput) (*domain.User, error)
	AuditLog(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEvent, error)
}
