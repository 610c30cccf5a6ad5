package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
	"github.com/diagramstudio/diagram-api/pkg/logger"
)

const (
	defaultPageLimit  = 20
	maxPageLimit      = 100
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// UserService implements profile self-service and user administration.
type UserService struct {
	users  ports.UserRepository
	logs   ports.AuditRepository
	hasher *PasswordHasher
	audit  auditor
}

func NewUserService(
	users ports.UserRepository,
	logs ports.AuditRepository,
	hasher *PasswordHasher,
	recorder ports.AuditRecorder,
) *UserService {
	return &UserService{
		users:  users,
		logs:   logs,
		hasher: hasher,
		audit:  newAuditor(recorder, time.Now),
	}
}

func (s *UserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a partial update of username and email.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error) {
	upd := domain.UserUpdate{}
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		if v == "" {
			return nil, domain.Validationf("username must not be empty")
		}
		upd.Username = &v
	}
	if in.Email != nil {
		v := strings.TrimSpace(*in.Email)
		if !strings.Contains(v, "@") {
			return nil, domain.Validationf("email must be a valid email")
		}
		upd.Email = &v
	}
	if upd.Empty() {
		return s.Profile(ctx, userID)
	}

	user, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.audit.record(ctx, domain.AuditUserUpdated, user, true, "", nil)
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		s.audit.record(ctx, domain.AuditPasswordChanged, user, false, "bad_password", nil)
		return domain.ErrInvalidCredentials
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if _, err := s.users.Update(ctx, user.ID, domain.UserUpdate{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.audit.record(ctx, domain.AuditPasswordChanged, user, true, "", nil)
	logger.FromContext(ctx).Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

func (s *UserService) AuthorizeAdmin(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrForbidden
		}
		return fmt.Errorf("authorize admin: %w", err)
	}
	if !user.IsActive || !user.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, page, limit int) (*ports.ListUsersResult, error) {
	page, limit = normalizePage(page, limit)

	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &ports.ListUsersResult{
		Items:      users,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// AdminUpdate toggles account flags. An admin cannot deactivate or demote
// themselves.
func (s *UserService) AdminUpdate(ctx context.Context, actorID, userID string, in ports.AdminUpdateInput) (*domain.User, error) {
	if in.IsActive == nil && in.IsAdmin == nil {
		return nil, domain.Validationf("nothing to update")
	}
	if actorID == userID && ((in.IsActive != nil && !*in.IsActive) || (in.IsAdmin != nil && !*in.IsAdmin)) {
		return nil, domain.Validationf("admins cannot deactivate or demote themselves")
	}

	user, err := s.users.Update(ctx, userID, domain.UserUpdate{IsActive: in.IsActive, IsAdmin: in.IsAdmin})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("admin update: %w", err)
	}

	meta := map[string]string{"actor_id": actorID}
	if in.IsActive != nil {
		meta["is_active"] = fmt.Sprint(*in.IsActive)
	}
	if in.IsAdmin != nil {
		meta["is_admin"] = fmt.Sprint(*in.IsAdmin)
	}
	s.audit.record(ctx, domain.AuditAdminUserUpdated, user, true, "", meta)
	return user, nil
}

// AuditLog lists audit events, newest first.
func (s *UserService) AuditLog(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEvent, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultAuditLimit
	case filter.Limit > maxAuditLimit:
		filter.Limit = maxAuditLimit
	}
	events, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	return events, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
