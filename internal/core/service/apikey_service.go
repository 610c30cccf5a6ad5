package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
	"github.com/diagramstudio/diagram-api/pkg/logger"
)

const (
	// APIKeyTag prefixes every raw key so leaked keys are recognisable.
	APIKeyTag      = "dgk_"
	apiKeyBytes    = 32
	apiKeyPrefixLn = len(APIKeyTag) + 8
)

// APIKeyService issues, lists, revokes and authenticates API keys.
type APIKeyService struct {
	repo  ports.APIKeyRepository
	audit auditor
	now   func() time.Time
}

func NewAPIKeyService(repo ports.APIKeyRepository, recorder ports.AuditRecorder) *APIKeyService {
	return &APIKeyService{
		repo:  repo,
		audit: newAuditor(recorder, time.Now),
		now:   time.Now,
	}
}

// HashAPIKey returns the hex SHA-256 digest under which a raw key is stored.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Create generates a key, persists its digest and returns the raw value.
// The raw value cannot be recovered afterwards.
func (s *APIKeyService) Create(ctx context.Context, in ports.CreateAPIKeyInput) (*ports.CreatedAPIKey, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrAPIKeyNameRequired
	}

	perms, err := normalizePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var expiresAt *time.Time
	if in.ExpiresInDays != nil {
		if *in.ExpiresInDays <= 0 {
			return nil, domain.ErrInvalidExpiry
		}
		exp := now.AddDate(0, 0, *in.ExpiresInDays)
		expiresAt = &exp
	}

	raw, err := generateRawKey()
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}

	key := &domain.APIKey{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Name:        name,
		KeyHash:     HashAPIKey(raw),
		Prefix:      raw[:apiKeyPrefixLn],
		Permissions: perms,
		ExpiresAt:   expiresAt,
		IsActive:    true,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}

	s.audit.record(ctx, domain.AuditAPIKeyCreated, &domain.User{ID: in.UserID}, true, "",
		map[string]string{"key_id": key.ID, "prefix": key.Prefix})
	logger.FromContext(ctx).Info().Str("user_id", in.UserID).Str("key_id", key.ID).Msg("api key created")

	return &ports.CreatedAPIKey{Key: key, RawKey: raw}, nil
}

// List returns the caller's key records.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	keys, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// Revoke deactivates one of the caller's keys.
func (s *APIKeyService) Revoke(ctx context.Context, userID, id string) error {
	if err := s.repo.Deactivate(ctx, id, userID); err != nil {
		if errors.Is(err, domain.ErrAPIKeyMissing) {
			return err
		}
		return fmt.Errorf("revoke api key: %w", err)
	}
	s.audit.record(ctx, domain.AuditAPIKeyRevoked, &domain.User{ID: userID}, true, "", map[string]string{"key_id": id})
	return nil
}

// Authenticate resolves a raw key to its record. A revoked key reports
// domain.ErrAPIKeyRevoked even when it has also expired.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*domain.APIKey, error) {
	if !strings.HasPrefix(rawKey, APIKeyTag) {
		return nil, domain.ErrAPIKeyNotFound
	}

	key, err := s.repo.FindByHash(ctx, HashAPIKey(rawKey))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyMissing) {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("authenticate api key: %w", err)
	}

	now := s.now().UTC()
	switch {
	case !key.IsActive:
		return nil, domain.ErrAPIKeyRevoked
	case key.Expired(now):
		return nil, domain.ErrAPIKeyExpired
	}

	if err := s.repo.TouchLastUsed(ctx, key.ID, now); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("key_id", key.ID).Msg("failed to record api key use")
	} else {
		key.LastUsedAt = &now
	}
	return key, nil
}

func generateRawKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return APIKeyTag + base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalizePermissions(in []string) ([]string, error) {
	if len(in) == 0 {
		return []string{domain.PermissionDiagramsRead}, nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if !slices.Contains(domain.KnownPermissions, p) {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPermission, p)
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}
