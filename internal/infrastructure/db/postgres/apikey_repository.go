package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

const apiKeyColumns = `id, user_id, name, key_hash, prefix, permissions, expires_at, is_active, last_used_at, created_at`

// APIKeyRepository implements ports.APIKeyRepository on PostgreSQL.
type APIKeyRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewAPIKeyRepository(db *sql.DB, timeout time.Duration) ports.APIKeyRepository {
	return &APIKeyRepository{db: db, timeout: timeout}
}

func scanAPIKey(row rowScanner) (*domain.APIKey, error) {
	var (
		k                   domain.APIKey
		perms               []byte
		expiresAt, lastUsed sql.NullTime
	)
	if err := row.Scan(
		&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.Prefix,
		&perms, &expiresAt, &k.IsActive, &lastUsed, &k.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(perms, &k.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		k.ExpiresAt = &t
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		k.LastUsedAt = &t
	}
	return &k, nil
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	perms, err := json.Marshal(key.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}

	const q = `INSERT INTO api_keys (id, user_id, name, key_hash, prefix, permissions, expires_at, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, q,
		key.ID, key.UserID, key.Name, key.KeyHash, key.Prefix,
		string(perms), nullable(key.ExpiresAt), key.IsActive, key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	key, err := scanAPIKey(r.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAPIKeyMissing
		}
		return nil, fmt.Errorf("find api key: %w", err)
	}
	return key, nil
}

func (r *APIKeyRepository) ListByUser(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := []*domain.APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

func (r *APIKeyRepository) Deactivate(ctx context.Context, id, userID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if pgCode(err) == invalidTextRepresentation {
			return domain.ErrAPIKeyMissing
		}
		return fmt.Errorf("deactivate api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate api key: %w", err)
	}
	if n == 0 {
		return domain.ErrAPIKeyMissing
	}
	return nil
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}
