package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

const userColumns = `id, username, email, password_hash, totp_secret, totp_pending_secret, is_active, is_admin, last_login, created_at, updated_at`

// UserRepository implements ports.UserRepository on PostgreSQL.
type UserRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewUserRepository(db *sql.DB, timeout time.Duration) ports.UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u                    domain.User
		totpSecret, totpPend sql.NullString
		lastLogin            sql.NullTime
	)
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&totpSecret, &totpPend,
		&u.IsActive, &u.IsAdmin,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if totpSecret.Valid {
		u.TOTPSecret = &totpSecret.String
	}
	if totpPend.Valid {
		u.TOTPPendingSecret = &totpPend.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const q = `INSERT INTO users (id, username, email, password_hash, is_active, is_admin, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, q,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.IsActive, user.IsAdmin, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, q string, arg any) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	user, err := scanUser(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || pgCode(err) == invalidTextRepresentation {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, page, limit int) ([]*domain.User, int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Update applies upd with one fixed statement; NULL parameters keep the
// current column value.
func (r *UserRepository) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const q = `UPDATE users SET
    username      = COALESCE($2, username),
    email         = COALESCE($3, email),
    password_hash = COALESCE($4, password_hash),
    is_active     = COALESCE($5, is_active),
    is_admin      = COALESCE($6, is_admin),
    updated_at    = now()
WHERE id = $1
RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, q,
		id,
		nullable(upd.Username),
		nullable(upd.Email),
		nullable(upd.PasswordHash),
		nullable(upd.IsActive),
		nullable(upd.IsAdmin),
	))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), pgCode(err) == invalidTextRepresentation:
			return nil, domain.ErrUserNotFound
		case pgCode(err) == uniqueViolation:
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) SetPendingTOTP(ctx context.Context, id, secret string) error {
	return r.execOne(ctx, domain.ErrUserNotFound,
		`UPDATE users SET totp_pending_secret = $2, updated_at = now() WHERE id = $1`, id, secret)
}

func (r *UserRepository) PromotePendingTOTP(ctx context.Context, id, secret string) error {
	return r.execOne(ctx, domain.ErrNoPendingEnrollment,
		`UPDATE users SET totp_secret = totp_pending_secret, totp_pending_secret = NULL, updated_at = now()
WHERE id = $1 AND totp_pending_secret = $2`, id, secret)
}

func (r *UserRepository) ClearTOTP(ctx context.Context, id string) error {
	return r.execOne(ctx, domain.ErrUserNotFound,
		`UPDATE users SET totp_secret = NULL, totp_pending_secret = NULL, updated_at = now() WHERE id = $1`, id)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, domain.ErrUserNotFound,
		`UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
}

// execOne runs an update expected to touch exactly one row and returns
// notFound when it touches none.
func (r *UserRepository) execOne(ctx context.Context, notFound error, q string, args ...any) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if pgCode(err) == invalidTextRepresentation {
			return notFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
