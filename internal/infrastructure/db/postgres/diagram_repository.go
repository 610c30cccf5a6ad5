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

const diagramColumns = `id, owner_id, title, description, content, created_at, updated_at`

// DiagramRepository implements ports.DiagramRepository on PostgreSQL.
type DiagramRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewDiagramRepository(db *sql.DB, timeout time.Duration) ports.DiagramRepository {
	return &DiagramRepository{db: db, timeout: timeout}
}

func scanDiagram(row rowScanner) (*domain.Diagram, error) {
	var (
		d       domain.Diagram
		content []byte
	)
	if err := row.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Description, &content, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Content = json.RawMessage(content)
	return &d, nil
}

func notFoundOr(err error, wrap string) error {
	if errors.Is(err, sql.ErrNoRows) || pgCode(err) == invalidTextRepresentation {
		return domain.ErrDiagramNotFound
	}
	return fmt.Errorf("%s: %w", wrap, err)
}

func (r *DiagramRepository) Create(ctx context.Context, d *domain.Diagram) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const q = `INSERT INTO diagrams (id, owner_id, title, description, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.db.ExecContext(ctx, q,
		d.ID, d.OwnerID, d.Title, d.Description, string(d.Content), d.CreatedAt, d.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert diagram: %w", err)
	}
	return nil
}

func (r *DiagramRepository) FindByID(ctx context.Context, id, ownerID string) (*domain.Diagram, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	d, err := scanDiagram(r.db.QueryRowContext(ctx,
		`SELECT `+diagramColumns+` FROM diagrams WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		return nil, notFoundOr(err, "find diagram")
	}
	return d, nil
}

func (r *DiagramRepository) List(ctx context.Context, ownerID string, page, limit int) ([]*domain.Diagram, int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM diagrams WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count diagrams: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+diagramColumns+` FROM diagrams WHERE owner_id = $1 ORDER BY updated_at DESC, id LIMIT $2 OFFSET $3`,
		ownerID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Diagram, 0, limit)
	for rows.Next() {
		d, err := scanDiagram(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan diagram: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list diagrams: %w", err)
	}
	return items, total, nil
}

func (r *DiagramRepository) Update(ctx context.Context, id, ownerID string, upd domain.DiagramUpdate) (*domain.Diagram, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var content any
	if len(upd.Content) > 0 {
		content = string(upd.Content)
	}

	const q = `UPDATE diagrams SET
    title       = COALESCE($3, title),
    description = COALESCE($4, description),
    content     = COALESCE($5::jsonb, content),
    updated_at  = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + diagramColumns

	d, err := scanDiagram(r.db.QueryRowContext(ctx, q,
		id, ownerID, nullable(upd.Title), nullable(upd.Description), content,
	))
	if err != nil {
		return nil, notFoundOr(err, "update diagram")
	}
	return d, nil
}

func (r *DiagramRepository) Delete(ctx context.Context, id, ownerID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM diagrams WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return notFoundOr(err, "delete diagram")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}
	if n == 0 {
		return domain.ErrDiagramNotFound
	}
	return nil
}
