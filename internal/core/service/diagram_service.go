package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
	"github.com/diagramstudio/diagram-api/pkg/logger"
)

var emptyDiagram = json.RawMessage(`{}`)

type DiagramService struct {
	repo ports.DiagramRepository
	now  func() time.Time
}

func NewDiagramService(repo ports.DiagramRepository) *DiagramService {
	return &DiagramService{repo: repo, now: time.Now}
}

func (s *DiagramService) Create(ctx context.Context, in ports.CreateDiagramInput) (*domain.Diagram, error) {
	title := strings.TrimSpace(in.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	content := in.Content
	if len(content) == 0 {
		content = emptyDiagram
	} else if !json.Valid(content) {
		return nil, domain.ErrDiagramContentJSON
	}

	now := s.now().UTC()
	d := &domain.Diagram{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		Title:       title,
		Description: in.Description,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create diagram: %w", err)
	}

	logger.FromContext(ctx).Info().Str("diagram_id", d.ID).Str("owner_id", d.OwnerID).Msg("diagram created")
	return d, nil
}

func (s *DiagramService) Get(ctx context.Context, ownerID, id string) (*domain.Diagram, error) {
	d, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrDiagramNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get diagram: %w", err)
	}
	return d, nil
}

func (s *DiagramService) List(ctx context.Context, ownerID string, page, limit int) (*ports.ListDiagramsResult, error) {
	page, limit = normalizePage(page, limit)

	items, total, err := s.repo.List(ctx, ownerID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	return &ports.ListDiagramsResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// Update applies a partial update. An empty update returns the diagram unchanged.
func (s *DiagramService) Update(ctx context.Context, ownerID, id string, upd domain.DiagramUpdate) (*domain.Diagram, error) {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		upd.Title = &title
	}
	if len(upd.Content) > 0 && !json.Valid(upd.Content) {
		return nil, domain.ErrDiagramContentJSON
	}
	if upd.Title == nil && upd.Description == nil && len(upd.Content) == 0 {
		return s.Get(ctx, ownerID, id)
	}

	d, err := s.repo.Update(ctx, id, ownerID, upd)
	if err != nil {
		if errors.Is(err, domain.ErrDiagramNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update diagram: %w", err)
	}
	return d, nil
}

func (s *DiagramService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, domain.ErrDiagramNotFound) {
			return err
		}
		return fmt.Errorf("delete diagram: %w", err)
	}
	logger.FromContext(ctx).Info().Str("diagram_id", id).Str("owner_id", ownerID).Msg("diagram deleted")
	return nil
}

func validateTitle(title string) error {
	if title == "" || utf8.RuneCountInString(title) > domain.MaxDiagramTitleLength {
		return domain.ErrDiagramTitle
	}
	return nil
}
