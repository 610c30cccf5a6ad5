package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

func TestDiagramService_Create(t *testing.T) {
	repo := newStubDiagramRepo()
	svc := NewDiagramService(repo)

	d, err := svc.Create(context.Background(), ports.CreateDiagramInput{OwnerID: "u-1", Title: "  Flow  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID == "" || d.Title != "Flow" || string(d.Content) != "{}" {
		t.Fatalf("unexpected diagram: %+v", d)
	}
	if _, ok := repo.items[d.ID]; !ok {
		t.Fatalf("expected diagram persisted")
	}
}

func TestDiagramService_Create_Validation(t *testing.T) {
	svc := NewDiagramService(newStubDiagramRepo())

	cases := map[string]struct {
		in   ports.CreateDiagramInput
		want error
	}{
		"missing title":  {ports.CreateDiagramInput{OwnerID: "u-1"}, domain.ErrDiagramTitle},
		"title too long": {ports.CreateDiagramInput{OwnerID: "u-1", Title: strings.Repeat("x", 201)}, domain.ErrDiagramTitle},
		"invalid json":   {ports.CreateDiagramInput{OwnerID: "u-1", Title: "t", Content: json.RawMessage(`{"nodes":`)}, domain.ErrDiagramContentJSON},
	}
	for name, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
	}
}

func TestDiagramService_OwnerScoping(t *testing.T) {
	repo := newStubDiagramRepo()
	svc := NewDiagramService(repo)
	d, err := svc.Create(context.Background(), ports.CreateDiagramInput{OwnerID: "u-1", Title: "Mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(context.Background(), "u-2", d.ID); !errors.Is(err, domain.ErrDiagramNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	title := "Theirs"
	if _, err := svc.Update(context.Background(), "u-2", d.ID, domain.DiagramUpdate{Title: &title}); !errors.Is(err, domain.ErrDiagramNotFound) {
		t.Fatalf("expected not found on foreign update, got %v", err)
	}
	if err := svc.Delete(context.Background(), "u-2", d.ID); !errors.Is(err, domain.ErrDiagramNotFound) {
		t.Fatalf("expected not found on foreign delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), "u-1", d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestDiagramService_Update(t *testing.T) {
	repo := newStubDiagramRepo()
	svc := NewDiagramService(repo)
	d, _ := svc.Create(context.Background(), ports.CreateDiagramInput{OwnerID: "u-1", Title: "Flow", Description: "v1"})

	content := json.RawMessage(`{"nodes":[{"id":"n1"}]}`)
	updated, err := svc.Update(context.Background(), "u-1", d.ID, domain.DiagramUpdate{Content: content})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Flow" || updated.Description != "v1" || string(updated.Content) != string(content) {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, err := svc.Update(context.Background(), "u-1", d.ID, domain.DiagramUpdate{Content: json.RawMessage(`nope`)}); !errors.Is(err, domain.ErrDiagramContentJSON) {
		t.Fatalf("expected content error, got %v", err)
	}

	unchanged, err := svc.Update(context.Background(), "u-1", d.ID, domain.DiagramUpdate{})
	if err != nil || unchanged.ID != d.ID {
		t.Fatalf("empty update should return the diagram, got %+v %v", unchanged, err)
	}
}

func TestDiagramService_RepositoryError(t *testing.T) {
	repo := newStubDiagramRepo()
	repo.err = errors.New("db down")
	svc := NewDiagramService(repo)

	_, err := svc.Create(context.Background(), ports.CreateDiagramInput{OwnerID: "u-1", Title: "Flow"})
	if err == nil || !strings.Contains(err.Error(), "create diagram") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
