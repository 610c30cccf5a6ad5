package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

type memAuditRepo struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	err    error
}

func (r *memAuditRepo) Insert(_ context.Context, e *domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, *e)
	return nil
}

func (r *memAuditRepo) List(context.Context, domain.AuditFilter) ([]*domain.AuditEvent, error) {
	return nil, nil
}

func (r *memAuditRepo) snapshot() []domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEvent(nil), r.events...)
}

type memPublisher struct {
	mu  sync.Mutex
	ids []string
}

func (p *memPublisher) Publish(_ context.Context, e *domain.AuditEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, e.ID)
	return nil
}

func TestAuditDispatcher_PersistsAndPublishes(t *testing.T) {
	repo := &memAuditRepo{}
	pub := &memPublisher{}
	d := NewAuditDispatcher(3, repo, pub, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 10; i++ {
		d.Record(domain.AuditEvent{ID: fmt.Sprintf("e%02d", i), UserID: fmt.Sprintf("u%d", i%4)})
	}
	d.Stop()

	if got := len(repo.snapshot()); got != 10 {
		t.Fatalf("expected 10 stored events, got %d", got)
	}
	if len(pub.ids) != 10 {
		t.Fatalf("expected 10 published events, got %d", len(pub.ids))
	}
}

func TestAuditDispatcher_PerUserOrder(t *testing.T) {
	repo := &memAuditRepo{}
	d := NewAuditDispatcher(4, repo, nil, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 50; i++ {
		d.Record(domain.AuditEvent{ID: fmt.Sprintf("%03d", i), UserID: "same-user"})
	}
	d.Stop()

	events := repo.snapshot()
	if len(events) != 50 {
		t.Fatalf("expected 50 events, got %d", len(events))
	}
	for i, e := range events {
		if want := fmt.Sprintf("%03d", i); e.ID != want {
			t.Fatalf("event %d out of order: got %s", i, e.ID)
		}
	}
}

func TestAuditDispatcher_ShardIndexDeterministic(t *testing.T) {
	d := NewAuditDispatcher(8, &memAuditRepo{}, nil, zerolog.Nop())
	a := d.shardIndex(domain.AuditEvent{UserID: "user-42", ID: "x"})
	b := d.shardIndex(domain.AuditEvent{UserID: "user-42", ID: "y"})
	if a != b {
		t.Errorf("same user mapped to shards %d and %d", a, b)
	}
	if a < 0 || a >= 8 {
		t.Errorf("shard index out of range: %d", a)
	}
}

func TestAuditDispatcher_DropsWhenFullOrStopped(t *testing.T) {
	repo := &memAuditRepo{}
	d := NewAuditDispatcher(1, repo, nil, zerolog.Nop())

	// Not started: the single channel fills up and extra events are dropped
	// instead of blocking the caller.
	for i := 0; i < channelBuffer+10; i++ {
		d.Record(domain.AuditEvent{ID: fmt.Sprintf("%d", i), UserID: "u"})
	}
	if got := len(d.workers[0]); got != channelBuffer {
		t.Fatalf("expected full buffer of %d, got %d", channelBuffer, got)
	}

	d.Start(context.Background())
	d.Stop()
	if got := len(repo.snapshot()); got != channelBuffer {
		t.Errorf("expected %d stored events, got %d", channelBuffer, got)
	}

	// Recording after Stop must not panic on the closed channels.
	d.Record(domain.AuditEvent{ID: "late", UserID: "u"})
	d.Stop()
}

func TestAuditDispatcher_InsertFailureSkipsPublish(t *testing.T) {
	repo := &memAuditRepo{err: errors.New("mongo down")}
	pub := &memPublisher{}
	d := NewAuditDispatcher(1, repo, pub, zerolog.Nop())
	d.Start(context.Background())

	d.Record(domain.AuditEvent{ID: "e1", UserID: "u"})
	d.Stop()

	if len(pub.ids) != 0 {
		t.Errorf("expected no publish after failed insert, got %v", pub.ids)
	}
}
