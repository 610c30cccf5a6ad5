package ports

import (
	"context"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// AuditRepository is the append-only audit store.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
	// List returns matching events, newest first.
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEvent, error)
}

// AuditPublisher fans audit events out to downstream consumers.
type AuditPublisher interface {
	Publish(ctx context.Context, event *domain.AuditEvent) error
}

// AuditRecorder accepts audit events for asynchronous persistence. Record
// must not block the caller.
type AuditRecorder interface {
	Record(event domain.AuditEvent)
}

// ClientInfo carries request metadata attached to audit events.
type ClientInfo struct {
	IP        string
	UserAgent string
	RequestID string
}

type clientInfoKey struct{}

// WithClientInfo returns a copy of ctx carrying info.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom extracts the ClientInfo stored by WithClientInfo.
func ClientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}
