package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// newEventID returns a lexicographically sortable identifier.
func newEventID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// discardAudit is used when no recorder is configured.
type discardAudit struct{}

func (discardAudit) Record(domain.AuditEvent) {}

// auditor stamps audit events with ids, time and request metadata before
// handing them to the recorder.
type auditor struct {
	recorder ports.AuditRecorder
	now      func() time.Time
}

func newAuditor(recorder ports.AuditRecorder, now func() time.Time) auditor {
	if recorder == nil {
		recorder = discardAudit{}
	}
	return auditor{recorder: recorder, now: now}
}

func (a auditor) record(ctx context.Context, action domain.AuditAction, user *domain.User, success bool, reason string, meta map[string]string) {
	at := a.now().UTC()
	info := ports.ClientInfoFrom(ctx)
	ev := domain.AuditEvent{
		ID:         newEventID(at),
		Action:     action,
		ClientIP:   info.IP,
		UserAgent:  info.UserAgent,
		RequestID:  info.RequestID,
		Success:    success,
		Reason:     reason,
		Metadata:   meta,
		OccurredAt: at,
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Username = user.Username
	}
	a.recorder.Record(ev)
}
