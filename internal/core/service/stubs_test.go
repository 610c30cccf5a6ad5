package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

func testHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.MinCost}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.TOTPSecret != nil {
		s := *u.TOTPSecret
		c.TOTPSecret = &s
	}
	if u.TOTPPendingSecret != nil {
		s := *u.TOTPPendingSecret
		c.TOTPPendingSecret = &s
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	err   error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context, page, limit int) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := min(start+limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (r *stubUserRepo) Update(_ context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.Email != nil {
		for oid, o := range r.users {
			if oid != id && o.Email == *upd.Email {
				return nil, domain.ErrUserExists
			}
		}
		u.Email = *upd.Email
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.IsAdmin != nil {
		u.IsAdmin = *upd.IsAdmin
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetPendingTOTP(_ context.Context, id, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.TOTPPendingSecret = &secret
	return nil
}

func (r *stubUserRepo) PromotePendingTOTP(_ context.Context, id, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.TOTPPendingSecret == nil || *u.TOTPPendingSecret != secret {
		return domain.ErrNoPendingEnrollment
	}
	u.TOTPSecret = &secret
	u.TOTPPendingSecret = nil
	return nil
}

func (r *stubUserRepo) ClearTOTP(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.TOTPSecret = nil
	u.TOTPPendingSecret = nil
	return nil
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	return nil
}

func (r *stubUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id])
}

type stubAPIKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*domain.APIKey
}

func newStubAPIKeyRepo() *stubAPIKeyRepo {
	return &stubAPIKeyRepo{keys: make(map[string]*domain.APIKey)}
}

func (r *stubAPIKeyRepo) Create(_ context.Context, key *domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *key
	r.keys[key.ID] = &c
	return nil
}

func (r *stubAPIKeyRepo) FindByHash(_ context.Context, keyHash string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.KeyHash == keyHash {
			c := *k
			return &c, nil
		}
	}
	return nil, domain.ErrAPIKeyMissing
}

func (r *stubAPIKeyRepo) ListByUser(_ context.Context, userID string) ([]*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.APIKey
	for _, k := range r.keys {
		if k.UserID == userID {
			c := *k
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubAPIKeyRepo) Deactivate(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok || k.UserID != userID {
		return domain.ErrAPIKeyMissing
	}
	k.IsActive = false
	return nil
}

func (r *stubAPIKeyRepo) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[id]; ok {
		k.LastUsedAt = &at
	}
	return nil
}

type stubDiagramRepo struct {
	items map[string]*domain.Diagram
	err   error
}

func newStubDiagramRepo() *stubDiagramRepo {
	return &stubDiagramRepo{items: make(map[string]*domain.Diagram)}
}

func (r *stubDiagramRepo) Create(_ context.Context, d *domain.Diagram) error {
	if r.err != nil {
		return r.err
	}
	c := *d
	r.items[d.ID] = &c
	return nil
}

func (r *stubDiagramRepo) FindByID(_ context.Context, id, ownerID string) (*domain.Diagram, error) {
	d, ok := r.items[id]
	if !ok || d.OwnerID != ownerID {
		return nil, domain.ErrDiagramNotFound
	}
	c := *d
	return &c, nil
}

func (r *stubDiagramRepo) List(_ context.Context, ownerID string, _, _ int) ([]*domain.Diagram, int64, error) {
	var out []*domain.Diagram
	for _, d := range r.items {
		if d.OwnerID == ownerID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubDiagramRepo) Update(_ context.Context, id, ownerID string, upd domain.DiagramUpdate) (*domain.Diagram, error) {
	d, ok := r.items[id]
	if !ok || d.OwnerID != ownerID {
		return nil, domain.ErrDiagramNotFound
	}
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.Description != nil {
		d.Description = *upd.Description
	}
	if len(upd.Content) > 0 {
		d.Content = upd.Content
	}
	c := *d
	return &c, nil
}

func (r *stubDiagramRepo) Delete(_ context.Context, id, ownerID string) error {
	d, ok := r.items[id]
	if !ok || d.OwnerID != ownerID {
		return domain.ErrDiagramNotFound
	}
	delete(r.items, id)
	return nil
}

type stubAuditRepo struct {
	filter domain.AuditFilter
	events []*domain.AuditEvent
}

func (r *stubAuditRepo) Insert(_ context.Context, ev *domain.AuditEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, filter domain.AuditFilter) ([]*domain.AuditEvent, error) {
	r.filter = filter
	return r.events, nil
}

type captureRecorder struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *captureRecorder) Record(ev domain.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *captureRecorder) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Action)
	}
	return out
}

func (r *captureRecorder) last() domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}
