package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

func TestUserHandler_Me(t *testing.T) {
	secret := "SECRET"
	stub := &stubUserService{
		profileFn: func(_ context.Context, userID string) (*domain.User, error) {
			return &domain.User{ID: userID, Username: "alice", PasswordHash: "hash", TOTPSecret: &secret}, nil
		},
	}
	handler := NewUserHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/users/me", "", "u-1")
	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "u-1" || resp["twoFactorEnabled"] != true {
		t.Fatalf("unexpected profile %v", resp)
	}
	for _, k := range []string{"passwordHash", "totpSecret", "PasswordHash", "TOTPSecret"} {
		if _, ok := resp[k]; ok {
			t.Fatalf("profile leaked %s", k)
		}
	}
}

func TestUserHandler_Update(t *testing.T) {
	stub := &stubUserService{
		updateFn: func(_ context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error) {
			if in.Username != nil || in.Email == nil || *in.Email != "new@example.com" {
				t.Fatalf("unexpected input %+v", in)
			}
			return &domain.User{ID: userID, Email: *in.Email}, nil
		},
	}
	handler := NewUserHandler(stub)

	c, rec := newTestContext(http.MethodPatch, "/users/me", `{"email":"new@example.com"}`, "u-1")
	if err := handler.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newTestContext(http.MethodPatch, "/users/me", `{"email":"not-an-email"}`, "u-1")
	if err := handler.Update(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserHandler_ChangePassword(t *testing.T) {
	stub := &stubUserService{
		passwordFn: func(_ context.Context, _, current, next string) error {
			if current != "old-password" {
				return domain.ErrInvalidCredentials
			}
			if len(next) < domain.MinPasswordLength {
				return domain.ErrPasswordTooShort
			}
			return nil
		},
	}
	handler := NewUserHandler(stub)

	cases := []struct {
		body string
		want error
	}{
		{`{"currentPassword":"old-password","newPassword":"new-password"}`, nil},
		{`{"currentPassword":"bad","newPassword":"new-password"}`, domain.ErrInvalidCredentials},
		{`{"currentPassword":"old-password","newPassword":"short"}`, domain.ErrPasswordTooShort},
		{`{"currentPassword":"old-password"}`, domain.ErrValidation},
	}
	for _, tc := range cases {
		c, _ := newTestContext(http.MethodPost, "/users/me/password", tc.body, "u-1")
		err := handler.ChangePassword(c)
		if tc.want == nil && err != nil {
			t.Errorf("%s: unexpected error %v", tc.body, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.body, tc.want, err)
		}
	}
}

func TestAdminHandler_ListUsers(t *testing.T) {
	stub := &stubUserService{
		listFn: func(_ context.Context, page, limit int) (*ports.ListUsersResult, error) {
			if page != 2 || limit != 5 {
				t.Fatalf("unexpected paging %d/%d", page, limit)
			}
			return &ports.ListUsersResult{
				Items: []*domain.User{{ID: "u-1", PasswordHash: "hash"}},
				Total: 6, Page: 2, Limit: 5, TotalPages: 2,
			}, nil
		},
	}
	handler := NewAdminHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/admin/users?page=2&limit=5", "", "admin-1")
	if err := handler.ListUsers(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp userListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 6 || resp.TotalPages != 2 || len(resp.Items) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Items[0].PasswordHash != "" {
		t.Fatal("password hash must not be serialised")
	}

	c, _ = newTestContext(http.MethodGet, "/admin/users?page=abc", "", "admin-1")
	if err := handler.ListUsers(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdminHandler_UpdateUser(t *testing.T) {
	stub := &stubUserService{
		adminUpdateFn: func(_ context.Context, actorID, userID string, in ports.AdminUpdateInput) (*domain.User, error) {
			if actorID != "admin-1" || userID != "u-9" || in.IsActive == nil || *in.IsActive {
				t.Fatalf("unexpected call %s %s %+v", actorID, userID, in)
			}
			return &domain.User{ID: userID, IsActive: false}, nil
		},
	}
	handler := NewAdminHandler(stub)

	c, rec := newTestContext(http.MethodPatch, "/admin/users/u-9", `{"isActive":false}`, "admin-1")
	c.SetParamNames("id")
	c.SetParamValues("u-9")
	if err := handler.UpdateUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAdminHandler_AuditLogs(t *testing.T) {
	stub := &stubUserService{
		auditFn: func(_ context.Context, f domain.AuditFilter) ([]*domain.AuditEvent, error) {
			if f.UserID != "u-1" || f.Action != domain.AuditLoginFailed || f.Limit != 10 {
				t.Fatalf("unexpected filter %+v", f)
			}
			return []*domain.AuditEvent{{ID: "01", Action: f.Action}}, nil
		},
	}
	handler := NewAdminHandler(stub)

	q := url.Values{"userId": {"u-1"}, "action": {"auth.login_failed"}, "limit": {"10"}}
	c, rec := newTestContext(http.MethodGet, "/admin/audit-logs?"+q.Encode(), "", "admin-1")
	if err := handler.AuditLogs(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp auditLogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp.Items) != 1 {
		t.Fatalf("unexpected response %s (%v)", rec.Body.String(), err)
	}
}
