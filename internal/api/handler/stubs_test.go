package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/diagramstudio/diagram-api/internal/api/middleware"
	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

// newTestContext builds an echo context with the validator wired and, when
// userID is set, the identity the auth middleware would have injected.
func newTestContext(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set(middleware.ContextUserID, userID)
	}
	return c, rec
}

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error)
	setupFn    func(ctx context.Context, userID string) (*ports.TwoFactorEnrollment, error)
	verifyFn   func(ctx context.Context, userID, code string) error
	disableFn  func(ctx context.Context, userID, password string) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) SetupTwoFactor(ctx context.Context, userID string) (*ports.TwoFactorEnrollment, error) {
	return s.setupFn(ctx, userID)
}

func (s *stubAuthService) VerifyTwoFactor(ctx context.Context, userID, code string) error {
	return s.verifyFn(ctx, userID, code)
}

func (s *stubAuthService) DisableTwoFactor(ctx context.Context, userID, password string) error {
	return s.disableFn(ctx, userID, password)
}

type stubAPIKeyService struct {
	createFn func(ctx context.Context, in ports.CreateAPIKeyInput) (*ports.CreatedAPIKey, error)
	listFn   func(ctx context.Context, userID string) ([]*domain.APIKey, error)
	revokeFn func(ctx context.Context, userID, id string) error
}

func (s *stubAPIKeyService) Create(ctx context.Context, in ports.CreateAPIKeyInput) (*ports.CreatedAPIKey, error) {
	return s.createFn(ctx, in)
}

func (s *stubAPIKeyService) List(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	return s.listFn(ctx, userID)
}

func (s *stubAPIKeyService) Revoke(ctx context.Context, userID, id string) error {
	return s.revokeFn(ctx, userID, id)
}

func (s *stubAPIKeyService) Authenticate(context.Context, string) (*domain.APIKey, error) {
	return nil, domain.ErrAPIKeyNotFound
}

type stubUserService struct {
	profileFn     func(ctx context.Context, userID string) (*domain.User, error)
	updateFn      func(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error)
	passwordFn    func(ctx context.Context, userID, current, next string) error
	listFn        func(ctx context.Context, page, limit int) (*ports.ListUsersResult, error)
	adminUpdateFn func(ctx context.Context, actorID, userID string, in ports.AdminUpdateInput) (*domain.User, error)
	auditFn       func(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEvent, error)
}

func (s *stubUserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.profileFn(ctx, userID)
}

func (s *stubUserService) UpdateProfile(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error) {
	return s.updateFn(ctx, userID, in)
}

func (s *stubUserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return s.passwordFn(ctx, userID, current, next)
}

func (s *stubUserService) AuthorizeAdmin(context.Context, string) error { return nil }

func (s *stubUserService) ListUsers(ctx context.Context, page, limit int) (*ports.ListUsersResult, error) {
	return s.listFn(ctx, page, limit)
}

func (s *stubUserService) AdminUpdate(ctx context.Context, actorID, userID string, in ports.AdminUpdateInput) (*domain.User, error) {
	return s.adminUpdateFn(ctx, actorID, userID, in)
}

func (s *stubUserService) AuditLog(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEvent, error) {
	return s.auditFn(ctx, filter)
}

type stubDiagramService struct {
	createFn func(ctx context.Context, in ports.CreateDiagramInput) (*domain.Diagram, error)
	getFn    func(ctx context.Context, ownerID, id string) (*domain.Diagram, error)
	listFn   func(ctx context.Context, ownerID string, page, limit int) (*ports.ListDiagramsResult, error)
	updateFn func(ctx context.Context, ownerID, id string, upd domain.DiagramUpdate) (*domain.Diagram, error)
	deleteFn func(ctx context.Context, ownerID, id string) error
}

func (s *stubDiagramService) Create(ctx context.Context, in ports.CreateDiagramInput) (*domain.Diagram, error) {
	return s.createFn(ctx, in)
}

func (s *stubDiagramService) Get(ctx context.Context, ownerID, id string) (*domain.Diagram, error) {
	return s.getFn(ctx, ownerID, id)
}

func (s *stubDiagramService) List(ctx context.Context, ownerID string, page, limit int) (*ports.ListDiagramsResult, error) {
	return s.listFn(ctx, ownerID, page, limit)
}

func (s *stubDiagramService) Update(ctx context.Context, ownerID, id string, upd domain.DiagramUpdate) (*domain.Diagram, error) {
	return s.updateFn(ctx, ownerID, id, upd)
}

func (s *stubDiagramService) Delete(ctx context.Context, ownerID, id string) error {
	return s.deleteFn(ctx, ownerID, id)
}
