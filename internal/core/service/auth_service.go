package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
	"github.com/diagramstudio/diagram-api/pkg/logger"
)

// dummyPassword is hashed when the service is built and compared against when
// a login names an unknown email, so that the response time matches a wrong
// password.
const dummyPassword = "diagram-api-timing-equaliser"

// AuthService implements registration, the two-step login and TOTP
// enrollment.
type AuthService struct {
	users  ports.UserRepository
	hasher *PasswordHasher
	totp   *TOTPEngine
	tokens *TokenIssuer
	audit  auditor
	now    func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

func NewAuthService(
	users ports.UserRepository,
	hasher *PasswordHasher,
	totp *TOTPEngine,
	tokens *TokenIssuer,
	recorder ports.AuditRecorder,
) *AuthService {
	s := &AuthService{
		users:  users,
		hasher: hasher,
		totp:   totp,
		tokens: tokens,
		audit:  newAuditor(recorder, time.Now),
		now:    time.Now,
	}
	s.timingHash(context.Background())
	return s
}

// Register creates an active account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	if in.Username == "" || in.Email == "" {
		return nil, domain.Validationf("username and email are required")
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			s.audit.record(ctx, domain.AuditUserRegistered, nil, false, "duplicate", map[string]string{"email": in.Email})
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	token, err := s.issue(created)
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, domain.AuditUserRegistered, created, true, "", nil)
	logger.FromContext(ctx).Info().Str("user_id", created.ID).Msg("user registered")

	return &ports.AuthResult{Token: token, User: created.Profile()}, nil
}

// Login runs the credential check and, when the account has an active
// second factor, the TOTP check. Every credential failure returns
// domain.ErrInvalidCredentials regardless of which factor failed.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		s.equaliseUnknownEmail(ctx, in.Password)
		s.audit.record(ctx, domain.AuditLoginFailed, nil, false, "unknown_email", nil)
		return nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.audit.record(ctx, domain.AuditLoginFailed, user, false, "bad_password", nil)
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.audit.record(ctx, domain.AuditLoginFailed, user, false, "inactive", nil)
		return nil, domain.ErrInvalidCredentials
	}

	if user.TwoFactorEnabled() {
		if in.TOTPCode == "" {
			s.audit.record(ctx, domain.AuditLoginTOTPRequired, user, true, "", nil)
			return &ports.AuthResult{Require2FA: true}, nil
		}
		if !s.totp.Verify(*user.TOTPSecret, in.TOTPCode) {
			s.audit.record(ctx, domain.AuditLoginFailed, user, false, "bad_totp", nil)
			return nil, domain.ErrInvalidCredentials
		}
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	user.LastLogin = &now

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, domain.AuditLoginSucceeded, user, true, "", nil)
	logger.FromContext(ctx).Info().Str("user_id", user.ID).Bool("two_factor", user.TwoFactorEnabled()).Msg("login succeeded")

	return &ports.AuthResult{Token: token, User: user.Profile()}, nil
}

// SetupTwoFactor stores a freshly generated secret as pending. The active
// secret, if any, is untouched until VerifyTwoFactor succeeds.
func (s *AuthService) SetupTwoFactor(ctx context.Context, userID string) (*ports.TwoFactorEnrollment, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("setup 2fa: %w", err)
	}
	if user.TwoFactorEnabled() {
		return nil, domain.ErrTwoFactorAlreadyEnabled
	}

	enrollment, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, fmt.Errorf("setup 2fa: %w", err)
	}
	if err := s.users.SetPendingTOTP(ctx, user.ID, enrollment.Secret); err != nil {
		return nil, fmt.Errorf("setup 2fa: %w", err)
	}

	s.audit.record(ctx, domain.AuditTwoFactorSetup, user, true, "", nil)
	return enrollment, nil
}

// VerifyTwoFactor confirms the pending enrollment with a current code and
// promotes it to the active secret.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, userID, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("verify 2fa: %w", err)
	}
	if user.TOTPPendingSecret == nil || *user.TOTPPendingSecret == "" {
		return domain.ErrNoPendingEnrollment
	}

	pending := *user.TOTPPendingSecret
	if !s.totp.Verify(pending, code) {
		s.audit.record(ctx, domain.AuditTwoFactorFailed, user, false, "bad_code", nil)
		return domain.ErrInvalidTOTPCode
	}

	if err := s.users.PromotePendingTOTP(ctx, user.ID, pending); err != nil {
		if errors.Is(err, domain.ErrNoPendingEnrollment) {
			return err
		}
		return fmt.Errorf("verify 2fa: %w", err)
	}

	s.audit.record(ctx, domain.AuditTwoFactorEnabled, user, true, "", nil)
	logger.FromContext(ctx).Info().Str("user_id", user.ID).Msg("two-factor enabled")
	return nil
}

// DisableTwoFactor clears both secrets after re-checking the password.
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID, password string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("disable 2fa: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.audit.record(ctx, domain.AuditTwoFactorDisabled, user, false, "bad_password", nil)
		return domain.ErrInvalidCredentials
	}

	if err := s.users.ClearTOTP(ctx, user.ID); err != nil {
		return fmt.Errorf("disable 2fa: %w", err)
	}

	s.audit.record(ctx, domain.AuditTwoFactorDisabled, user, true, "", nil)
	logger.FromContext(ctx).Info().Str("user_id", user.ID).Msg("two-factor disabled")
	return nil
}

func (s *AuthService) issue(user *domain.User) (string, error) {
	token, err := s.tokens.Issue(ports.TokenClaims{UserID: user.ID, Username: user.Username}, 0)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// equaliseUnknownEmail spends about one password check. While the reference
// digest is missing, the attempt to build it is that work, and it is retried
// on every call until it succeeds.
func (s *AuthService) equaliseUnknownEmail(ctx context.Context, password string) {
	if digest := s.timingHash(ctx); digest != "" {
		s.hasher.Verify(password, digest)
	}
}

func (s *AuthService) timingHash(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash == "" {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).Msg("failed to prepare timing hash")
			return ""
		}
		s.dummyHash = hash
	}
	return s.dummyHash
}
