package ports

import (
	"context"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput carries login credentials. TOTPCode is empty on the first step.
type LoginInput struct {
	Email    string
	Password string
	TOTPCode string
}

// AuthResult is the outcome of Register or Login. When Require2FA is set the
// password was accepted but no token was issued.
type AuthResult struct {
	Token      string
	User       *domain.Profile
	Require2FA bool
}

// TwoFactorEnrollment is returned once by SetupTwoFactor.
type TwoFactorEnrollment struct {
	Secret    string
	URI       string
	QRCodePNG []byte
}

// AuthService orchestrates registration, login and second-factor enrollment.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	SetupTwoFactor(ctx context.Context, userID string) (*TwoFactorEnrollment, error)
	VerifyTwoFactor(ctx context.Context, userID, code string) error
	DisableTwoFactor(ctx context.Context, userID, password string) error
}

// TokenClaims is the identity carried by a bearer token.
type TokenClaims struct {
	UserID   string
	Username string
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}
