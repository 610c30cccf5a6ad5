package handler

import (
	"encoding/json"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
	TOTP     string `json:"totp"`
}

type authResponse struct {
	Token      string          `json:"token,omitempty"`
	User       *domain.Profile `json:"user,omitempty"`
	Require2FA bool            `json:"require2FA,omitempty"`
}

type setupTwoFactorResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	// QRCode is a data URL of the PNG encoding of OTPAuthURL.
	QRCode string `json:"qrCode"`
}

type verifyTwoFactorRequest struct {
	Code string `json:"code" validate:"required"`
}

type disableTwoFactorRequest struct {
	Password string `json:"password" validate:"required"`
}

// --- Users ---

type updateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,max=64"`
	Email    *string `json:"email"    validate:"omitempty,email,max=254"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required"`
}

// --- API keys ---

type createAPIKeyRequest struct {
	Name          string   `json:"name"`
	Permissions   []string `json:"permissions"`
	ExpiresInDays *int     `json:"expiresInDays"`
}

type createAPIKeyResponse struct {
	APIKey *domain.APIKey `json:"apiKey"`
	// Key is the raw key. It is returned only once.
	Key string `json:"key"`
}

type apiKeyListResponse struct {
	Items []*domain.APIKey `json:"items"`
}

// --- Diagrams ---

type createDiagramRequest struct {
	Title       string          `json:"title"       validate:"required"`
	Description string          `json:"description" validate:"max=2000"`
	Content     json.RawMessage `json:"content"     swaggertype:"object"`
}

type updateDiagramRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Content     json.RawMessage `json:"content"     swaggertype:"object"`
}

type diagramListResponse struct {
	Items      []*domain.Diagram `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
}

// --- Admin ---

type userListResponse struct {
	Items      []*domain.User `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

type adminUpdateUserRequest struct {
	IsActive *bool `json:"isActive"`
	IsAdmin  *bool `json:"isAdmin"`
}

type auditLogResponse struct {
	Items []*domain.AuditEvent `json:"items"`
}
