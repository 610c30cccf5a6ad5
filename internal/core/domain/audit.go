package domain

import "time"

// AuditAction names a security-relevant transition.
type AuditAction string

const (
	AuditUserRegistered    AuditAction = "user.register"
	AuditLoginSucceeded    AuditAction = "auth.login"
	AuditLoginFailed       AuditAction = "auth.login_failed"
	AuditLoginTOTPRequired AuditAction = "auth.login_2fa_required"
	AuditTwoFactorSetup    AuditAction = "2fa.setup"
	AuditTwoFactorEnabled  AuditAction = "2fa.enabled"
	AuditTwoFactorFailed   AuditAction = "2fa.verify_failed"
	AuditTwoFactorDisabled AuditAction = "2fa.disabled"
	AuditAPIKeyCreated     AuditAction = "apikey.created"
	AuditAPIKeyRevoked     AuditAction = "apikey.revoked"
	AuditPasswordChanged   AuditAction = "user.password_changed"
	AuditUserUpdated       AuditAction = "user.updated"
	AuditAdminUserUpdated  AuditAction = "admin.user_updated"
)

// AuditEvent is an append-only record of an AuditAction.
type AuditEvent struct {
	ID         string            `json:"id" bson:"_id"`
	Action     AuditAction       `json:"action" bson:"action"`
	UserID     string            `json:"userId,omitempty" bson:"user_id,omitempty"`
	Username   string            `json:"username,omitempty" bson:"username,omitempty"`
	ClientIP   string            `json:"clientIp,omitempty" bson:"client_ip,omitempty"`
	UserAgent  string            `json:"userAgent,omitempty" bson:"user_agent,omitempty"`
	RequestID  string            `json:"requestId,omitempty" bson:"request_id,omitempty"`
	Success    bool              `json:"success" bson:"success"`
	Reason     string            `json:"reason,omitempty" bson:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurredAt" bson:"occurred_at"`
}

// AuditFilter narrows an audit listing. Zero values mean "any".
type AuditFilter struct {
	UserID string
	Action AuditAction
	Limit  int
}
