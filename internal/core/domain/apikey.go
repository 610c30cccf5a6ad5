package domain

import (
	"slices"
	"time"
)

// API key permission scopes.
const (
	PermissionDiagramsRead  = "diagrams:read"
	PermissionDiagramsWrite = "diagrams:write"
)

// KnownPermissions lists every scope an API key may carry.
var KnownPermissions = []string{PermissionDiagramsRead, PermissionDiagramsWrite}

// APIKey is the stored record of an issued key. The raw key is never
// persisted; KeyHash holds its hex SHA-256 digest.
type APIKey struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Name        string     `json:"name"`
	KeyHash     string     `json:"-"`
	Prefix      string     `json:"prefix"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	IsActive    bool       `json:"isActive"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Expired reports whether the key has an expiry at or before now.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// HasPermission reports whether the key grants scope.
func (k *APIKey) HasPermission(scope string) bool {
	return slices.Contains(k.Permissions, scope)
}
