package domain

import "time"

// MinPasswordLength is the shortest plaintext password accepted at
// registration and password change.
const MinPasswordLength = 8

// User models an account holder. Hashes and TOTP secrets never leave the
// service in JSON.
type User struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	TOTPSecret        *string    `json:"-"`
	TOTPPendingSecret *string    `json:"-"`
	IsActive          bool       `json:"isActive"`
	IsAdmin           bool       `json:"isAdmin"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// TwoFactorEnabled reports whether an active second factor is configured.
func (u *User) TwoFactorEnabled() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}

// Profile is the minimal public view of a user returned by auth endpoints.
type Profile struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	IsAdmin          bool       `json:"isAdmin"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Profile projects u onto its public view.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		IsAdmin:          u.IsAdmin,
		TwoFactorEnabled: u.TwoFactorEnabled(),
		LastLogin:        u.LastLogin,
		CreatedAt:        u.CreatedAt,
	}
}

// UserUpdate is a partial update. Nil fields are left untouched.
type UserUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
	IsActive     *bool
	IsAdmin      *bool
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.PasswordHash == nil && u.IsActive == nil && u.IsAdmin == nil
}
