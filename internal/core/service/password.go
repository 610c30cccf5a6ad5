package service

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

// MinBcryptCost is the lowest work factor the hasher will use.
const MinBcryptCost = 12

// PasswordHasher hashes and verifies passwords with bcrypt. Salt and cost are
// embedded in every digest it produces.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using cost, raised to MinBcryptCost when lower.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// ValidatePassword enforces the minimum length, counted in characters.
func ValidatePassword(plaintext string) error {
	if utf8.RuneCountInString(plaintext) < domain.MinPasswordLength {
		return domain.ErrPasswordTooShort
	}
	if len(plaintext) > maxPasswordBytes {
		return domain.Validationf("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}

// Hash returns a salted digest of plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest is a
// mismatch.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
