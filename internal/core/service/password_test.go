package service

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
)

func TestNewPasswordHasher_EnforcesMinimumCost(t *testing.T) {
	if h := NewPasswordHasher(4); h.cost != MinBcryptCost {
		t.Fatalf("expected cost %d, got %d", MinBcryptCost, h.cost)
	}
	if h := NewPasswordHasher(14); h.cost != 14 {
		t.Fatalf("expected cost 14, got %d", h.cost)
	}
}

func TestPasswordHasher_HashIsSalted(t *testing.T) {
	h := testHasher()

	a, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct digests for the same password")
	}
	if !h.Verify("correct horse", a) || !h.Verify("correct horse", b) {
		t.Fatalf("expected both digests to verify")
	}
	if h.Verify("correct horsE", a) {
		t.Fatalf("expected mismatch for a different password")
	}
}

func TestPasswordHasher_DigestEmbedsCost(t *testing.T) {
	h := testHasher()
	digest, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Fatalf("expected embedded cost %d, got %d", bcrypt.MinCost, cost)
	}
}

func TestPasswordHasher_VerifyMalformedDigest(t *testing.T) {
	h := testHasher()
	for _, digest := range []string{"", "not-a-hash", "$2a$10$short"} {
		if h.Verify("password123", digest) {
			t.Fatalf("expected malformed digest %q to fail", digest)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "seven characters", in: "1234567", wantErr: domain.ErrPasswordTooShort},
		{name: "eight characters", in: "12345678"},
		{name: "multibyte counted as characters", in: "ñññññññ", wantErr: domain.ErrPasswordTooShort},
		{name: "too long for bcrypt", in: strings.Repeat("a", 73), wantErr: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.in)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}
