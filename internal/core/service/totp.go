package service

import (
	"bytes"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

const (
	totpPeriod     = 30
	totpSecretSize = 20
	totpDigits     = otp.DigitsSix
	// DefaultTOTPWindow accepts codes from one step before or after the current one.
	DefaultTOTPWindow = 1
	qrCodeSize        = 256
)

// TOTPEngine generates and checks RFC 6238 codes (SHA1, 6 digits, 30s step).
type TOTPEngine struct {
	issuer string
	now    func() time.Time
}

// NewTOTPEngine returns an engine labelling secrets with issuer.
func NewTOTPEngine(issuer string) *TOTPEngine {
	return &TOTPEngine{issuer: issuer, now: time.Now}
}

// GenerateSecret creates a fresh 160-bit secret with its provisioning URI and
// a PNG QR code of that URI.
func (e *TOTPEngine) GenerateSecret(accountName string) (*ports.TwoFactorEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      totpDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("render totp qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode totp qr code: %w", err)
	}

	return &ports.TwoFactorEnrollment{
		Secret:    key.Secret(),
		URI:       key.URL(),
		QRCodePNG: buf.Bytes(),
	}, nil
}

// Verify checks code against secret with DefaultTOTPWindow.
func (e *TOTPEngine) Verify(secret, code string) bool {
	return e.VerifyCode(secret, code, DefaultTOTPWindow)
}

// VerifyCode accepts code if it matches any step within windowSteps of the
// current one. Codes that are not exactly six ASCII digits are rejected
// without computing a digest.
func (e *TOTPEngine) VerifyCode(secret, code string, windowSteps uint) bool {
	if secret == "" || !wellFormedCode(code) {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, e.now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      windowSteps,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// CodeAt returns the code for secret at t. Used by the admin tooling and tests.
func (e *TOTPEngine) CodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
}

func wellFormedCode(code string) bool {
	if len(code) != totpDigits.Length() {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
