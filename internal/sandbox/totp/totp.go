// Package totp wraps RFC 6238 time-based one-time passwords as used by the
// sandbox: SHA1, 30 second steps, six digits, one step of clock skew.
package totp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	Period = 30
	Skew   = 1

	qrSize = 200
)

var opts = totp.ValidateOpts{
	Period:    Period,
	Skew:      Skew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Enrollment is a freshly generated secret with its provisioning URI.
type Enrollment struct {
	Secret string
	URI    string
	key    *otp.Key
}

// Generate creates a new secret for account under issuer.
func Generate(issuer, account string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	return &Enrollment{Secret: key.Secret(), URI: key.URL(), key: key}, nil
}

// QRCodeDataURL renders the provisioning URI as a PNG data URL.
func (e *Enrollment) QRCodeDataURL() (string, error) {
	img, err := e.key.Image(qrSize, qrSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Code returns the code for secret at t.
func Code(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, opts)
}

// Validate reports whether code matches secret at t, allowing one step of
// drift either way. A malformed secret never validates.
func Validate(code, secret string, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, t, opts)
	return err == nil && ok
}
