// Package cryptox seals small secrets at rest with AES-GCM under a key
// derived from a passphrase with Argon2id.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/docverify/internal/common"
)

var ErrMalformed = errors.New("malformed sealed value")

// DeriveKey stretches passphrase into a 256-bit AES key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext and returns base64(nonce || ciphertext).
func Seal(key, plaintext []byte) (string, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	out := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func Open(key []byte, sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aesgcm.NonceSize() {
		return nil, ErrMalformed
	}
	nonce, ct := raw[:aesgcm.NonceSize()], raw[aesgcm.NonceSize():]
	return aesgcm.Open(nil, nonce, ct, nil)
}
