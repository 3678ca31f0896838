// Package credentials turns a user's stored, encrypted refresh token into an authenticated playlist client.
package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Encryptor encrypts secrets at rest.
type Encryptor interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

const (
	cipherPrefixV1 = "v1:"
	noopPrefix     = "noop:"

	keyInfo = "plx credential v1"
)

// XChaChaEncryptor implements [Encryptor] with XChaCha20-Poly1305 under a key derived from a secret with HKDF-SHA256.
type XChaChaEncryptor struct {
	aead cipher.AEAD
}

// NewXChaChaEncryptor derives the cipher key from secret.
func NewXChaChaEncryptor(secret string) (*XChaChaEncryptor, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &XChaChaEncryptor{aead: aead}, nil
}

// Encrypt seals plaintext under a random nonce and returns "v1:" + base64(nonce||ciphertext).
func (e *XChaChaEncryptor) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(plaintext)+e.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return cipherPrefixV1 + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (e *XChaChaEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	if !strings.HasPrefix(ciphertext, cipherPrefixV1) {
		prefix := ciphertext
		if len(prefix) > 6 {
			prefix = prefix[:6]
		}
		return nil, fmt.Errorf("unknown ciphertext version (prefix: %s)", prefix)
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext[len(cipherPrefixV1):])
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize+e.aead.Overhead() {
		return nil, errors.New("ciphertext too short")
	}

	return e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
}

// NoopEncryptor is useful for tests; it stores plaintext with a prefix marker.
type NoopEncryptor struct{}

func (NoopEncryptor) Encrypt(plaintext []byte) (string, error) {
	return noopPrefix + base64.StdEncoding.EncodeToString(plaintext), nil
}

func (NoopEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	if !strings.HasPrefix(ciphertext, noopPrefix) {
		return nil, errors.New("invalid noop ciphertext")
	}
	return base64.StdEncoding.DecodeString(ciphertext[len(noopPrefix):])
}
