package credentials

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXChaChaEncryptor_EncryptDecrypt(t *testing.T) {
	enc, err := NewXChaChaEncryptor("correct horse battery staple")
	require.NoError(t, err)

	plaintext := []byte("AQD-refresh-token")
	ciphertext, err := enc.Encrypt(plaintext)
	require.NoError(t, err)

	assert.Contains(t, ciphertext, "v1:")
	assert.NotContains(t, ciphertext, string(plaintext))

	decrypted, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestXChaChaEncryptor_NonceIsRandom(t *testing.T) {
	enc, err := NewXChaChaEncryptor("secret")
	require.NoError(t, err)

	a, err := enc.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestXChaChaEncryptor_WrongKey(t *testing.T) {
	enc, err := NewXChaChaEncryptor("old key")
	require.NoError(t, err)
	ciphertext, err := enc.Encrypt([]byte("token"))
	require.NoError(t, err)

	other, err := NewXChaChaEncryptor("new key")
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestXChaChaEncryptor_InvalidInput(t *testing.T) {
	_, err := NewXChaChaEncryptor("")
	require.Error(t, err)

	enc, err := NewXChaChaEncryptor("secret")
	require.NoError(t, err)

	_, err = enc.Decrypt("v2:somedata")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ciphertext version")

	_, err = enc.Decrypt("v1:!!!invalid!!!")
	require.Error(t, err)

	_, err = enc.Decrypt("v1:" + base64.StdEncoding.EncodeToString([]byte("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestNoopEncryptor(t *testing.T) {
	var enc NoopEncryptor

	ciphertext, err := enc.Encrypt([]byte("token"))
	require.NoError(t, err)
	assert.Contains(t, ciphertext, "noop:")

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "token", string(plaintext))

	_, err = enc.Decrypt("v1:abc")
	require.Error(t, err)
}
