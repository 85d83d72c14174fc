package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 32 bytes, hex encoded
const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEncryptDecrypt(t *testing.T) {
	t.Run("round trips plaintext", func(t *testing.T) {
		encrypted, err := Encrypt(testKey, `{"client_id":"abc","client_secret":"shhh"}`)
		require.NoError(t, err)

		decrypted, err := Decrypt(testKey, encrypted)
		require.NoError(t, err)
		assert.Equal(t, `{"client_id":"abc","client_secret":"shhh"}`, decrypted)
	})

	t.Run("ciphertext differs from plaintext", func(t *testing.T) {
		encrypted, err := Encrypt(testKey, "secret-value")
		require.NoError(t, err)
		assert.NotContains(t, encrypted, "secret-value")
	})

	t.Run("unique nonce per encryption", func(t *testing.T) {
		a, err := Encrypt(testKey, "same input")
		require.NoError(t, err)
		b, err := Encrypt(testKey, "same input")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := Encrypt("abcd", "data")
		assert.Error(t, err)
	})

	t.Run("rejects non-hex key", func(t *testing.T) {
		_, err := Encrypt(strings.Repeat("z", 64), "data")
		assert.Error(t, err)
	})

	t.Run("rejects tampered ciphertext", func(t *testing.T) {
		encrypted, err := Encrypt(testKey, "data")
		require.NoError(t, err)

		_, err = Decrypt(testKey, "AAAA"+encrypted[4:])
		assert.Error(t, err)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		encrypted, err := Encrypt(testKey, "data")
		require.NoError(t, err)

		otherKey := strings.Repeat("ab", 32)
		_, err = Decrypt(otherKey, encrypted)
		assert.Error(t, err)
	})
}

func TestMaskSecret(t *testing.T) {
	t.Run("keeps short prefix", func(t *testing.T) {
		assert.Equal(t, "pape****", MaskSecret("papertrail-client-id"))
	})

	t.Run("fully masks short values", func(t *testing.T) {
		assert.Equal(t, "****", MaskSecret("abc"))
	})
}
