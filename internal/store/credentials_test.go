package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestFileCredentialStore(t *testing.T) {
	t.Run("nil when file does not exist", func(t *testing.T) {
		s := NewFileCredentialStore(filepath.Join(t.TempDir(), "credentials.enc"), "")

		creds, err := s.Load()
		require.NoError(t, err)
		assert.Nil(t, creds)
	})

	t.Run("round trips without encryption", func(t *testing.T) {
		s := NewFileCredentialStore(filepath.Join(t.TempDir(), "credentials.enc"), "")

		require.NoError(t, s.Save(Credentials{ClientID: "id-1", ClientSecret: "secret-1"}))

		creds, err := s.Load()
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, "id-1", creds.ClientID)
		assert.Equal(t, "secret-1", creds.ClientSecret)
	})

	t.Run("round trips with encryption", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.enc")
		s := NewFileCredentialStore(path, testEncryptionKey)

		require.NoError(t, s.Save(Credentials{ClientID: "id-1", ClientSecret: "secret-1"}))

		creds, err := s.Load()
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, "secret-1", creds.ClientSecret)
	})

	t.Run("encrypted file does not contain plaintext secret", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.enc")
		s := NewFileCredentialStore(path, testEncryptionKey)

		require.NoError(t, s.Save(Credentials{ClientID: "id-1", ClientSecret: "super-secret"}))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "super-secret")
	})

	t.Run("file permissions are owner only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.enc")
		s := NewFileCredentialStore(path, "")

		require.NoError(t, s.Save(Credentials{ClientID: "id-1", ClientSecret: "secret-1"}))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("save replaces previous credentials", func(t *testing.T) {
		s := NewFileCredentialStore(filepath.Join(t.TempDir(), "credentials.enc"), "")

		require.NoError(t, s.Save(Credentials{ClientID: "old", ClientSecret: "old-secret"}))
		require.NoError(t, s.Save(Credentials{ClientID: "new", ClientSecret: "new-secret"}))

		creds, err := s.Load()
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, "new", creds.ClientID)
	})

	t.Run("nil for incomplete credentials", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.enc")
		require.NoError(t, os.WriteFile(path, []byte(`{"client_id":"only-id"}`), 0o600))

		s := NewFileCredentialStore(path, "")
		creds, err := s.Load()
		require.NoError(t, err)
		assert.Nil(t, creds)
	})

	t.Run("load fails on wrong key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.enc")
		require.NoError(t, NewFileCredentialStore(path, testEncryptionKey).Save(
			Credentials{ClientID: "id", ClientSecret: "secret"},
		))

		otherKey := "abababababababababababababababababababababababababababababababab"
		_, err := NewFileCredentialStore(path, otherKey).Load()
		assert.Error(t, err)
	})
}
