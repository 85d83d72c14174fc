package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hbeckers/punchd/internal/util"
)

// Credentials are the API client id/secret pair used to authenticate against
// the remote attendance service.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// FileCredentialStore keeps credentials in a single file, AES-256-GCM
// encrypted at rest when an encryption key is configured. With no key the
// file is plain JSON with 0600 permissions.
type FileCredentialStore struct {
	path          string
	encryptionKey string
}

func NewFileCredentialStore(path, hexKey string) *FileCredentialStore {
	return &FileCredentialStore{path: path, encryptionKey: hexKey}
}

// Load returns the stored credentials, or nil when none have been saved yet.
func (s *FileCredentialStore) Load() (*Credentials, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	payload := string(raw)
	if s.encryptionKey != "" {
		payload, err = util.Decrypt(s.encryptionKey, payload)
		if err != nil {
			return nil, fmt.Errorf("decrypt credentials: %w", err)
		}
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(payload), &creds); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, nil
	}
	return &creds, nil
}

// Save writes the credentials atomically (temp file + rename).
func (s *FileCredentialStore) Save(creds Credentials) error {
	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	data := string(payload)
	if s.encryptionKey != "" {
		data, err = util.Encrypt(s.encryptionKey, data)
		if err != nil {
			return fmt.Errorf("encrypt credentials: %w", err)
		}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close credentials: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}
