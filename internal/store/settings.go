package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/welfare/internal/vault"
)

const vaultSaltKey = "vault_salt"

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// VaultSalt returns the per-install salt for session encryption, generating
// and persisting it on first use.
func (s *SettingsStore) VaultSalt() ([]byte, error) {
	v, err := s.Get(vaultSaltKey)
	switch {
	case err == nil:
		salt, err := hex.DecodeString(v)
		if err != nil || len(salt) != vault.SaltSize {
			return nil, fmt.Errorf("stored vault salt is corrupt")
		}
		return salt, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	salt, err := vault.GenerateSalt()
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING`,
		vaultSaltKey, hex.EncodeToString(salt), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("store vault salt: %w", err)
	}

	// Another process may have won the insert; the stored value is authoritative.
	v, err = s.Get(vaultSaltKey)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(v)
}
