package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dukerupert/welfare/internal/model"
	"github.com/dukerupert/welfare/internal/vault"
)

// SessionStore persists console sessions. The backend bearer token never
// touches disk in plaintext.
type SessionStore struct {
	db    *sql.DB
	vault *vault.Vault
	now   func() time.Time
}

func NewSessionStore(db *sql.DB, v *vault.Vault) *SessionStore {
	return &SessionStore{db: db, vault: v, now: time.Now}
}

const sessionCols = `id, token, bearer_token_enc, user_name, role, expires_at, created_at`

func (s *SessionStore) scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var sess model.Session
	var sealed []byte
	err := scanner.Scan(&sess.ID, &sess.Token, &sealed, &sess.UserName, &sess.Role, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	bearer, err := s.vault.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("open bearer token: %w", err)
	}
	sess.BearerToken = string(bearer)
	return &sess, nil
}

// Create stores a session for a backend login and returns it with a
// crypto-random cookie token.
func (s *SessionStore) Create(bearerToken string, user model.User, ttl time.Duration) (*model.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	sealed, err := s.vault.Seal([]byte(bearerToken))
	if err != nil {
		return nil, fmt.Errorf("seal bearer token: %w", err)
	}

	now := s.now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO sessions (token, bearer_token_enc, user_name, role, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		token, sealed, user.Name, user.Role, now.Add(ttl), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	return s.scanSession(row)
}

// GetByToken returns the session for the given cookie token, or nil if expired or not found.
func (s *SessionStore) GetByToken(token string) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionCols+` FROM sessions WHERE token = ? AND expires_at > ?`,
		token, s.now().UTC(),
	)
	sess, err := s.scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes expired sessions and returns their IDs so callers can
// release per-session state.
func (s *SessionStore) DeleteExpired() ([]int64, error) {
	now := s.now().UTC()
	rows, err := s.db.Query(`SELECT id FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expired session: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}

	if _, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now); err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}
	return ids, nil
}
