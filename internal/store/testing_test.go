package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/welfare/internal/database"
	"github.com/dukerupert/welfare/internal/vault"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New("test-secret", []byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	return v
}
