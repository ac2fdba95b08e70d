package testdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"student-result-system/internal/config"
	"student-result-system/internal/db"
)

// NewSQLite opens a fresh database file in t.TempDir with every migration
// applied. The handle is closed when the test ends.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver:             "sqlite",
		Path:               filepath.Join(t.TempDir(), "test.db"),
		MaxConnections:     4,
		MaxIdleConnections: 4,
	}}
	conn, err := db.NewConnection(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(context.Background(), conn, "sqlite"); err != nil {
		t.Fatal(err)
	}
	return conn
}
