// Package dbtest opens migrated file-backed SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/mcdev12/typerace/go/internal/db"
	"github.com/mcdev12/typerace/go/internal/dbconfig"
	"github.com/mcdev12/typerace/go/internal/migrations"
)

// OpenSQLite returns a migrated database in the test's temp dir, closed on cleanup.
func OpenSQLite(t testing.TB) (*sql.DB, *db.Queries) {
	t.Helper()

	cfg := dbconfig.Config{
		Driver:     dbconfig.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "typerace.db"),
	}

	ctx := context.Background()
	conn, err := dbconfig.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := migrations.Up(ctx, conn, dbconfig.DriverSQLite); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return conn, db.NewWithDialect(conn, cfg.Dialect())
}
