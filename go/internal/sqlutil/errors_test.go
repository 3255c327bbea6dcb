package sqlutil

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestIsUniqueViolation_Postgres(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "unique_active_round"}
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert round: %w", unique)))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "unique.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE rounds (id TEXT PRIMARY KEY, status TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE UNIQUE INDEX unique_active_round ON rounds (status) WHERE status = 'active'`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO rounds (id, status) VALUES ('a', 'active')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO rounds (id, status) VALUES ('b', 'active')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "partial index violation: %v", err)

	_, err = db.Exec(`INSERT INTO rounds (id, status) VALUES ('a', 'ended')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "primary key violation: %v", err)

	_, err = db.Exec(`INSERT INTO rounds (id, status) VALUES ('c', 'ended')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO rounds (id, status) VALUES ('d', 'ended')`)
	require.NoError(t, err, "ended rounds are not constrained")
}
