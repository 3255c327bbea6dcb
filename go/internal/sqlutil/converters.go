package sqlutil

import (
	"database/sql"
	"time"
)

// Timestamps are stored as unix milliseconds so Postgres and SQLite share queries.

// ToMillis converts a time to unix milliseconds
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts unix milliseconds to a UTC time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// FromNullMillis converts sql.NullInt64 milliseconds to an optional time
func FromNullMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := FromMillis(ms.Int64)
	return &t
}
