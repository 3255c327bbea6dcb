package db

import (
	"context"
	"database/sql"
	"strings"
	"sync"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Dialect selects the placeholder style sent to the driver.
type Dialect int

const (
	// Postgres uses $n placeholders as written.
	Postgres Dialect = iota
	// SQLite gets $n rewritten to positional ? with arguments reordered.
	SQLite
)

// Queries runs the typerace statements against a DBTX.
type Queries struct {
	db      DBTX
	dialect Dialect
}

// New binds queries to db using Postgres placeholders.
func New(db DBTX) *Queries {
	return &Queries{db: db, dialect: Postgres}
}

// NewWithDialect binds queries to db for the given dialect.
func NewWithDialect(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

// WithTx returns queries bound to tx, keeping the dialect.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// Dialect returns the placeholder dialect in use.
func (q *Queries) Dialect() Dialect {
	return q.dialect
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	query, args = q.bind(query, args)
	return q.db.ExecContext(ctx, query, args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	query, args = q.bind(query, args)
	return q.db.QueryRowContext(ctx, query, args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	query, args = q.bind(query, args)
	return q.db.QueryContext(ctx, query, args...)
}

func (q *Queries) bind(query string, args []interface{}) (string, []interface{}) {
	if q.dialect != SQLite {
		return query, args
	}
	b := rebind(query)
	out := make([]interface{}, len(b.order))
	for i, idx := range b.order {
		out[i] = args[idx]
	}
	return b.query, out
}

type bound struct {
	query string
	order []int
}

var rebound sync.Map // string -> bound

// rebind turns "$2 ... $1" into "? ... ?" and records which argument each
// placeholder consumes.
func rebind(query string) bound {
	if b, ok := rebound.Load(query); ok {
		return b.(bound)
	}

	var (
		sb    strings.Builder
		order []int
	)
	sb.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' || i+1 >= len(query) || !isDigit(query[i+1]) {
			sb.WriteByte(c)
			continue
		}
		n := 0
		j := i + 1
		for j < len(query) && isDigit(query[j]) {
			n = n*10 + int(query[j]-'0')
			j++
		}
		sb.WriteByte('?')
		order = append(order, n-1)
		i = j - 1
	}

	b := bound{query: sb.String(), order: order}
	rebound.Store(query, b)
	return b
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
