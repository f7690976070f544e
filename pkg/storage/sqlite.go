package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// schema is the two-table layout the engine assumes: nodes and edges with
// JSON-encoded label arrays and property maps (§3 of the design).
const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL DEFAULT '[]',
	properties TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS edges (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	properties TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);
`

type txKey struct{}

// SQLiteStore is a Store backed by SQLite (via mattn/go-sqlite3's cgo
// driver, fronted by sqlx for convenience). It exists so the engine has a
// real, runnable collaborator to execute against; nothing in pkg/engine
// imports this package directly, only the Store interface.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at path and ensures
// the nodes/edges schema exists. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // mattn/go-sqlite3 serializes writers anyway

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.WithError(err).Warn("could not enable WAL journal mode")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx, letting Execute run
// identically inside and outside a transaction.
type queryer interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStore) conn(ctx context.Context) queryer {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// Execute runs sql with positional params and returns decoded rows for
// SELECT-shaped statements or the affected row count for DML.
func (s *SQLiteStore) Execute(ctx context.Context, query string, params []interface{}) (*Result, error) {
	conn := s.conn(ctx)

	if isSelect(query) {
		rows, err := conn.QueryxContext(ctx, query, params...)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		defer rows.Close()

		var out []Row
		for rows.Next() {
			row := make(Row)
			if err := rows.MapScan(row); err != nil {
				return nil, fmt.Errorf("scan row: %w", err)
			}
			out = append(out, normalizeRow(row))
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate rows: %w", err)
		}
		return &Result{Rows: out}, nil
	}

	res, err := conn.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	changes, err := res.RowsAffected()
	if err != nil {
		changes = 0
	}
	return &Result{Changes: changes}, nil
}

// Transaction runs fn with a context carrying a live *sqlx.Tx; every
// Execute call made through that context participates in the same
// transaction. A panic inside fn is converted to a rollback and re-raised.
func (s *SQLiteStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.WithError(rbErr).Error("rollback failed after query error")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// normalizeRow widens sqlite's []byte TEXT results to Go strings so engine
// code never has to type-switch on []byte vs string.
func normalizeRow(row Row) Row {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}

// isSelect is a coarse statement-shape check; the engine only ever issues
// SELECT, INSERT, UPDATE, or DELETE through this collaborator.
func isSelect(query string) bool {
	i := 0
	for i < len(query) && (query[i] == ' ' || query[i] == '\n' || query[i] == '\t') {
		i++
	}
	return len(query)-i >= 6 && (query[i] == 'S' || query[i] == 's') &&
		(query[i+1] == 'E' || query[i+1] == 'e')
}
