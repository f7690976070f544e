// Package storage defines the collaborator boundary between the query
// engine and the relational key/value-ish table store that actually
// persists nodes and edges.
//
// The engine never issues a SQL statement it did not itself assemble
// through this interface, and it never inspects how a Store executes
// one: a Store is free to be a real SQLite file, an in-memory sqlite3
// connection, or a test double. This package also ships the one
// concrete implementation the repository needs to run end to end, a
// SQLite-backed Store built on database/sql and the json1 extension.
package storage

import "context"

// Row is a single result row: column name to decoded value. JSON text
// columns (properties, label arrays) are handed back as raw strings;
// callers that need structured data decode them (see decodeJSONValue in
// pkg/engine/format.go).
type Row = map[string]interface{}

// Result is the outcome of one SQL statement.
type Result struct {
	Rows    []Row
	Changes int64
}

// Store is the storage collaborator the engine depends on. Implementations
// must support SQLite-compatible JSON functions (json_extract, json_each,
// json_set, json_patch, json_remove, json_group_array, json()).
type Store interface {
	// Execute runs one SQL statement with positional parameters and
	// returns its result rows (for SELECT) or row-count (for DML).
	Execute(ctx context.Context, sql string, params []interface{}) (*Result, error)

	// Transaction runs fn inside a single atomic scope: every Execute
	// call made with the context fn receives is part of the same
	// transaction, committed if fn returns nil and rolled back if fn
	// returns an error or panics.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
