package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nfgraph/pkg/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_InsertAndSelect(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res, err := store.Execute(ctx, `INSERT INTO nodes (id, label, properties) VALUES (?, ?, ?)`,
		[]interface{}{"n1", `["Person"]`, `{"name":"Ada"}`})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Changes)

	res, err = store.Execute(ctx, `SELECT id, label, properties FROM nodes WHERE id = ?`, []interface{}{"n1"})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "n1", res.Rows[0]["id"])
	assert.Equal(t, `["Person"]`, res.Rows[0]["label"])
}

func TestSQLiteStore_JSONExtractFiltersProperties(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Execute(ctx, `INSERT INTO nodes (id, label, properties) VALUES (?, ?, ?)`,
		[]interface{}{"n1", `["Person"]`, `{"name":"Ada","age":36}`})
	require.NoError(t, err)
	_, err = store.Execute(ctx, `INSERT INTO nodes (id, label, properties) VALUES (?, ?, ?)`,
		[]interface{}{"n2", `["Person"]`, `{"name":"Bob","age":20}`})
	require.NoError(t, err)

	res, err := store.Execute(ctx, `SELECT id FROM nodes WHERE json_extract(properties, '$.age') > ?`, []interface{}{30})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "n1", res.Rows[0]["id"])
}

func TestSQLiteStore_TransactionCommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Transaction(ctx, func(txCtx context.Context) error {
		_, err := store.Execute(txCtx, `INSERT INTO nodes (id, label, properties) VALUES (?, ?, ?)`,
			[]interface{}{"n1", `[]`, `{}`})
		return err
	})
	require.NoError(t, err)

	res, err := store.Execute(ctx, `SELECT id FROM nodes`, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

func TestSQLiteStore_TransactionRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := store.Transaction(ctx, func(txCtx context.Context) error {
		_, err := store.Execute(txCtx, `INSERT INTO nodes (id, label, properties) VALUES (?, ?, ?)`,
			[]interface{}{"n1", `[]`, `{}`})
		require.NoError(t, err)
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	res, err := store.Execute(ctx, `SELECT id FROM nodes`, nil)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 0)
}

func TestSQLiteStore_UpdateReturnsChangeCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Execute(ctx, `INSERT INTO nodes (id, label, properties) VALUES (?, ?, ?)`,
		[]interface{}{"n1", `[]`, `{"hits":1}`})
	require.NoError(t, err)

	res, err := store.Execute(ctx, `UPDATE nodes SET properties = ? WHERE id = ?`,
		[]interface{}{`{"hits":2}`, "n1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Changes)
}
