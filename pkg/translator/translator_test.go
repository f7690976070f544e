package translator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nfgraph/pkg/ast"
	"github.com/orneryd/nfgraph/pkg/storage"
	"github.com/orneryd/nfgraph/pkg/translator"
)

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedPerson(t *testing.T, store *storage.SQLiteStore, id, name string, age int) {
	t.Helper()
	_, err := store.Execute(context.Background(),
		`INSERT INTO nodes (id, label, properties) VALUES (?, ?, json_object('name', ?, 'age', ?))`,
		[]interface{}{id, `["Person"]`, name, age})
	require.NoError(t, err)
}

func TestTranslate_PlainMatchReturnProducesRunnableSQL(t *testing.T) {
	store := newTestStore(t)
	seedPerson(t, store, "n1", "Ada", 36)
	seedPerson(t, store, "n2", "Bob", 20)

	q := &ast.Query{
		Clauses: []ast.Clause{
			&ast.MatchClause{
				Patterns: []ast.Pattern{&ast.NodePattern{Variable: "n", Labels: []string{"Person"}}},
			},
			&ast.ReturnClause{
				Items: []ast.ProjectionItem{
					{Expr: &ast.Property{Variable: "n", Name: "name"}, Alias: "name"},
				},
			},
		},
	}

	tr := translator.New()
	translation, err := tr.Translate(q)
	require.NoError(t, err)
	require.Len(t, translation.Statements, 1)
	assert.Equal(t, []string{"name"}, translation.ReturnColumns)

	res, err := store.Execute(context.Background(), translation.Statements[0].SQL, translation.Statements[0].Params)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
}

func TestTranslate_RejectsAggregateReturn(t *testing.T) {
	q := &ast.Query{
		Clauses: []ast.Clause{
			&ast.MatchClause{Patterns: []ast.Pattern{&ast.NodePattern{Variable: "n"}}},
			&ast.ReturnClause{
				Items: []ast.ProjectionItem{
					{Expr: &ast.FunctionCall{Name: "count", Args: []ast.Expression{&ast.Variable{Name: "n"}}}, Alias: "c"},
				},
			},
		},
	}

	_, err := translator.New().Translate(q)
	require.Error(t, err)
	var unsupported *translator.ErrUnsupported
	assert.ErrorAs(t, err, &unsupported)
}

func TestTranslate_RejectsReturnWithLimit(t *testing.T) {
	limit := &ast.Literal{Value: int64(1)}
	q := &ast.Query{
		Clauses: []ast.Clause{
			&ast.MatchClause{Patterns: []ast.Pattern{&ast.NodePattern{Variable: "n"}}},
			&ast.ReturnClause{
				Items: []ast.ProjectionItem{{Expr: &ast.Variable{Name: "n"}, Alias: "n"}},
				Limit: limit,
			},
		},
	}

	_, err := translator.New().Translate(q)
	require.Error(t, err)
	var unsupported *translator.ErrUnsupported
	assert.ErrorAs(t, err, &unsupported)
}

func TestTranslate_RejectsReturnDistinct(t *testing.T) {
	q := &ast.Query{
		Clauses: []ast.Clause{
			&ast.MatchClause{Patterns: []ast.Pattern{&ast.NodePattern{Variable: "n"}}},
			&ast.ReturnClause{
				Items:    []ast.ProjectionItem{{Expr: &ast.Variable{Name: "n"}, Alias: "n"}},
				Distinct: true,
			},
		},
	}

	_, err := translator.New().Translate(q)
	require.Error(t, err)
	var unsupported *translator.ErrUnsupported
	assert.ErrorAs(t, err, &unsupported)
}

func TestTranslate_NodeVariableProjectsFlatPropertyObject(t *testing.T) {
	store := newTestStore(t)
	seedPerson(t, store, "n1", "Ada", 36)

	q := &ast.Query{
		Clauses: []ast.Clause{
			&ast.MatchClause{Patterns: []ast.Pattern{&ast.NodePattern{Variable: "n", Labels: []string{"Person"}}}},
			&ast.ReturnClause{Items: []ast.ProjectionItem{{Expr: &ast.Variable{Name: "n"}, Alias: "n"}}},
		},
	}

	translation, err := translator.New().Translate(q)
	require.NoError(t, err)

	res, err := store.Execute(context.Background(), translation.Statements[0].SQL, translation.Statements[0].Params)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	raw, ok := res.Rows[0]["n"].(string)
	require.True(t, ok)
	assert.Contains(t, raw, `"name":"Ada"`)
	assert.Contains(t, raw, `"_nf_id":"n1"`)
	assert.Contains(t, raw, `"_nf_labels":["Person"]`)
}

func TestTranslate_RejectsOptionalMatch(t *testing.T) {
	q := &ast.Query{
		Clauses: []ast.Clause{
			&ast.MatchClause{Patterns: []ast.Pattern{&ast.NodePattern{Variable: "n"}}, Optional: true},
			&ast.ReturnClause{Items: []ast.ProjectionItem{{Expr: &ast.Variable{Name: "n"}, Alias: "n"}}},
		},
	}

	_, err := translator.New().Translate(q)
	require.Error(t, err)
}

func TestTranslateMatch_BindsRelationshipEndpoints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedPerson(t, store, "a", "Ada", 36)
	seedPerson(t, store, "b", "Bob", 20)
	_, err := store.Execute(ctx, `INSERT INTO edges (id, type, source_id, target_id, properties) VALUES (?, ?, ?, ?, '{}')`,
		[]interface{}{"e1", "KNOWS", "a", "b"})
	require.NoError(t, err)

	pattern := &ast.RelationshipPattern{
		Source: &ast.NodePattern{Variable: "a"},
		Edge:   ast.EdgeSpec{Variable: "r", Type: "KNOWS", Direction: ast.DirRight},
		Target: &ast.NodePattern{Variable: "b"},
	}

	tr := translator.New()
	stmt, vars, err := tr.TranslateMatch([]ast.Pattern{pattern}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "node", vars["a"])
	assert.Equal(t, "edge", vars["r"])
	assert.Equal(t, "node", vars["b"])

	res, err := store.Execute(ctx, stmt.SQL, stmt.Params)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "a", res.Rows[0]["a_id"])
	assert.Equal(t, "b", res.Rows[0]["b_id"])
	assert.Equal(t, "e1", res.Rows[0]["r_id"])
}
