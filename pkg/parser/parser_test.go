package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nfgraph/pkg/ast"
)

func TestParse_SimpleMatchReturn(t *testing.T) {
	q, err := New().Parse(`MATCH (n:Person) WHERE n.age > 30 RETURN n.name AS name`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 2)

	match, ok := q.Clauses[0].(*ast.MatchClause)
	require.True(t, ok)
	assert.False(t, match.Optional)
	require.Len(t, match.Patterns, 1)
	assert.NotNil(t, match.Where)

	ret, ok := q.Clauses[1].(*ast.ReturnClause)
	require.True(t, ok)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, "name", ret.Items[0].Alias)
}

func TestParse_OptionalMatch(t *testing.T) {
	q, err := New().Parse(`MATCH (n) OPTIONAL MATCH (n)-[:KNOWS]->(m) RETURN n, m`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 3)

	optional, ok := q.Clauses[1].(*ast.MatchClause)
	require.True(t, ok)
	assert.True(t, optional.Optional)
}

func TestParse_MergeWithOnCreateOnMatch(t *testing.T) {
	q, err := New().Parse(`MERGE (n:Counter {key: "hits"}) ON CREATE SET n.value = 1 ON MATCH SET n.value = n.value + 1 RETURN n`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 2)

	merge, ok := q.Clauses[0].(*ast.MergeClause)
	require.True(t, ok)
	require.Len(t, merge.OnCreateSet, 1)
	require.Len(t, merge.OnMatchSet, 1)
}

func TestParse_CallWithYield(t *testing.T) {
	q, err := New().Parse(`CALL apoc.text.join(["a","b"], "-") YIELD value RETURN value`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 2)

	call, ok := q.Clauses[0].(*ast.CallClause)
	require.True(t, ok)
	assert.Equal(t, "apoc.text.join", call.Procedure)
	require.Len(t, call.Args, 2)
	require.Equal(t, []string{"value"}, call.Yield)
}

func TestParse_UnwindAndDetachDelete(t *testing.T) {
	q, err := New().Parse(`UNWIND [1, 2, 3] AS x MATCH (n) WHERE n.id = x DETACH DELETE n`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 3)

	unwind, ok := q.Clauses[0].(*ast.UnwindClause)
	require.True(t, ok)
	assert.Equal(t, "x", unwind.Alias)

	del, ok := q.Clauses[2].(*ast.DeleteClause)
	require.True(t, ok)
	assert.True(t, del.Detach)
}

func TestParse_SyntaxErrorReportsPosition(t *testing.T) {
	_, err := New().Parse(`MATCH (n RETURN n`)
	require.Error(t, err)

	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.NotEmpty(t, pe.Message)
	assert.Equal(t, 1, pe.Line)
	assert.Equal(t, 10, pe.Column) // RETURN, where ")" was expected
}
