package engine_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nfgraph/pkg/engine"
	"github.com/orneryd/nfgraph/pkg/storage"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	store, err := storage.NewSQLiteStore(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return engine.New(store, log)
}

// TestEngine_CreateAndMatch covers S1: a CREATE followed by a MATCH on
// the same label sees the created node.
func TestEngine_CreateAndMatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	resp, err := e.Execute(ctx, `CREATE (n:Person {name: "Ada", age: 36}) RETURN n`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)

	resp, err = e.Execute(ctx, `MATCH (n:Person) WHERE n.name = "Ada" RETURN n.name AS name, n.age AS age`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Ada", resp.Data[0]["name"])
	assert.EqualValues(t, 36, resp.Data[0]["age"])
}

// TestEngine_MergeCreatesOnce covers S2: MERGE on an existing match does
// not create a duplicate node.
func TestEngine_MergeCreatesOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, `CREATE (n:City {name: "Oslo"})`, nil)
	require.NoError(t, err)

	resp, err := e.Execute(ctx, `MERGE (n:City {name: "Oslo"}) RETURN n.name AS name`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)

	countResp, err := e.Execute(ctx, `MATCH (n:City {name: "Oslo"}) RETURN count(n) AS c`, nil)
	require.NoError(t, err)
	require.Nil(t, countResp.Error)
	require.Len(t, countResp.Data, 1)
	assert.EqualValues(t, 1, countResp.Data[0]["c"])
}

// TestEngine_MergeOnCreateSet covers ON CREATE SET/ON MATCH SET
// branching.
func TestEngine_MergeOnCreateSet(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	resp, err := e.Execute(ctx, `MERGE (n:Counter {key: "hits"})
ON CREATE SET n.value = 1
ON MATCH SET n.value = n.value + 1
RETURN n.value AS value`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)
	assert.EqualValues(t, 1, resp.Data[0]["value"])

	resp, err = e.Execute(ctx, `MERGE (n:Counter {key: "hits"})
ON CREATE SET n.value = 1
ON MATCH SET n.value = n.value + 1
RETURN n.value AS value`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)
	assert.EqualValues(t, 2, resp.Data[0]["value"])
}

// TestEngine_OptionalMatchNullPadsRow covers S3: OPTIONAL MATCH with no
// match still yields a row with null bindings rather than dropping it.
func TestEngine_OptionalMatchNullPadsRow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, `CREATE (n:Person {name: "Solo"})`, nil)
	require.NoError(t, err)

	resp, err := e.Execute(ctx, `MATCH (n:Person {name: "Solo"})
OPTIONAL MATCH (n)-[:KNOWS]->(friend:Person)
RETURN n.name AS name, friend AS friend`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Solo", resp.Data[0]["name"])
	assert.Nil(t, resp.Data[0]["friend"])
}

// TestEngine_DeleteRequiresDetach covers the ConstraintViolation for
// deleting a node with incident edges without DETACH.
func TestEngine_DeleteRequiresDetach(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, `CREATE (a:Person {name: "A"})-[:KNOWS]->(b:Person {name: "B"})`, nil)
	require.NoError(t, err)

	resp, err := e.Execute(ctx, `MATCH (a:Person {name: "A"}) DELETE a`, nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)

	resp, err = e.Execute(ctx, `MATCH (a:Person {name: "A"}) DETACH DELETE a`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
}

// TestEngine_ReturnAfterDeleteRaisesEntityNotFound covers §4.6 Phase C:
// a RETURN that references a variable DELETEd earlier in the same query
// must fail rather than silently yield null.
func TestEngine_ReturnAfterDeleteRaisesEntityNotFound(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, `CREATE (n:Person {name: "Gone"})`, nil)
	require.NoError(t, err)

	resp, err := e.Execute(ctx, `MATCH (n:Person {name: "Gone"}) DELETE n RETURN n`, nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "entity not found")
}

// TestEngine_PlainMatchReturnHonorsOrderByAndLimit covers the strategy
// dispatcher's fast-path gate: a plain MATCH...RETURN carrying ORDER BY
// and LIMIT must not be answered by the single-statement fast path (it
// has no post-processing step), and must come back sorted and sliced
// rather than as every row in storage order.
func TestEngine_PlainMatchReturnHonorsOrderByAndLimit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, `CREATE (:Person {name: "Charlie", age: 40})`, nil)
	require.NoError(t, err)
	_, err = e.Execute(ctx, `CREATE (:Person {name: "Alice", age: 30})`, nil)
	require.NoError(t, err)
	_, err = e.Execute(ctx, `CREATE (:Person {name: "Bob", age: 35})`, nil)
	require.NoError(t, err)

	resp, err := e.Execute(ctx, `MATCH (n:Person)
RETURN n.name AS name
ORDER BY name
LIMIT 2`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Alice", resp.Data[0]["name"])
	assert.Equal(t, "Bob", resp.Data[1]["name"])
}

// TestEngine_UnwindExpandsList covers UNWIND expanding a literal list
// into one row per element.
func TestEngine_UnwindExpandsList(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	resp, err := e.Execute(ctx, `UNWIND [1, 2, 3] AS x RETURN x`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 3)
	assert.EqualValues(t, 1, resp.Data[0]["x"])
	assert.EqualValues(t, 3, resp.Data[2]["x"])
}

// TestEngine_AggregationGroupsByNonAggregateProjection covers the
// collect/count grouping semantics.
func TestEngine_AggregationGroupsByNonAggregateProjection(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, `CREATE (:Person {team: "red", name: "A"})`, nil)
	require.NoError(t, err)
	_, err = e.Execute(ctx, `CREATE (:Person {team: "red", name: "B"})`, nil)
	require.NoError(t, err)
	_, err = e.Execute(ctx, `CREATE (:Person {team: "blue", name: "C"})`, nil)
	require.NoError(t, err)

	resp, err := e.Execute(ctx, `MATCH (n:Person)
RETURN n.team AS team, count(n) AS members
ORDER BY team`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "blue", resp.Data[0]["team"])
	assert.EqualValues(t, 1, resp.Data[0]["members"])
	assert.Equal(t, "red", resp.Data[1]["team"])
	assert.EqualValues(t, 2, resp.Data[1]["members"])
}

// TestEngine_ParseErrorReportsPosition covers the ParseError branch of
// QueryResponse rather than a returned Go error.
func TestEngine_ParseErrorReportsPosition(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	resp, err := e.Execute(ctx, `MATCH (n RETURN n`, nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.NotEmpty(t, resp.Error.Message)
}

// TestEngine_CallApocTextJoin covers CALL dispatch into the apoc
// procedure table.
func TestEngine_CallApocTextJoin(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	resp, err := e.Execute(ctx, `UNWIND [["a","b","c"]] AS words
CALL apoc.text.join(words, "-") YIELD value
RETURN value`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "a-b-c", resp.Data[0]["value"])
}

// TestEngine_CallApocMathAndConvert covers CALL dispatch reaching
// beyond the single representative apoc.text entry point into the
// math and convert procedure tables.
func TestEngine_CallApocMathAndConvert(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	resp, err := e.Execute(ctx, `UNWIND [[3.0, 1.0, 2.0]] AS xs
CALL apoc.math.mean(xs) YIELD value
RETURN value`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)
	assert.EqualValues(t, 2.0, resp.Data[0]["value"])

	resp, err = e.Execute(ctx, `CALL apoc.convert.toboolean("yes") YIELD value RETURN value`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, true, resp.Data[0]["value"])
}

// TestEngine_DbLabelsIntrospection covers the db.* schema-introspection
// CALL dispatch.
func TestEngine_DbLabelsIntrospection(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, `CREATE (:Person {name: "A"})`, nil)
	require.NoError(t, err)
	_, err = e.Execute(ctx, `CREATE (:City {name: "Oslo"})`, nil)
	require.NoError(t, err)

	resp, err := e.Execute(ctx, `CALL db.labels() YIELD value RETURN value ORDER BY value`, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "City", resp.Data[0]["value"])
	assert.Equal(t, "Person", resp.Data[1]["value"])
}
