package engine

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/orneryd/nfgraph/pkg/ast"
	"github.com/orneryd/nfgraph/pkg/storage"
)

// runCreate executes a CREATE clause once per incoming row (§4.4). Each
// created node or edge is its own INSERT; neither this code nor the
// storage collaborator batches insertions. The row-by-row path below is
// always correct, including when a
// relationship endpoint references a variable created earlier in the
// same UNWIND iteration, because each row's bindings are resolved before
// the next row starts.
func runCreate(ctx context.Context, store storage.Store, ev *Evaluator, pc *PhaseContext, c *ast.CreateClause) (*PhaseContext, error) {
	out := clonePC(pc)
	for i, row := range pc.Rows {
		newRow := row.Clone()
		for _, p := range c.Patterns {
			if err := createPattern(ctx, store, ev, newRow, p); err != nil {
				return nil, err
			}
		}
		out.Rows[i] = newRow
		for k, v := range newRow {
			out.bindFrom(k, v, idOf(v))
		}
	}
	return out, nil
}

func idOf(v interface{}) string {
	id, _ := entityID(v)
	return id
}

func clonePC(pc *PhaseContext) *PhaseContext {
	out := &PhaseContext{
		Rows:    make([]Row, len(pc.Rows)),
		NodeIDs: map[string]string{},
		EdgeIDs: map[string]string{},
		Values:  map[string]interface{}{},
	}
	copy(out.Rows, pc.Rows)
	for k, v := range pc.NodeIDs {
		out.NodeIDs[k] = v
	}
	for k, v := range pc.EdgeIDs {
		out.EdgeIDs[k] = v
	}
	for k, v := range pc.Values {
		out.Values[k] = v
	}
	return out
}

func createPattern(ctx context.Context, store storage.Store, ev *Evaluator, row Row, p ast.Pattern) error {
	switch pat := p.(type) {
	case *ast.NodePattern:
		_, err := createNode(ctx, store, ev, row, pat)
		return err
	case *ast.RelationshipPattern:
		return createRelationship(ctx, store, ev, row, pat)
	case *ast.PathPattern:
		for _, link := range pat.Chain {
			if err := createPattern(ctx, store, ev, row, link); err != nil {
				return err
			}
		}
		return nil
	default:
		return &EvaluationError{Message: "unsupported pattern in CREATE"}
	}
}

// createNode resolves a node pattern to an existing row binding if its
// variable is already bound (so relationship endpoints that reuse a
// MATCHed node don't get re-created), otherwise inserts a fresh node.
func createNode(ctx context.Context, store storage.Store, ev *Evaluator, row Row, n *ast.NodePattern) (Row, error) {
	if n.Variable != "" {
		if existing, ok := row[n.Variable]; ok && existing != nil {
			if obj, ok := existing.(Row); ok {
				return obj, nil
			}
		}
	}
	props, err := evalPropMap(ev, row, n.Properties)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	labelJSON, _ := json.Marshal(n.Labels)
	propJSON, _ := json.Marshal(props)
	_, err = store.Execute(ctx, `INSERT INTO nodes (id, label, properties) VALUES (?, ?, ?)`,
		[]interface{}{id, string(labelJSON), string(propJSON)})
	if err != nil {
		return nil, storageErr(err)
	}
	obj := NodeObject(id, n.Labels, props)
	if n.Variable != "" {
		row[n.Variable] = obj
	}
	return obj, nil
}

func createRelationship(ctx context.Context, store storage.Store, ev *Evaluator, row Row, r *ast.RelationshipPattern) error {
	source, err := createNode(ctx, store, ev, row, r.Source)
	if err != nil {
		return err
	}
	target, err := createNode(ctx, store, ev, row, r.Target)
	if err != nil {
		return err
	}
	from, to := idOf(source), idOf(target)
	if r.Edge.Direction == ast.DirLeft {
		from, to = to, from
	}
	props, err := evalPropMap(ev, row, r.Edge.Properties)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	propJSON, _ := json.Marshal(props)
	_, err = store.Execute(ctx, `INSERT INTO edges (id, type, source_id, target_id, properties) VALUES (?, ?, ?, ?, ?)`,
		[]interface{}{id, r.Edge.Type, from, to, string(propJSON)})
	if err != nil {
		return storageErr(err)
	}
	if r.Edge.Variable != "" {
		row[r.Edge.Variable] = EdgeObject(id, r.Edge.Type, from, to, props)
	}
	return nil
}

func evalPropMap(ev *Evaluator, row Row, exprs map[string]ast.Expression) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(exprs))
	for k, expr := range exprs {
		v, err := ev.Eval(expr, row)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
