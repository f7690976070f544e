package engine

import (
	"context"

	"github.com/orneryd/nfgraph/pkg/ast"
	"github.com/orneryd/nfgraph/pkg/storage"
)

// runDelete executes DELETE/DETACH DELETE per incoming row (§4.3, §4.6).
// DETACH removes incident edges first; a plain DELETE of a node that
// still has incident edges is a ConstraintViolation (§7, testable
// property 6).
func runDelete(ctx context.Context, store storage.Store, ev *Evaluator, pc *PhaseContext, d *ast.DeleteClause) (*PhaseContext, error) {
	out := clonePC(pc)
	for i, row := range pc.Rows {
		newRow := row.Clone()
		for _, expr := range d.Expressions {
			val, err := ev.Eval(expr, newRow)
			if err != nil {
				return nil, err
			}
			if err := deleteValue(ctx, store, val, d.Detach); err != nil {
				return nil, err
			}
			if v, ok := expr.(*ast.Variable); ok {
				newRow[v.Name] = deletedEntity{Variable: v.Name}
			}
		}
		out.Rows[i] = newRow
	}
	return out, nil
}

// deletedEntity replaces a DELETEd variable's row binding. Any later
// reference to it (RETURN, WITH, another expression) surfaces as
// EntityNotFound instead of silently reading back null (§4.6 Phase C, §7).
type deletedEntity struct {
	Variable string
}

func deleteValue(ctx context.Context, store storage.Store, val interface{}, detach bool) error {
	obj, ok := val.(Row)
	if !ok {
		return nil
	}
	id := idOf(obj)
	if id == "" {
		return nil
	}
	if _, isEdge := obj[fieldStart]; isEdge {
		_, err := store.Execute(ctx, `DELETE FROM edges WHERE id = ?`, []interface{}{id})
		return storageErr(err)
	}

	res, err := store.Execute(ctx, `SELECT COUNT(*) AS c FROM edges WHERE source_id = ? OR target_id = ?`, []interface{}{id, id})
	if err != nil {
		return storageErr(err)
	}
	count := int64(0)
	if len(res.Rows) == 1 {
		count, _ = toInt64(res.Rows[0]["c"])
	}
	if count > 0 {
		if !detach {
			return &ConstraintViolation{Message: "cannot DELETE a node with incident edges without DETACH"}
		}
		if _, err := store.Execute(ctx, `DELETE FROM edges WHERE source_id = ? OR target_id = ?`, []interface{}{id, id}); err != nil {
			return storageErr(err)
		}
	}
	_, err = store.Execute(ctx, `DELETE FROM nodes WHERE id = ?`, []interface{}{id})
	return storageErr(err)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
