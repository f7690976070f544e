package engine

import (
	"github.com/orneryd/nfgraph/pkg/ast"
)

// runUnwind expands the list expression per incoming row; a non-list
// value becomes a single one-row expansion (§4.3).
func runUnwind(ev *Evaluator, pc *PhaseContext, u *ast.UnwindClause) (*PhaseContext, error) {
	out := clonePC(pc)
	out.Rows = nil
	for _, row := range pc.Rows {
		val, err := ev.Eval(u.Expression, row)
		if err != nil {
			return nil, err
		}
		list, ok := val.([]interface{})
		if !ok {
			list = []interface{}{val}
		}
		for _, item := range list {
			newRow := row.Clone()
			newRow[u.Alias] = item
			out.Rows = append(out.Rows, newRow)
		}
	}
	return out, nil
}
