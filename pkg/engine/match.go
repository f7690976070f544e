package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/orneryd/nfgraph/pkg/ast"
	"github.com/orneryd/nfgraph/pkg/storage"
	"github.com/orneryd/nfgraph/pkg/translator"
)

// runMatch executes a MATCH/OPTIONAL MATCH clause against pc, per §4.3.
//
// This implementation always executes per incoming row rather than
// distinguishing "all-new variables, batch once" from "some bound,
// constrain per row": every already-bound pattern variable is pinned to
// its row's id before the translator's statement runs, which is
// correct in both cases (a context holding only the unit row degenerates
// to exactly the batched case) at the cost of issuing one extra
// statement per incoming row when nothing is bound yet. The spec's
// batching is a performance optimization, not a semantic requirement of
// §4.3, and this repo has no plan cache sophisticated enough to make the
// batched path pay for its complexity yet.
func runMatch(ctx context.Context, store storage.Store, tr translator.Translator, ev *Evaluator, pc *PhaseContext, m *ast.MatchClause) (*PhaseContext, error) {
	out := &PhaseContext{NodeIDs: map[string]string{}, EdgeIDs: map[string]string{}, Values: map[string]interface{}{}}
	for k, v := range pc.NodeIDs {
		out.NodeIDs[k] = v
	}
	for k, v := range pc.EdgeIDs {
		out.EdgeIDs[k] = v
	}
	for k, v := range pc.Values {
		out.Values[k] = v
	}

	stmt, vars, err := tr.TranslateMatch(m.Patterns, m.Where, nil)
	if err != nil {
		return nil, err
	}

	for _, row := range pc.Rows {
		sql, params := bindConstraints(stmt, vars, row)
		res, err := store.Execute(ctx, sql, params)
		if err != nil {
			return nil, storageErr(err)
		}
		matched := 0
		for _, raw := range res.Rows {
			newRow := row.Clone()
			for name, kind := range vars {
				bindVarFromSQLRow(newRow, name, kind, raw)
			}
			if m.Where != nil {
				ok, err := ev.EvalCondition(m.Where, newRow)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
			matched++
			out.Rows = append(out.Rows, newRow)
			for name := range vars {
				if id, ok := entityID(newRow[name]); ok {
					out.bindFrom(name, newRow[name], id)
				}
			}
		}
		if matched == 0 && m.Optional {
			newRow := row.Clone()
			for name := range vars {
				newRow[name] = nil
			}
			out.Rows = append(out.Rows, newRow)
		}
	}
	return out, nil
}

func (pc *PhaseContext) bindFrom(name string, val interface{}, id string) {
	row, ok := val.(Row)
	if !ok {
		return
	}
	if _, isEdge := row[fieldStart]; isEdge {
		pc.EdgeIDs[name] = id
	} else {
		pc.NodeIDs[name] = id
	}
}

// bindConstraints appends `AND alias.id = ?` for every pattern variable
// already bound in row, so a MATCH that shares variables with the
// incoming context constrains against those bindings instead of
// re-deriving them (§4.3 "some pattern variables are bound").
func bindConstraints(stmt *translator.Statement, vars map[string]string, row Row) (string, []interface{}) {
	sql := stmt.SQL
	params := append([]interface{}{}, stmt.Params...)
	hasWhere := strings.Contains(strings.ToUpper(sql), " WHERE ")
	for name := range vars {
		val, bound := row[name]
		if !bound || val == nil {
			continue
		}
		id, ok := entityID(val)
		if !ok {
			continue
		}
		clause := name + ".id = ?"
		if hasWhere {
			sql += " AND " + clause
		} else {
			sql += " WHERE " + clause
			hasWhere = true
		}
		params = append(params, id)
	}
	return sql, params
}

// bindVarFromSQLRow reads the columns TranslateMatch's SELECT projects
// for one variable (name_id/name_label/name_properties for a node,
// name_id/name_type/name_source/name_target/name_properties for an
// edge) and binds the canonical Row node/edge-object into newRow.
func bindVarFromSQLRow(newRow Row, name, kind string, raw storage.Row) {
	id, _ := raw[name+"_id"].(string)
	props := decodeProps(raw[name+"_properties"])
	if kind == "edge" {
		edgeType, _ := raw[name+"_type"].(string)
		start, _ := raw[name+"_source"].(string)
		end, _ := raw[name+"_target"].(string)
		newRow[name] = EdgeObject(id, edgeType, start, end, props)
		return
	}
	labels := decodeLabels(raw[name+"_label"])
	newRow[name] = NodeObject(id, labels, props)
}

func decodeProps(v interface{}) map[string]interface{} {
	s, ok := v.(string)
	if !ok {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if json.Unmarshal([]byte(s), &out) != nil {
		return map[string]interface{}{}
	}
	return out
}

func decodeLabels(v interface{}) []string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	var out []string
	if json.Unmarshal([]byte(s), &out) != nil {
		return nil
	}
	return out
}
