package engine

import (
	"context"
	"encoding/json"

	"github.com/orneryd/nfgraph/pkg/ast"
	"github.com/orneryd/nfgraph/pkg/storage"
)

// runSet executes a standalone SET clause per incoming row (§4.3 "SET
// and DELETE operate on ids extracted from the current row's bindings").
func runSet(ctx context.Context, store storage.Store, ev *Evaluator, pc *PhaseContext, s *ast.SetClause) (*PhaseContext, error) {
	out := clonePC(pc)
	for i, row := range pc.Rows {
		newRow := row.Clone()
		byVar := groupAssignmentsByVar(s.Assignments)
		for varName, assigns := range byVar {
			val, ok := newRow[varName]
			if !ok || val == nil {
				return nil, &SyntaxError{Message: "SET references undefined variable " + varName}
			}
			obj, ok := val.(Row)
			if !ok {
				return nil, &SyntaxError{Message: "SET target " + varName + " is not a node or relationship"}
			}
			_, isEdge := obj[fieldStart]
			updated, err := applySetAssignments(ctx, store, ev, newRow, varName, obj, assigns, isEdge)
			if err != nil {
				return nil, err
			}
			newRow[varName] = updated
		}
		out.Rows[i] = newRow
	}
	return out, nil
}

func groupAssignmentsByVar(assignments []ast.SetAssignment) map[string][]ast.SetAssignment {
	out := map[string][]ast.SetAssignment{}
	for _, a := range assignments {
		out[a.Variable] = append(out[a.Variable], a)
	}
	return out
}

// applySetAssignments merges the effect of a group of SetAssignment
// values targeting the same entity into its property map / label list,
// persists the result to storage, and returns the updated node/edge
// object. Property deletion (right-hand side evaluates to null),
// property replacement (`=`), property merge (`+=`), and label union
// are all supported per §4.5/§4.6.
func applySetAssignments(ctx context.Context, store storage.Store, ev *Evaluator, row Row, varName string, obj Row, assigns []ast.SetAssignment, isEdge bool) (Row, error) {
	updated, extraLabels, err := applyAssignmentsInMemory(ev, row, varName, obj, assigns)
	if err != nil {
		return nil, err
	}
	id := idOf(obj)
	props := stripReserved(updated)
	propJSON, _ := json.Marshal(props)

	if isEdge {
		_, err := store.Execute(ctx, `UPDATE edges SET properties = ? WHERE id = ?`, []interface{}{string(propJSON), id})
		if err != nil {
			return nil, storageErr(err)
		}
		return EdgeObject(id, stringField(obj, fieldType), stringField(obj, fieldStart), stringField(obj, fieldEnd), props), nil
	}

	labels := unionLabels(existingLabels(obj), extraLabels)
	labelJSON, _ := json.Marshal(labels)
	_, err = store.Execute(ctx, `UPDATE nodes SET properties = ?, label = ? WHERE id = ?`, []interface{}{string(propJSON), string(labelJSON), id})
	if err != nil {
		return nil, storageErr(err)
	}
	return NodeObject(id, labels, props), nil
}

// applyAssignmentsInMemory computes the post-assignment property map and
// any newly-declared labels without touching storage, used both as the
// first step of applySetAssignments and directly by MERGE's ON CREATE
// SET (where the entity doesn't exist in storage yet).
func applyAssignmentsInMemory(ev *Evaluator, row Row, varName string, obj Row, assigns []ast.SetAssignment) (Row, []string, error) {
	working := obj.Clone()
	var extraLabels []string
	scratch := row.Clone()
	scratch[varName] = working

	for _, a := range assigns {
		if len(a.Labels) > 0 {
			extraLabels = append(extraLabels, a.Labels...)
			continue
		}
		if a.ReplaceProps {
			val, err := ev.Eval(a.Value, scratch)
			if err != nil {
				return nil, nil, err
			}
			m, _ := val.(map[string]interface{})
			id := idOf(working)
			working = NodeObject(id, nil, m)
			if _, isEdge := obj[fieldStart]; isEdge {
				working = EdgeObject(id, stringField(obj, fieldType), stringField(obj, fieldStart), stringField(obj, fieldEnd), m)
			}
			scratch[varName] = working
			continue
		}
		if a.MergeProps {
			val, err := ev.Eval(a.Value, scratch)
			if err != nil {
				return nil, nil, err
			}
			if m, ok := val.(map[string]interface{}); ok {
				for k, v := range m {
					working[k] = v
				}
			}
			scratch[varName] = working
			continue
		}
		if a.Property != "" {
			val, err := ev.Eval(a.Value, scratch)
			if err != nil {
				return nil, nil, err
			}
			if val == nil {
				delete(working, a.Property)
			} else {
				working[a.Property] = val
			}
			scratch[varName] = working
		}
	}
	return working, extraLabels, nil
}

func stringField(obj Row, key string) string {
	s, _ := obj[key].(string)
	return s
}

func existingLabels(obj Row) []string {
	switch l := obj["_nf_labels"].(type) {
	case []string:
		return l
	case []interface{}:
		out := make([]string, 0, len(l))
		for _, v := range l {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func unionLabels(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range append(append([]string{}, a...), b...) {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
