package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/nfgraph/pkg/ast"
	"github.com/orneryd/nfgraph/pkg/storage"
)

// runMerge implements find-or-create-per-incoming-row MERGE (§4.5).
func runMerge(ctx context.Context, store storage.Store, ev *Evaluator, pc *PhaseContext, m *ast.MergeClause) (*PhaseContext, error) {
	if err := rejectExplicitNullProps(m.Pattern); err != nil {
		return nil, err
	}

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

	for _, row := range pc.Rows {
		rows, err := mergeOneRow(ctx, store, ev, row, m)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, rows...)
		for _, r := range rows {
			for k, v := range r {
				out.bindFrom(k, v, idOf(v))
			}
		}
	}
	return out, nil
}

// rejectExplicitNullProps rejects a MERGE whose pattern carries a
// literal null property, `MERGE (n {k: null})`, as a ConstraintViolation
// (§4.5, §9). Parameter and variable properties are left alone here:
// nullPropVariable, called per row by mergeNode and mergeRelationship,
// rejects a parameter that is absent or null and turns a variable that
// evaluates to null into a per-row no-op.
func rejectExplicitNullProps(p ast.Pattern) error {
	check := func(props map[string]ast.Expression) error {
		for k, expr := range props {
			if lit, ok := expr.(*ast.Literal); ok && lit.Value == nil {
				return &ConstraintViolation{Message: fmt.Sprintf("MERGE property %q is explicitly null", k)}
			}
		}
		return nil
	}
	switch pat := p.(type) {
	case *ast.NodePattern:
		return check(pat.Properties)
	case *ast.RelationshipPattern:
		if err := check(pat.Source.Properties); err != nil {
			return err
		}
		if err := check(pat.Target.Properties); err != nil {
			return err
		}
		return check(pat.Edge.Properties)
	case *ast.PathPattern:
		for _, link := range pat.Chain {
			if err := rejectExplicitNullProps(link); err != nil {
				return err
			}
		}
	}
	return nil
}

func mergeOneRow(ctx context.Context, store storage.Store, ev *Evaluator, row Row, m *ast.MergeClause) ([]Row, error) {
	switch pat := m.Pattern.(type) {
	case *ast.NodePattern:
		return mergeNode(ctx, store, ev, row, pat, m.OnCreateSet, m.OnMatchSet)
	case *ast.RelationshipPattern:
		return mergeRelationship(ctx, store, ev, row, pat, m.OnCreateSet, m.OnMatchSet)
	case *ast.PathPattern:
		cur := []Row{row}
		for _, link := range pat.Chain {
			var next []Row
			for _, r := range cur {
				rows, err := mergeOneRow(ctx, store, ev, r, &ast.MergeClause{Pattern: link, OnCreateSet: m.OnCreateSet, OnMatchSet: m.OnMatchSet})
				if err != nil {
					return nil, err
				}
				next = append(next, rows...)
			}
			cur = next
		}
		return cur, nil
	default:
		return nil, &EvaluationError{Message: "unsupported MERGE pattern shape"}
	}
}

// nullPropVariable returns true (and a no-op signal) when any property
// expression is a bare Variable that currently evaluates to null, and a
// ConstraintViolation when a parameter property evaluates to null.
func nullPropVariable(ev *Evaluator, row Row, props map[string]ast.Expression) (bool, error) {
	for _, expr := range props {
		if _, ok := expr.(*ast.Variable); ok {
			v, err := ev.Eval(expr, row)
			if err != nil {
				return false, err
			}
			if v == nil {
				return true, nil
			}
		}
		if p, ok := expr.(*ast.Param); ok {
			v, _ := ev.Eval(p, row)
			if v == nil {
				return false, &ConstraintViolation{Message: "MERGE parameter property is null"}
			}
		}
	}
	return false, nil
}

func mergeNode(ctx context.Context, store storage.Store, ev *Evaluator, row Row, n *ast.NodePattern, onCreate, onMatch []ast.SetAssignment) ([]Row, error) {
	if noop, err := nullPropVariable(ev, row, n.Properties); err != nil {
		return nil, err
	} else if noop {
		return []Row{row}, nil
	}

	props, err := evalPropMap(ev, row, n.Properties)
	if err != nil {
		return nil, err
	}

	sql, params := nodeMatchQuery(n.Labels, props)
	res, err := store.Execute(ctx, sql, params)
	if err != nil {
		return nil, storageErr(err)
	}

	if len(res.Rows) > 0 {
		var out []Row
		for _, raw := range res.Rows {
			id, _ := raw["id"].(string)
			matchedProps := decodeProps(raw["properties"])
			labels := decodeLabels(raw["label"])
			obj := NodeObject(id, labels, matchedProps)
			if len(onMatch) > 0 {
				obj, err = applySetAssignments(ctx, store, ev, row, n.Variable, obj, onMatch, false)
				if err != nil {
					return nil, err
				}
			}
			newRow := row.Clone()
			if n.Variable != "" {
				newRow[n.Variable] = obj
			}
			out = append(out, newRow)
		}
		return out, nil
	}

	// Not found: create, applying ON CREATE SET to the property map
	// (and labels) before insertion.
	newRow := row.Clone()
	labels := append([]string{}, n.Labels...)
	createProps := props
	if len(onCreate) > 0 {
		tmp := NodeObject("", labels, props)
		updated, extraLabels, err := applyAssignmentsInMemory(ev, newRow, n.Variable, tmp, onCreate)
		if err != nil {
			return nil, err
		}
		createProps = stripReserved(updated)
		labels = append(labels, extraLabels...)
	}
	id := uuid.NewString()
	labelJSON, _ := json.Marshal(labels)
	propJSON, _ := json.Marshal(createProps)
	_, err = store.Execute(ctx, `INSERT INTO nodes (id, label, properties) VALUES (?, ?, ?)`,
		[]interface{}{id, string(labelJSON), string(propJSON)})
	if err != nil {
		return nil, storageErr(err)
	}
	obj := NodeObject(id, labels, createProps)
	if n.Variable != "" {
		newRow[n.Variable] = obj
	}
	return []Row{newRow}, nil
}

func mergeRelationship(ctx context.Context, store storage.Store, ev *Evaluator, row Row, r *ast.RelationshipPattern, onCreate, onMatch []ast.SetAssignment) ([]Row, error) {
	source, err := resolveMergeEndpoint(ctx, store, ev, row, r.Source)
	if err != nil {
		return nil, err
	}
	target, err := resolveMergeEndpoint(ctx, store, ev, row, r.Target)
	if err != nil {
		return nil, err
	}
	if noop, err := nullPropVariable(ev, row, r.Edge.Properties); err != nil {
		return nil, err
	} else if noop {
		return []Row{row}, nil
	}

	props, err := evalPropMap(ev, row, r.Edge.Properties)
	if err != nil {
		return nil, err
	}

	from, to := idOf(source), idOf(target)
	if r.Edge.Direction == ast.DirLeft {
		from, to = to, from
	}

	sql, params := edgeMatchQuery(from, to, r.Edge.Type, r.Edge.Direction, props)
	res, err := store.Execute(ctx, sql, params)
	if err != nil {
		return nil, storageErr(err)
	}

	newRow := row.Clone()
	if r.Source.Variable != "" {
		newRow[r.Source.Variable] = source
	}
	if r.Target.Variable != "" {
		newRow[r.Target.Variable] = target
	}

	if len(res.Rows) > 0 {
		var out []Row
		for _, raw := range res.Rows {
			id, _ := raw["id"].(string)
			edgeType, _ := raw["type"].(string)
			src, _ := raw["source_id"].(string)
			dst, _ := raw["target_id"].(string)
			matchedProps := decodeProps(raw["properties"])
			obj := EdgeObject(id, edgeType, src, dst, matchedProps)
			if len(onMatch) > 0 {
				obj, err = applySetAssignments(ctx, store, ev, newRow, r.Edge.Variable, obj, onMatch, true)
				if err != nil {
					return nil, err
				}
			}
			rowCopy := newRow.Clone()
			if r.Edge.Variable != "" {
				rowCopy[r.Edge.Variable] = obj
			}
			out = append(out, rowCopy)
		}
		return out, nil
	}

	createProps := props
	if len(onCreate) > 0 {
		tmp := EdgeObject("", r.Edge.Type, from, to, props)
		updated, _, err := applyAssignmentsInMemory(ev, newRow, r.Edge.Variable, tmp, onCreate)
		if err != nil {
			return nil, err
		}
		createProps = stripReserved(updated)
	}
	id := uuid.NewString()
	propJSON, _ := json.Marshal(createProps)
	_, err = store.Execute(ctx, `INSERT INTO edges (id, type, source_id, target_id, properties) VALUES (?, ?, ?, ?, ?)`,
		[]interface{}{id, r.Edge.Type, from, to, string(propJSON)})
	if err != nil {
		return nil, storageErr(err)
	}
	obj := EdgeObject(id, r.Edge.Type, from, to, createProps)
	if r.Edge.Variable != "" {
		newRow[r.Edge.Variable] = obj
	}
	return []Row{newRow}, nil
}

// resolveMergeEndpoint returns the already-bound row value for a
// variable that a MATCH introduced, or creates a fresh node if the
// endpoint pattern is unbound (§4.5: "it can appear as a MERGE
// relationship endpoint").
func resolveMergeEndpoint(ctx context.Context, store storage.Store, ev *Evaluator, row Row, n *ast.NodePattern) (Row, error) {
	if n.Variable != "" {
		if existing, ok := row[n.Variable]; ok && existing != nil {
			if obj, ok := existing.(Row); ok {
				return obj, nil
			}
		}
	}
	return createNode(ctx, store, ev, row, n)
}

func nodeMatchQuery(labels []string, props map[string]interface{}) (string, []interface{}) {
	sql := "SELECT id, label, properties FROM nodes"
	var wheres []string
	var params []interface{}
	for _, l := range labels {
		wheres = append(wheres, "EXISTS (SELECT 1 FROM json_each(label) WHERE json_each.value = ?)")
		params = append(params, l)
	}
	for k, v := range props {
		wheres = append(wheres, fmt.Sprintf("json_extract(properties, '$.%s') = ?", k))
		params = append(params, v)
	}
	if len(wheres) > 0 {
		sql += " WHERE " + joinAnd(wheres)
	}
	return sql, params
}

func edgeMatchQuery(from, to, edgeType string, dir ast.Direction, props map[string]interface{}) (string, []interface{}) {
	sql := "SELECT id, type, source_id, target_id, properties FROM edges"
	var wheres []string
	var params []interface{}
	if dir == ast.DirNone {
		wheres = append(wheres, "((source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?))")
		params = append(params, from, to, to, from)
	} else {
		wheres = append(wheres, "source_id = ? AND target_id = ?")
		params = append(params, from, to)
	}
	if edgeType != "" {
		wheres = append(wheres, "type = ?")
		params = append(params, edgeType)
	}
	for k, v := range props {
		wheres = append(wheres, fmt.Sprintf("json_extract(properties, '$.%s') = ?", k))
		params = append(params, v)
	}
	sql += " WHERE " + joinAnd(wheres)
	return sql, params
}

func joinAnd(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " AND "
		}
		out += p
	}
	return out
}

func stripReserved(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if k == fieldID || k == fieldStart || k == fieldEnd || k == fieldType || k == "_nf_labels" {
			continue
		}
		out[k] = v
	}
	return out
}
