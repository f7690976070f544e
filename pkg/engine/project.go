package engine

import (
	"github.com/orneryd/nfgraph/pkg/ast"
)

// projectionSpec is the shape WITH and RETURN share (§4.3): a
// projection item list, an optional WHERE (pre-filter or HAVING
// depending on whether any item is an aggregate), DISTINCT, and
// ORDER BY/SKIP/LIMIT applied in that order.
type projectionSpec struct {
	Items    []ast.ProjectionItem
	Where    ast.WhereCondition
	Distinct bool
	OrderBy  []ast.OrderByItem
	Skip     ast.Expression
	Limit    ast.Expression
	Star     bool
}

// runProjection implements the WITH/RETURN clause operator (§4.3, §4.7).
func runProjection(ev *Evaluator, pc *PhaseContext, spec projectionSpec) (*PhaseContext, error) {
	hasAggregate := false
	for _, item := range spec.Items {
		if fc, ok := item.Expr.(*ast.FunctionCall); ok && isAggregateFunction(fc.Name) {
			hasAggregate = true
			break
		}
	}

	var rows []Row
	var err error
	if hasAggregate {
		rows, err = projectAggregated(ev, pc.Rows, spec)
	} else {
		rows, err = projectPlain(ev, pc.Rows, spec)
	}
	if err != nil {
		return nil, err
	}

	if spec.Distinct {
		rows = distinctRows(rows)
	}

	rows, err = applyOrderSkipLimit(ev, rows, spec.OrderBy, spec.Skip, spec.Limit)
	if err != nil {
		return nil, err
	}

	out := &PhaseContext{Rows: rows, NodeIDs: map[string]string{}, EdgeIDs: map[string]string{}, Values: map[string]interface{}{}}
	for _, r := range rows {
		for k, v := range r {
			out.bindFrom(k, v, idOf(v))
		}
	}
	return out, nil
}

func projectPlain(ev *Evaluator, rows []Row, spec projectionSpec) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		if spec.Where != nil {
			ok, err := ev.EvalCondition(spec.Where, row)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		newRow := Row{}
		if spec.Star {
			newRow = row.Clone()
		}
		for _, item := range spec.Items {
			val, err := ev.Eval(item.Expr, row)
			if err != nil {
				return nil, err
			}
			newRow[item.Alias] = val
		}
		out = append(out, newRow)
	}
	return out, nil
}

// projectAggregated groups rows by the tuple of non-aggregate
// projections and reduces aggregate items per group (§4.3).
func projectAggregated(ev *Evaluator, rows []Row, spec projectionSpec) ([]Row, error) {
	type group struct {
		keyRow  Row   // non-aggregate projected values, keyed by alias
		members []Row // original rows belonging to this group
	}
	order := []string{}
	groups := map[string]*group{}

	for _, row := range rows {
		keyParts := Row{}
		keyStr := ""
		for _, item := range spec.Items {
			if fc, ok := item.Expr.(*ast.FunctionCall); ok && isAggregateFunction(fc.Name) {
				continue
			}
			val, err := ev.Eval(item.Expr, row)
			if err != nil {
				return nil, err
			}
			keyParts[item.Alias] = val
			keyStr += distinctKey(val) + "\x1f"
		}
		g, ok := groups[keyStr]
		if !ok {
			g = &group{keyRow: keyParts}
			groups[keyStr] = g
			order = append(order, keyStr)
		}
		g.members = append(g.members, row)
	}

	var out []Row
	for _, k := range order {
		g := groups[k]
		projected := g.keyRow.Clone()
		for _, item := range spec.Items {
			fc, ok := item.Expr.(*ast.FunctionCall)
			if !ok || !isAggregateFunction(fc.Name) {
				continue
			}
			val, err := reduceAggregate(ev, fc, g.members)
			if err != nil {
				return nil, err
			}
			projected[item.Alias] = val
		}
		if spec.Where != nil {
			ok, err := ev.EvalCondition(spec.Where, projected)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, projected)
	}
	return out, nil
}

func reduceAggregate(ev *Evaluator, fc *ast.FunctionCall, members []Row) (interface{}, error) {
	var values []interface{}
	isCountStar := len(fc.Args) == 1
	if v, ok := fc.Args[0].(*ast.Variable); ok && v.Name == "*" {
		isCountStar = isCountStar && true
	} else {
		isCountStar = false
	}

	for _, row := range members {
		if isCountStar {
			values = append(values, true)
			continue
		}
		val, err := ev.Eval(fc.Args[0], row)
		if err != nil {
			return nil, err
		}
		values = append(values, val)
	}

	if fc.Distinct {
		values = dedupeValues(values)
	}

	switch fc.Name {
	case "collect":
		out := make([]interface{}, 0, len(values))
		for _, v := range values {
			if v != nil {
				out = append(out, v)
			}
		}
		return out, nil
	case "count":
		n := int64(0)
		for _, v := range values {
			if isCountStar || v != nil {
				n++
			}
		}
		return n, nil
	case "sum":
		var sum float64
		allInt := true
		for _, v := range values {
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			if _, isInt := v.(int64); !isInt {
				allInt = false
			}
			sum += f
		}
		if allInt {
			return int64(sum), nil
		}
		return sum, nil
	case "avg":
		var sum float64
		count := 0
		for _, v := range values {
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			sum += f
			count++
		}
		if count == 0 {
			return nil, nil
		}
		return sum / float64(count), nil
	case "min":
		return reduceExtreme(values, -1), nil
	case "max":
		return reduceExtreme(values, 1), nil
	default:
		return nil, &EvaluationError{Message: "unsupported aggregate function " + fc.Name}
	}
}

func reduceExtreme(values []interface{}, want int) interface{} {
	var best interface{}
	has := false
	for _, v := range values {
		if v == nil {
			continue
		}
		if !has {
			best, has = v, true
			continue
		}
		if compareValues(v, best) == want {
			best = v
		}
	}
	return best
}

func dedupeValues(values []interface{}) []interface{} {
	seen := map[string]bool{}
	var out []interface{}
	for _, v := range values {
		k := distinctKey(v)
		if !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

func distinctRows(rows []Row) []Row {
	seen := map[string]bool{}
	var out []Row
	for _, row := range rows {
		key := ""
		for _, v := range row {
			key += distinctKey(v) + "\x1f"
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, row)
		}
	}
	return out
}

func applyOrderSkipLimit(ev *Evaluator, rows []Row, orderBy []ast.OrderByItem, skip, limit ast.Expression) ([]Row, error) {
	if len(orderBy) > 0 {
		keys := make([][]interface{}, len(rows))
		desc := make([]bool, len(orderBy))
		for i, ob := range orderBy {
			desc[i] = ob.Descending
		}
		for i, row := range rows {
			keyRow := make([]interface{}, len(orderBy))
			for j, ob := range orderBy {
				v, err := ev.Eval(ob.Expr, row)
				if err != nil {
					return nil, err
				}
				keyRow[j] = v
			}
			keys[i] = keyRow
		}
		sortRows(rows, keys, desc)
	}

	if skip != nil {
		v, err := ev.Eval(skip, Row{})
		if err != nil {
			return nil, err
		}
		n, _ := toFloat(v)
		if int(n) < len(rows) {
			rows = rows[int(n):]
		} else {
			rows = nil
		}
	}
	if limit != nil {
		v, err := ev.Eval(limit, Row{})
		if err != nil {
			return nil, err
		}
		n, _ := toFloat(v)
		if int(n) < len(rows) {
			rows = rows[:int(n)]
		}
	}
	return rows, nil
}
