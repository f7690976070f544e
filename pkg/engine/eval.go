package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/orneryd/nfgraph/pkg/ast"
	"github.com/orneryd/nfgraph/pkg/functions/mathfn"
	"github.com/orneryd/nfgraph/pkg/functions/temporalfn"
	"github.com/orneryd/nfgraph/pkg/functions/textfn"
	"github.com/orneryd/nfgraph/pkg/storage"
)

// Evaluator evaluates a single Expression against a Row plus a parameter
// map (§4.2). It is the one component in this engine that is
// constructed fresh per top-level Execute call, since it owns the
// per-query property cache (§5: "cleared at the start of every query to
// avoid stale reads across MATCH/SET cycles").
type Evaluator struct {
	store  storage.Store
	ctx    context.Context
	params map[string]interface{}
	cache  map[string]map[string]interface{} // node/edge id -> decoded properties
}

// NewEvaluator constructs an Evaluator with a fresh property cache.
func NewEvaluator(ctx context.Context, store storage.Store, params map[string]interface{}) *Evaluator {
	return &Evaluator{
		store:  store,
		ctx:    ctx,
		params: params,
		cache:  map[string]map[string]interface{}{},
	}
}

// Eval evaluates expr against row.
func (e *Evaluator) Eval(expr ast.Expression, row Row) (interface{}, error) {
	switch ex := expr.(type) {
	case *ast.Literal:
		return ex.Value, nil
	case *ast.Param:
		return e.params[ex.Name], nil
	case *ast.Variable:
		if del, ok := row[ex.Name].(deletedEntity); ok {
			return nil, &EntityNotFound{Variable: del.Variable}
		}
		return row[ex.Name], nil
	case *ast.Property:
		if del, ok := row[ex.Variable].(deletedEntity); ok {
			return nil, &EntityNotFound{Variable: del.Variable}
		}
		return e.property(row[ex.Variable], ex.Name)
	case *ast.PropertyAccess:
		target, err := e.Eval(ex.Target, row)
		if err != nil {
			return nil, err
		}
		return e.property(target, ex.Name)
	case *ast.IndexAccess:
		return e.evalIndex(ex, row)
	case *ast.Unary:
		return e.evalUnary(ex, row)
	case *ast.Binary:
		return e.evalBinary(ex, row)
	case *ast.Comparison:
		v, err := e.evalComparison(ex, row)
		return v, err
	case *ast.FunctionCall:
		return e.evalFunction(ex, row)
	case *ast.ObjectLiteral:
		out := make(map[string]interface{}, len(ex.Entries))
		for k, v := range ex.Entries {
			val, err := e.Eval(v, row)
			if err != nil {
				return nil, err
			}
			out[k] = val
		}
		return out, nil
	case *ast.ListLiteral:
		out := make([]interface{}, 0, len(ex.Items))
		for _, it := range ex.Items {
			val, err := e.Eval(it, row)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case *ast.CaseExpr:
		return e.evalCase(ex, row)
	case *ast.ListComprehension:
		return e.evalListComprehension(ex, row)
	case *ast.ListPredicate:
		return e.evalListPredicate(ex, row)
	case *ast.LabelPredicate:
		return e.evalLabelPredicate(ex, row)
	default:
		return nil, &EvaluationError{Message: fmt.Sprintf("unsupported expression node %T", expr)}
	}
}

// EvalCondition evaluates a WhereCondition to a bool, applying the
// engine's two-valued approximation (§4.2, §9).
func (e *Evaluator) EvalCondition(c ast.WhereCondition, row Row) (bool, error) {
	switch cond := c.(type) {
	case nil:
		return true, nil
	case *ast.CondAnd:
		l, err := e.EvalCondition(cond.Left, row)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		r, err := e.EvalCondition(cond.Right, row)
		return l && r, err
	case *ast.CondOr:
		l, err := e.EvalCondition(cond.Left, row)
		if err != nil {
			return false, err
		}
		r, err := e.EvalCondition(cond.Right, row)
		if err != nil {
			return false, err
		}
		return l || r, nil
	case *ast.CondNot:
		inner, err := e.EvalCondition(cond.Inner, row)
		return !inner, err
	case *ast.CondComparison:
		v, err := e.evalComparison(cond.Comparison, row)
		if err != nil {
			return false, err
		}
		return truthy(v), nil
	case *ast.CondExpression:
		v, err := e.Eval(cond.Expr, row)
		if err != nil {
			return false, err
		}
		return truthy(v), nil
	case *ast.CondListPredicate:
		v, err := e.evalListPredicate(cond.Predicate, row)
		if err != nil {
			return false, err
		}
		return truthy(v), nil
	default:
		return false, &EvaluationError{Message: fmt.Sprintf("unsupported where condition %T", c)}
	}
}

// property implements property(var, p) (§4.2): in-row map, then
// JSON-parsed string, then storage lookup by raw id, falling back to
// null for unresolved paths rather than an error.
func (e *Evaluator) property(base interface{}, name string) (interface{}, error) {
	switch v := base.(type) {
	case nil:
		return nil, nil
	case deletedEntity:
		return nil, &EntityNotFound{Variable: v.Variable}
	case Row:
		val, ok := v[name]
		if !ok {
			return nil, nil
		}
		return val, nil
	case map[string]interface{}:
		val, ok := v[name]
		if !ok {
			return nil, nil
		}
		return val, nil
	case string:
		var decoded map[string]interface{}
		if json.Unmarshal([]byte(v), &decoded) == nil {
			if val, ok := decoded[name]; ok {
				return val, nil
			}
			return nil, nil
		}
		return e.propertyByID(v, name)
	default:
		return nil, nil
	}
}

func (e *Evaluator) propertyByID(id, name string) (interface{}, error) {
	props, ok := e.cache[id]
	if !ok {
		res, err := e.store.Execute(e.ctx, `SELECT json_extract(properties, '$.'||?) AS v FROM nodes WHERE id = ?`, []interface{}{name, id})
		if err != nil {
			return nil, storageErr(err)
		}
		if len(res.Rows) == 1 {
			return res.Rows[0]["v"], nil
		}
		res, err = e.store.Execute(e.ctx, `SELECT json_extract(properties, '$.'||?) AS v FROM edges WHERE id = ?`, []interface{}{name, id})
		if err != nil {
			return nil, storageErr(err)
		}
		if len(res.Rows) == 1 {
			return res.Rows[0]["v"], nil
		}
		return nil, nil
	}
	return props[name], nil
}

func (e *Evaluator) evalIndex(ex *ast.IndexAccess, row Row) (interface{}, error) {
	target, err := e.Eval(ex.Target, row)
	if err != nil {
		return nil, err
	}
	list, ok := target.([]interface{})
	if !ok {
		return nil, nil
	}
	if ex.Slice {
		from, to := 0, len(list)
		if ex.From != nil {
			v, err := e.Eval(ex.From, row)
			if err != nil {
				return nil, err
			}
			from = normalizeIndex(v, len(list))
		}
		if ex.To != nil {
			v, err := e.Eval(ex.To, row)
			if err != nil {
				return nil, err
			}
			to = normalizeIndex(v, len(list))
		}
		if from < 0 {
			from = 0
		}
		if to > len(list) {
			to = len(list)
		}
		if from >= to {
			return []interface{}{}, nil
		}
		return append([]interface{}{}, list[from:to]...), nil
	}
	v, err := e.Eval(ex.Index, row)
	if err != nil {
		return nil, err
	}
	idx := normalizeIndex(v, len(list))
	if idx < 0 || idx >= len(list) {
		return nil, nil
	}
	return list[idx], nil
}

// normalizeIndex supports negative indices counted from the end, used
// by list indexing.
func normalizeIndex(v interface{}, length int) int {
	f, _ := toFloat(v)
	i := int(f)
	if i < 0 {
		i += length
	}
	return i
}

func (e *Evaluator) evalUnary(ex *ast.Unary, row Row) (interface{}, error) {
	v, err := e.Eval(ex.Operand, row)
	if err != nil {
		return nil, err
	}
	switch ex.Op {
	case ast.UnaryNot:
		return !truthy(v), nil
	case ast.UnaryNeg:
		f, ok := toFloat(v)
		if !ok {
			return nil, &EvaluationError{Message: "unary - on non-numeric value"}
		}
		if _, isInt := v.(int64); isInt {
			return -int64(f), nil
		}
		return -f, nil
	default:
		return nil, &EvaluationError{Message: "unsupported unary operator"}
	}
}

func (e *Evaluator) evalBinary(ex *ast.Binary, row Row) (interface{}, error) {
	switch ex.Op {
	case ast.OpAnd:
		l, err := e.Eval(ex.Left, row)
		if err != nil {
			return nil, err
		}
		if !truthy(l) {
			return false, nil
		}
		r, err := e.Eval(ex.Right, row)
		return truthy(r), err
	case ast.OpOr:
		l, err := e.Eval(ex.Left, row)
		if err != nil {
			return nil, err
		}
		if truthy(l) {
			return true, nil
		}
		r, err := e.Eval(ex.Right, row)
		return truthy(r), err
	case ast.OpXor:
		l, err := e.Eval(ex.Left, row)
		if err != nil {
			return nil, err
		}
		r, err := e.Eval(ex.Right, row)
		if err != nil {
			return nil, err
		}
		return truthy(l) != truthy(r), nil
	}

	left, err := e.Eval(ex.Left, row)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(ex.Right, row)
	if err != nil {
		return nil, err
	}

	if ex.Op == ast.OpAdd || ex.Op == ast.OpConcat {
		// List concatenation when either operand is a list; scalars
		// promote to a one-element list (§4.2).
		ll, lIsList := asList(left)
		rl, rIsList := asList(right)
		if lIsList || rIsList {
			if !lIsList {
				ll = []interface{}{left}
			}
			if !rIsList {
				rl = []interface{}{right}
			}
			out := make([]interface{}, 0, len(ll)+len(rl))
			out = append(out, ll...)
			out = append(out, rl...)
			return out, nil
		}
		if ls, ok := left.(string); ok {
			return ls + fmt.Sprint(right), nil
		}
		if rs, ok := right.(string); ok {
			return fmt.Sprint(left) + rs, nil
		}
	}

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, &EvaluationError{Message: fmt.Sprintf("arithmetic operator on non-numeric operands (%T, %T)", left, right)}
	}
	_, leftInt := left.(int64)
	_, rightInt := right.(int64)
	bothInt := leftInt && rightInt

	switch ex.Op {
	case ast.OpAdd:
		if bothInt {
			return int64(lf) + int64(rf), nil
		}
		return lf + rf, nil
	case ast.OpSub:
		if bothInt {
			return int64(lf) - int64(rf), nil
		}
		return lf - rf, nil
	case ast.OpMul:
		if bothInt {
			return int64(lf) * int64(rf), nil
		}
		return lf * rf, nil
	case ast.OpDiv:
		if rf == 0 {
			return nil, &EvaluationError{Message: "division by zero"}
		}
		if bothInt {
			return int64(lf) / int64(rf), nil
		}
		return lf / rf, nil
	case ast.OpMod:
		if rf == 0 {
			return nil, &EvaluationError{Message: "modulo by zero"}
		}
		return math.Mod(lf, rf), nil
	case ast.OpPow:
		return math.Pow(lf, rf), nil
	default:
		return nil, &EvaluationError{Message: "unsupported binary operator"}
	}
}

func (e *Evaluator) evalComparison(c *ast.Comparison, row Row) (interface{}, error) {
	left, err := e.Eval(c.Left, row)
	if err != nil {
		return nil, err
	}
	if c.Op == ast.CmpIsNull {
		return left == nil, nil
	}
	if c.Op == ast.CmpIsNotNull {
		return left != nil, nil
	}
	right, err := e.Eval(c.Right, row)
	if err != nil {
		return nil, err
	}
	// Comparison with null returns false unconditionally, matching the
	// documented two-valued approximation (§4.2) even for `<>`.
	if left == nil || right == nil {
		return false, nil
	}
	switch c.Op {
	case ast.CmpEq:
		return valuesEqual(left, right), nil
	case ast.CmpNeq:
		return !valuesEqual(left, right), nil
	case ast.CmpLt:
		return compareValues(left, right) < 0, nil
	case ast.CmpLte:
		return compareValues(left, right) <= 0, nil
	case ast.CmpGt:
		return compareValues(left, right) > 0, nil
	case ast.CmpGte:
		return compareValues(left, right) >= 0, nil
	case ast.CmpIn:
		list, ok := right.([]interface{})
		if !ok {
			return false, nil
		}
		for _, item := range list {
			if valuesEqual(left, item) {
				return true, nil
			}
		}
		return false, nil
	case ast.CmpStartsWith:
		ls, lok := left.(string)
		rs, rok := right.(string)
		return lok && rok && strings.HasPrefix(ls, rs), nil
	case ast.CmpEndsWith:
		ls, lok := left.(string)
		rs, rok := right.(string)
		return lok && rok && strings.HasSuffix(ls, rs), nil
	case ast.CmpContains:
		ls, lok := left.(string)
		rs, rok := right.(string)
		return lok && rok && strings.Contains(ls, rs), nil
	case ast.CmpRegex:
		ls, lok := left.(string)
		rs, rok := right.(string)
		if !lok || !rok {
			return false, nil
		}
		return matchRegex(rs, ls)
	default:
		return nil, &EvaluationError{Message: "unsupported comparison operator"}
	}
}

func (e *Evaluator) evalCase(ex *ast.CaseExpr, row Row) (interface{}, error) {
	for _, w := range ex.Whens {
		ok, err := e.EvalCondition(w.Condition, row)
		if err != nil {
			return nil, err
		}
		if ok {
			return e.Eval(w.Result, row)
		}
	}
	if ex.Else != nil {
		return e.Eval(ex.Else, row)
	}
	return nil, nil
}

func (e *Evaluator) evalListComprehension(ex *ast.ListComprehension, row Row) (interface{}, error) {
	listVal, err := e.Eval(ex.List, row)
	if err != nil {
		return nil, err
	}
	list, _ := listVal.([]interface{})
	out := make([]interface{}, 0, len(list))
	for _, item := range list {
		cloned := row.Clone()
		cloned[ex.Variable] = item
		if ex.Where != nil {
			ok, err := e.EvalCondition(ex.Where, cloned)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		if ex.Projection == nil {
			out = append(out, item)
			continue
		}
		val, err := e.Eval(ex.Projection, cloned)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

func (e *Evaluator) evalListPredicate(ex *ast.ListPredicate, row Row) (interface{}, error) {
	listVal, err := e.Eval(ex.List, row)
	if err != nil {
		return nil, err
	}
	list, _ := listVal.([]interface{})
	matches := 0
	for _, item := range list {
		cloned := row.Clone()
		cloned[ex.Variable] = item
		ok, err := e.EvalCondition(ex.Where, cloned)
		if err != nil {
			return nil, err
		}
		if ok {
			matches++
		}
	}
	switch ex.Kind {
	case ast.PredAll:
		return matches == len(list), nil
	case ast.PredAny:
		return matches > 0, nil
	case ast.PredNone:
		return matches == 0, nil
	case ast.PredSingle:
		return matches == 1, nil
	default:
		return nil, &EvaluationError{Message: "unsupported list predicate kind"}
	}
}

func (e *Evaluator) evalLabelPredicate(ex *ast.LabelPredicate, row Row) (interface{}, error) {
	val := row[ex.Variable]
	node, ok := val.(Row)
	if !ok {
		if mm, ok2 := val.(map[string]interface{}); ok2 {
			node = Row(mm)
		} else {
			return false, nil
		}
	}
	have := map[string]bool{}
	switch labels := node["_nf_labels"].(type) {
	case []string:
		for _, l := range labels {
			have[l] = true
		}
	case []interface{}:
		for _, l := range labels {
			if s, ok := l.(string); ok {
				have[s] = true
			}
		}
	}
	for _, want := range ex.Labels {
		if !have[want] {
			return false, nil
		}
	}
	return true, nil
}

// evalFunction dispatches a FunctionCall to the math/temporal/text
// tables or to one of the graph functions handled inline because they
// need row/storage access the standalone function packages don't have
// (§4.2a).
func (e *Evaluator) evalFunction(fc *ast.FunctionCall, row Row) (interface{}, error) {
	args := make([]interface{}, len(fc.Args))
	for i, a := range fc.Args {
		v, err := e.Eval(a, row)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if isAggregateFunction(fc.Name) {
		return nil, &EvaluationError{Message: fmt.Sprintf("%s() requires a row set; it cannot be evaluated against a single row", fc.Name)}
	}

	switch fc.Name {
	case "id":
		id, _ := entityID(first(args))
		return id, nil
	case "type":
		if row, ok := first(args).(Row); ok {
			return row[fieldType], nil
		}
		return nil, nil
	case "startnode":
		if row, ok := first(args).(Row); ok {
			return row[fieldStart], nil
		}
		return nil, nil
	case "endnode":
		if row, ok := first(args).(Row); ok {
			return row[fieldEnd], nil
		}
		return nil, nil
	case "labels":
		if row, ok := first(args).(Row); ok {
			return row["_nf_labels"], nil
		}
		return []interface{}{}, nil
	case "properties":
		if row, ok := first(args).(Row); ok {
			out := map[string]interface{}{}
			for k, v := range row {
				if !strings.HasPrefix(k, "_nf_") {
					out[k] = v
				}
			}
			return out, nil
		}
		return map[string]interface{}{}, nil
	case "keys":
		if row, ok := first(args).(Row); ok {
			keys := make([]string, 0, len(row))
			for k := range row {
				if !strings.HasPrefix(k, "_nf_") {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			out := make([]interface{}, len(keys))
			for i, k := range keys {
				out[i] = k
			}
			return out, nil
		}
		return []interface{}{}, nil
	case "size":
		if l, ok := first(args).([]interface{}); ok {
			return int64(len(l)), nil
		}
		if s, ok := first(args).(string); ok {
			return int64(len([]rune(s))), nil
		}
		return int64(0), nil
	case "range":
		return evalRange(args)
	case "coalesce":
		for _, a := range args {
			if a != nil {
				return a, nil
			}
		}
		return nil, nil
	case "tostring":
		if len(args) == 0 || args[0] == nil {
			return nil, nil
		}
		return fmt.Sprint(args[0]), nil
	case "tointeger":
		f, ok := toFloat(first(args))
		if !ok {
			return nil, &EvaluationError{Message: "toInteger() on non-numeric value"}
		}
		return int64(f), nil
	case "tofloat":
		f, ok := toFloat(first(args))
		if !ok {
			return nil, &EvaluationError{Message: "toFloat() on non-numeric value"}
		}
		return f, nil
	}

	if v, ok, err := dispatchMath(fc.Name, args); ok {
		return v, err
	}
	if v, ok, err := dispatchText(fc.Name, args); ok {
		return v, err
	}
	if v, ok, err := dispatchTemporal(fc.Name, args); ok {
		return v, err
	}

	return nil, &EvaluationError{Message: fmt.Sprintf("undefined function %s", fc.Name)}
}

func first(args []interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func evalRange(args []interface{}) (interface{}, error) {
	if len(args) < 2 {
		return nil, &EvaluationError{Message: "range() requires at least 2 arguments"}
	}
	start, ok1 := toFloat(args[0])
	end, ok2 := toFloat(args[1])
	if !ok1 || !ok2 {
		return nil, &EvaluationError{Message: "range() requires numeric bounds"}
	}
	step := 1.0
	if len(args) > 2 {
		s, ok := toFloat(args[2])
		if !ok || s == 0 {
			return nil, &EvaluationError{Message: "range() step must be a non-zero number"}
		}
		step = s
	}
	var out []interface{}
	if step > 0 {
		for i := start; i <= end; i += step {
			out = append(out, int64(i))
		}
	} else {
		for i := start; i >= end; i += step {
			out = append(out, int64(i))
		}
	}
	if out == nil {
		out = []interface{}{}
	}
	return out, nil
}

func dispatchMath(name string, args []interface{}) (interface{}, bool, error) {
	arg0 := func() float64 { f, _ := toFloat(first(args)); return f }
	switch name {
	case "abs":
		return mathfn.Abs(arg0()), true, nil
	case "ceil":
		return mathfn.Ceil(arg0()), true, nil
	case "floor":
		return mathfn.Floor(arg0()), true, nil
	case "round":
		if len(args) > 1 {
			p, _ := toFloat(args[1])
			return mathfn.RoundTo(arg0(), int(p)), true, nil
		}
		return mathfn.Round(arg0()), true, nil
	case "sign":
		return mathfn.Sign(arg0()), true, nil
	case "sqrt":
		return mathfn.Sqrt(arg0()), true, nil
	case "pow":
		if len(args) < 2 {
			return nil, true, &EvaluationError{Message: "pow() requires 2 arguments"}
		}
		exp, _ := toFloat(args[1])
		return mathfn.Pow(arg0(), exp), true, nil
	case "log":
		return mathfn.Log(arg0()), true, nil
	case "log10":
		return mathfn.Log10(arg0()), true, nil
	case "exp":
		return mathfn.Exp(arg0()), true, nil
	case "rand":
		return mathfn.Rand(), true, nil
	}
	return nil, false, nil
}

func dispatchText(name string, args []interface{}) (interface{}, bool, error) {
	arg0 := func() string { s, _ := first(args).(string); return s }
	switch name {
	case "toupper":
		return textfn.ToUpper(arg0()), true, nil
	case "tolower":
		return textfn.ToLower(arg0()), true, nil
	case "trim":
		return textfn.Trim(arg0()), true, nil
	case "ltrim":
		return textfn.LTrim(arg0()), true, nil
	case "rtrim":
		return textfn.RTrim(arg0()), true, nil
	case "replace":
		if len(args) < 3 {
			return nil, true, &EvaluationError{Message: "replace() requires 3 arguments"}
		}
		old, _ := args[1].(string)
		nw, _ := args[2].(string)
		return textfn.Replace(arg0(), old, nw), true, nil
	case "split":
		if len(args) < 2 {
			return nil, true, &EvaluationError{Message: "split() requires 2 arguments"}
		}
		delim, _ := args[1].(string)
		parts := textfn.Split(arg0(), delim)
		out := make([]interface{}, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, true, nil
	case "substring":
		if len(args) < 2 {
			return nil, true, &EvaluationError{Message: "substring() requires at least 2 arguments"}
		}
		start, _ := toFloat(args[1])
		length := -1
		if len(args) > 2 {
			l, _ := toFloat(args[2])
			length = int(l)
		}
		return textfn.Substring(arg0(), int(start), length), true, nil
	case "left":
		n, _ := toFloat(args[1])
		return textfn.Left(arg0(), int(n)), true, nil
	case "right":
		n, _ := toFloat(args[1])
		return textfn.Right(arg0(), int(n)), true, nil
	case "reverse":
		if _, ok := first(args).(string); ok {
			return textfn.Reverse(arg0()), true, nil
		}
		if l, ok := first(args).([]interface{}); ok {
			out := make([]interface{}, len(l))
			for i, v := range l {
				out[len(l)-1-i] = v
			}
			return out, true, nil
		}
		return nil, true, nil
	}
	return nil, false, nil
}
