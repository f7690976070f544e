package engine

import "github.com/orneryd/nfgraph/pkg/ast"

// phase is a maximal run of consecutive clauses the planner has judged
// safe to execute without an aggregate/materialization barrier between
// them (§4.3, GLOSSARY "Phase").
type phase struct {
	Clauses []ast.Clause
}

// planPhases partitions q's clauses into phases per the §4.3 trigger
// table. It also performs the lightweight semantic validation the spec
// assigns to the planner: references to undefined variables.
func planPhases(q *ast.Query) ([]phase, error) {
	if err := validateVariables(q); err != nil {
		return nil, err
	}

	var phases []phase
	cur := phase{}
	aggregateAliases := map[string]bool{}
	sawAggregateWith := false
	lastWasWith := false
	lastWithSliced := false
	allMatchesOptionalSoFar := true
	nonDetAliases := map[string]bool{}

	flush := func() {
		if len(cur.Clauses) > 0 {
			phases = append(phases, cur)
			cur = phase{}
		}
	}

	for _, c := range q.Clauses {
		boundary := false

		switch clause := c.(type) {
		case *ast.UnwindClause:
			if refersToAny(clause.Expression, aggregateAliases) || refersToAny(clause.Expression, nonDetAliases) {
				boundary = true
			}
		case *ast.MatchClause:
			if clause.Optional {
				if lastWasWith && allMatchesOptionalSoFar {
					boundary = true
				}
			} else {
				allMatchesOptionalSoFar = false
			}
			if lastWasWith && sawAggregateWith {
				boundary = true
			}
			if lastWasWith && lastWithSliced {
				boundary = true
			}
		case *ast.WithClause:
			hasAggregate := false
			for _, item := range clause.Items {
				if isAggregateExpr(item.Expr) {
					hasAggregate = true
					aggregateAliases[item.Alias] = true
				}
				if containsNonDeterministic(item.Expr) {
					nonDetAliases[item.Alias] = true
				}
			}
			if lastWasWith && sawAggregateWith && clause.Where != nil {
				boundary = true // HAVING
			}
			sawAggregateWith = hasAggregate
			lastWithSliced = clause.Skip != nil || clause.Limit != nil
		case *ast.ReturnClause:
			for _, item := range clause.Items {
				if containsNonDeterministic(item.Expr) {
					nonDetAliases[item.Alias] = true
				}
			}
		}

		if boundary {
			flush()
		}
		cur.Clauses = append(cur.Clauses, c)

		if _, ok := c.(*ast.WithClause); ok {
			lastWasWith = true
		} else {
			lastWasWith = false
		}
	}
	flush()
	return phases, nil
}

func isAggregateExpr(e ast.Expression) bool {
	fc, ok := e.(*ast.FunctionCall)
	return ok && isAggregateFunction(fc.Name)
}

// containsNonDeterministic reports whether e calls a non-deterministic
// function (rand, randomUUID) in a function call's arguments, an
// operator or comparison operand, or a list comprehension's filter or
// projection (§4.3 "Non-determinism" trigger). CASE arms and map/list
// literals are not searched.
func containsNonDeterministic(e ast.Expression) bool {
	switch expr := e.(type) {
	case *ast.FunctionCall:
		if expr.Name == "rand" || expr.Name == "randomuuid" {
			return true
		}
		for _, a := range expr.Args {
			if containsNonDeterministic(a) {
				return true
			}
		}
	case *ast.Binary:
		return containsNonDeterministic(expr.Left) || containsNonDeterministic(expr.Right)
	case *ast.Unary:
		return containsNonDeterministic(expr.Operand)
	case *ast.Comparison:
		return containsNonDeterministic(expr.Left) || containsNonDeterministic(expr.Right)
	case *ast.ListComprehension:
		if expr.Where != nil {
			if cond, ok := expr.Where.(*ast.CondExpression); ok && containsNonDeterministic(cond.Expr) {
				return true
			}
			if cond, ok := expr.Where.(*ast.CondComparison); ok && cond.Comparison != nil && containsNonDeterministic(cond.Comparison) {
				return true
			}
		}
		return containsNonDeterministic(expr.Projection)
	}
	return false
}

// refersToAny reports whether e is a bare Variable naming one of names.
func refersToAny(e ast.Expression, names map[string]bool) bool {
	v, ok := e.(*ast.Variable)
	return ok && names[v.Name]
}

// validateVariables checks that every variable referenced by ORDER BY,
// CREATE-property expressions, and SET targets was introduced by an
// earlier MATCH/CREATE/MERGE/UNWIND/WITH in the same query, and that
// MERGE obeys §4.5's re-binding rules (§4.1 planner validation duty).
// WHERE conditions and RETURN/WITH projection expressions are not
// checked here. It only tracks top-level pattern/alias variables, not
// ones nested inside comprehensions (those are scoped by the evaluator).
func validateVariables(q *ast.Query) error {
	known := map[string]bool{}
	declare := func(name string) {
		if name != "" {
			known[name] = true
		}
	}
	declarePattern := func(p ast.Pattern) {
		var walk func(ast.Pattern)
		walk = func(p ast.Pattern) {
			switch pat := p.(type) {
			case *ast.NodePattern:
				declare(pat.Variable)
			case *ast.RelationshipPattern:
				declare(pat.Source.Variable)
				declare(pat.Edge.Variable)
				declare(pat.Target.Variable)
			case *ast.PathPattern:
				declare(pat.Variable)
				for _, link := range pat.Chain {
					walk(link)
				}
			}
		}
		walk(p)
	}
	checkOrderBy := func(items []ast.OrderByItem, scoped map[string]bool) error {
		for _, ob := range items {
			if name := exprUndefinedVariable(ob.Expr, scoped); name != "" {
				return &SyntaxError{Message: "ORDER BY references undefined variable " + name}
			}
		}
		return nil
	}

	for _, c := range q.Clauses {
		switch clause := c.(type) {
		case *ast.MatchClause:
			for _, p := range clause.Patterns {
				declarePattern(p)
			}
		case *ast.CreateClause:
			for _, p := range clause.Patterns {
				if name := patternPropertyUndefinedVariable(p, known); name != "" {
					return &SyntaxError{Message: "CREATE property expression references undefined variable " + name}
				}
				declarePattern(p)
			}
		case *ast.MergeClause:
			if np, ok := clause.Pattern.(*ast.NodePattern); ok && known[np.Variable] {
				return &SyntaxError{Message: "MERGE cannot re-bind MATCH-bound variable " + np.Variable}
			}
			if name := mergeRelabelsBoundVariable(clause.Pattern, known); name != "" {
				return &SyntaxError{Message: "MERGE cannot impose new labels/properties on bound variable " + name}
			}
			declarePattern(clause.Pattern)
		case *ast.UnwindClause:
			declare(clause.Alias)
		case *ast.WithClause:
			aliases := map[string]bool{}
			for _, item := range clause.Items {
				aliases[item.Alias] = true
			}
			scoped := known
			if !clause.Star {
				scoped = mergeKnown(known, aliases)
			}
			if err := checkOrderBy(clause.OrderBy, scoped); err != nil {
				return err
			}
			if !clause.Star {
				known = aliases
			}
		case *ast.ReturnClause:
			aliases := map[string]bool{}
			for _, item := range clause.Items {
				aliases[item.Alias] = true
			}
			if err := checkOrderBy(clause.OrderBy, mergeKnown(known, aliases)); err != nil {
				return err
			}
		case *ast.SetClause:
			for _, a := range clause.Assignments {
				if !known[a.Variable] {
					return &SyntaxError{Message: "SET references undefined variable " + a.Variable}
				}
			}
		}
	}
	return nil
}

// mergeKnown returns a new set containing every name in known plus every
// name in extra, leaving known untouched.
func mergeKnown(known, extra map[string]bool) map[string]bool {
	out := make(map[string]bool, len(known)+len(extra))
	for k := range known {
		out[k] = true
	}
	for k := range extra {
		out[k] = true
	}
	return out
}

// patternPropertyUndefinedVariable returns the first undefined variable
// referenced by a pattern's property-value expressions, or "" if every
// reference resolves against known.
func patternPropertyUndefinedVariable(p ast.Pattern, known map[string]bool) string {
	switch pat := p.(type) {
	case *ast.NodePattern:
		for _, expr := range pat.Properties {
			if name := exprUndefinedVariable(expr, known); name != "" {
				return name
			}
		}
	case *ast.RelationshipPattern:
		if name := patternPropertyUndefinedVariable(pat.Source, known); name != "" {
			return name
		}
		for _, expr := range pat.Edge.Properties {
			if name := exprUndefinedVariable(expr, known); name != "" {
				return name
			}
		}
		return patternPropertyUndefinedVariable(pat.Target, known)
	case *ast.PathPattern:
		for _, link := range pat.Chain {
			if name := patternPropertyUndefinedVariable(link, known); name != "" {
				return name
			}
		}
	}
	return ""
}

// mergeRelabelsBoundVariable reports (by returning its name) the first node
// sub-pattern that names an already-bound variable while also carrying
// labels or properties — disallowed by §4.5 ("MERGE may not impose new
// labels/properties on an already-bound variable").
func mergeRelabelsBoundVariable(p ast.Pattern, known map[string]bool) string {
	switch pat := p.(type) {
	case *ast.NodePattern:
		if known[pat.Variable] && (len(pat.Labels) > 0 || len(pat.Properties) > 0) {
			return pat.Variable
		}
	case *ast.RelationshipPattern:
		if name := mergeRelabelsBoundVariable(pat.Source, known); name != "" {
			return name
		}
		return mergeRelabelsBoundVariable(pat.Target, known)
	case *ast.PathPattern:
		for _, link := range pat.Chain {
			if name := mergeRelabelsBoundVariable(link, known); name != "" {
				return name
			}
		}
	}
	return ""
}

// exprUndefinedVariable returns the name of the first bare variable or
// property-base reference in e that isn't in known, or "" if every
// reference resolves. List comprehensions and list predicates introduce
// their own scoped variable and are left to the evaluator.
func exprUndefinedVariable(e ast.Expression, known map[string]bool) string {
	switch ex := e.(type) {
	case *ast.Variable:
		if !known[ex.Name] {
			return ex.Name
		}
	case *ast.Property:
		if !known[ex.Variable] {
			return ex.Variable
		}
	case *ast.PropertyAccess:
		return exprUndefinedVariable(ex.Target, known)
	case *ast.IndexAccess:
		for _, sub := range []ast.Expression{ex.Target, ex.Index, ex.From, ex.To} {
			if sub == nil {
				continue
			}
			if name := exprUndefinedVariable(sub, known); name != "" {
				return name
			}
		}
	case *ast.Unary:
		return exprUndefinedVariable(ex.Operand, known)
	case *ast.Binary:
		if name := exprUndefinedVariable(ex.Left, known); name != "" {
			return name
		}
		return exprUndefinedVariable(ex.Right, known)
	case *ast.Comparison:
		if name := exprUndefinedVariable(ex.Left, known); name != "" {
			return name
		}
		if ex.Right != nil {
			return exprUndefinedVariable(ex.Right, known)
		}
	case *ast.FunctionCall:
		for _, a := range ex.Args {
			if name := exprUndefinedVariable(a, known); name != "" {
				return name
			}
		}
	case *ast.ObjectLiteral:
		for _, v := range ex.Entries {
			if name := exprUndefinedVariable(v, known); name != "" {
				return name
			}
		}
	case *ast.ListLiteral:
		for _, item := range ex.Items {
			if name := exprUndefinedVariable(item, known); name != "" {
				return name
			}
		}
	case *ast.CaseExpr:
		for _, w := range ex.Whens {
			if name := whereUndefinedVariable(w.Condition, known); name != "" {
				return name
			}
			if name := exprUndefinedVariable(w.Result, known); name != "" {
				return name
			}
		}
		if ex.Else != nil {
			return exprUndefinedVariable(ex.Else, known)
		}
	}
	return ""
}

// whereUndefinedVariable is exprUndefinedVariable's counterpart over
// WhereCondition, used by ORDER BY/CASE checks that bottom out in a
// boolean sub-expression.
func whereUndefinedVariable(w ast.WhereCondition, known map[string]bool) string {
	switch cond := w.(type) {
	case *ast.CondAnd:
		if name := whereUndefinedVariable(cond.Left, known); name != "" {
			return name
		}
		return whereUndefinedVariable(cond.Right, known)
	case *ast.CondOr:
		if name := whereUndefinedVariable(cond.Left, known); name != "" {
			return name
		}
		return whereUndefinedVariable(cond.Right, known)
	case *ast.CondNot:
		return whereUndefinedVariable(cond.Inner, known)
	case *ast.CondComparison:
		if cond.Comparison == nil {
			return ""
		}
		if name := exprUndefinedVariable(cond.Comparison.Left, known); name != "" {
			return name
		}
		if cond.Comparison.Right != nil {
			return exprUndefinedVariable(cond.Comparison.Right, known)
		}
	case *ast.CondExpression:
		return exprUndefinedVariable(cond.Expr, known)
	}
	return ""
}
