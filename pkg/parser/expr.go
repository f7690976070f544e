package parser

import (
	"strings"

	"github.com/orneryd/nfgraph/pkg/ast"
)

// parseExpr is the grammar entry point; precedence climbs from OR (lowest)
// down to postfix property/index access (highest), matching Cypher's
// documented operator precedence table closely enough for this subset.
func (s *state) parseExpr() ast.Expression {
	return s.parseOr()
}

func (s *state) parseOr() ast.Expression {
	left := s.parseXor()
	for s.isKeyword("OR") {
		s.advance()
		left = &ast.Binary{Op: ast.OpOr, Left: left, Right: s.parseXor()}
	}
	return left
}

func (s *state) parseXor() ast.Expression {
	left := s.parseAnd()
	for s.isKeyword("XOR") {
		s.advance()
		left = &ast.Binary{Op: ast.OpXor, Left: left, Right: s.parseAnd()}
	}
	return left
}

func (s *state) parseAnd() ast.Expression {
	left := s.parseNot()
	for s.isKeyword("AND") {
		s.advance()
		left = &ast.Binary{Op: ast.OpAnd, Left: left, Right: s.parseNot()}
	}
	return left
}

func (s *state) parseNot() ast.Expression {
	if s.isKeyword("NOT") {
		s.advance()
		return &ast.Unary{Op: ast.UnaryNot, Operand: s.parseNot()}
	}
	return s.parseComparison()
}

func (s *state) parseComparison() ast.Expression {
	left := s.parseAdditive()

	if s.isKeyword("IS") {
		s.advance()
		neg := false
		if s.isKeyword("NOT") {
			neg = true
			s.advance()
		}
		s.expectKeyword("NULL")
		if neg {
			return &ast.Comparison{Op: ast.CmpIsNotNull, Left: left}
		}
		return &ast.Comparison{Op: ast.CmpIsNull, Left: left}
	}

	if s.isKeyword("IN") {
		s.advance()
		return &ast.Comparison{Op: ast.CmpIn, Left: left, Right: s.parseAdditive()}
	}
	if s.isKeyword("STARTS") {
		s.advance()
		s.expectKeyword("WITH")
		return &ast.Comparison{Op: ast.CmpStartsWith, Left: left, Right: s.parseAdditive()}
	}
	if s.isKeyword("ENDS") {
		s.advance()
		s.expectKeyword("WITH")
		return &ast.Comparison{Op: ast.CmpEndsWith, Left: left, Right: s.parseAdditive()}
	}
	if s.isKeyword("CONTAINS") {
		s.advance()
		return &ast.Comparison{Op: ast.CmpContains, Left: left, Right: s.parseAdditive()}
	}

	op, ok := compareOp(s.tok)
	if !ok {
		return left
	}
	s.advance()
	return &ast.Comparison{Op: op, Left: left, Right: s.parseAdditive()}
}

func compareOp(t Token) (ast.CompareOp, bool) {
	if t.Kind != TokPunct {
		return 0, false
	}
	switch t.Text {
	case "=":
		return ast.CmpEq, true
	case "<>":
		return ast.CmpNeq, true
	case "<":
		return ast.CmpLt, true
	case "<=":
		return ast.CmpLte, true
	case ">":
		return ast.CmpGt, true
	case ">=":
		return ast.CmpGte, true
	case "=~":
		return ast.CmpRegex, true
	}
	return 0, false
}

func (s *state) parseAdditive() ast.Expression {
	left := s.parseMultiplicative()
	for s.isPunct("+") || s.isPunct("-") {
		op := ast.OpAdd
		if s.tok.Text == "-" {
			op = ast.OpSub
		}
		s.advance()
		left = &ast.Binary{Op: op, Left: left, Right: s.parseMultiplicative()}
	}
	return left
}

func (s *state) parseMultiplicative() ast.Expression {
	left := s.parsePower()
	for s.isPunct("*") || s.isPunct("/") || s.isPunct("%") {
		var op ast.BinaryOp
		switch s.tok.Text {
		case "*":
			op = ast.OpMul
		case "/":
			op = ast.OpDiv
		case "%":
			op = ast.OpMod
		}
		s.advance()
		left = &ast.Binary{Op: op, Left: left, Right: s.parsePower()}
	}
	return left
}

func (s *state) parsePower() ast.Expression {
	left := s.parseUnary()
	if s.isPunct("^") {
		s.advance()
		return &ast.Binary{Op: ast.OpPow, Left: left, Right: s.parsePower()}
	}
	return left
}

func (s *state) parseUnary() ast.Expression {
	if s.isPunct("-") {
		s.advance()
		return &ast.Unary{Op: ast.UnaryNeg, Operand: s.parseUnary()}
	}
	return s.parsePostfix()
}

func (s *state) parsePostfix() ast.Expression {
	e := s.parsePrimary()
	for {
		switch {
		case s.isPunct("."):
			s.advance()
			name := s.expectIdent()
			if v, ok := e.(*ast.Variable); ok {
				e = &ast.Property{Variable: v.Name, Name: name}
			} else {
				e = &ast.PropertyAccess{Target: e, Name: name}
			}
		case s.isPunct(":") && isLabelContext(e):
			// handled by caller (pattern context); not valid on arbitrary
			// expressions, so stop here.
			return e
		case s.isPunct("["):
			s.advance()
			e = s.parseIndexOrSlice(e)
		default:
			return e
		}
	}
}

func isLabelContext(ast.Expression) bool { return false }

func (s *state) parseIndexOrSlice(target ast.Expression) ast.Expression {
	if s.isPunct("..") {
		s.advance()
		to := s.parseExpr()
		s.expectPunct("]")
		return &ast.IndexAccess{Target: target, To: to, Slice: true}
	}
	first := s.parseExpr()
	if s.isPunct("..") {
		s.advance()
		var to ast.Expression
		if !s.isPunct("]") {
			to = s.parseExpr()
		}
		s.expectPunct("]")
		return &ast.IndexAccess{Target: target, From: first, To: to, Slice: true}
	}
	s.expectPunct("]")
	return &ast.IndexAccess{Target: target, Index: first}
}

func (s *state) parsePrimary() ast.Expression {
	switch {
	case s.tok.Kind == TokNumber:
		v := parseNumberLiteral(s.tok.Text)
		s.advance()
		return &ast.Literal{Value: v}
	case s.tok.Kind == TokString:
		v := s.tok.Text
		s.advance()
		return &ast.Literal{Value: v}
	case s.tok.Kind == TokParam:
		name := s.tok.Text
		s.advance()
		return &ast.Param{Name: name}
	case s.isKeyword("TRUE"):
		s.advance()
		return &ast.Literal{Value: true}
	case s.isKeyword("FALSE"):
		s.advance()
		return &ast.Literal{Value: false}
	case s.isKeyword("NULL"):
		s.advance()
		return &ast.Literal{Value: nil}
	case s.isKeyword("CASE"):
		return s.parseCase()
	case s.isKeyword("ALL"), s.isKeyword("ANY"), s.isKeyword("NONE"), s.isKeyword("SINGLE"):
		return s.parseListPredicate()
	case s.isKeyword("NOT"):
		s.advance()
		return &ast.Unary{Op: ast.UnaryNot, Operand: s.parseNot()}
	case s.isPunct("("):
		s.advance()
		e := s.parseExpr()
		s.expectPunct(")")
		return e
	case s.isPunct("["):
		return s.parseListLiteralOrComprehension()
	case s.isPunct("{"):
		return s.parseMapLiteral()
	case s.tok.Kind == TokIdent:
		return s.parseIdentOrCall()
	default:
		s.fail("unexpected token %q in expression", s.tok.Text)
		return nil
	}
}

func (s *state) parseIdentOrCall() ast.Expression {
	name := s.tok.Text
	s.advance()
	for s.isPunct(".") {
		// lookahead: dotted function name like apoc.text.join(...) — only
		// consume the dot chain if it is ultimately followed by '('.
		save := s.mark()
		s.advance()
		if s.tok.Kind != TokIdent {
			s.reset(save)
			break
		}
		name2 := s.tok.Text
		s.advance()
		if s.isPunct("(") || s.isPunct(".") {
			name = name + "." + name2
			continue
		}
		s.reset(save)
		break
	}
	if s.isPunct("(") {
		s.advance()
		fc := &ast.FunctionCall{Name: lowerFuncName(name)}
		if s.isKeyword("DISTINCT") {
			fc.Distinct = true
			s.advance()
		}
		if s.isPunct("*") { // count(*)
			s.advance()
			fc.Args = []ast.Expression{&ast.Variable{Name: "*"}}
		} else if !s.isPunct(")") {
			fc.Args = append(fc.Args, s.parseExpr())
			for s.isPunct(",") {
				s.advance()
				fc.Args = append(fc.Args, s.parseExpr())
			}
		}
		s.expectPunct(")")
		return fc
	}
	if s.isPunct(":") {
		var labels []string
		save := s.mark()
		for s.isPunct(":") {
			s.advance()
			if s.tok.Kind != TokIdent {
				s.reset(save)
				return &ast.Variable{Name: name}
			}
			labels = append(labels, s.tok.Text)
			s.advance()
		}
		return &ast.LabelPredicate{Variable: name, Labels: labels}
	}
	return &ast.Variable{Name: name}
}

func (s *state) parseCase() ast.Expression {
	s.advance() // CASE
	ce := &ast.CaseExpr{}
	var test ast.Expression
	if !s.isKeyword("WHEN") {
		test = s.parseExpr()
	}
	for s.isKeyword("WHEN") {
		s.advance()
		condExpr := s.parseExpr()
		s.expectKeyword("THEN")
		result := s.parseExpr()
		var cond ast.WhereCondition
		if test != nil {
			cond = exprToCondition(&ast.Comparison{Op: ast.CmpEq, Left: test, Right: condExpr})
		} else {
			cond = exprToCondition(condExpr)
		}
		ce.Whens = append(ce.Whens, ast.CaseWhen{Condition: cond, Result: result})
	}
	if s.isKeyword("ELSE") {
		s.advance()
		ce.Else = s.parseExpr()
	}
	s.expectKeyword("END")
	return ce
}

func (s *state) parseListPredicate() ast.Expression {
	var kind ast.ListPredicateKind
	switch s.tok.Text {
	case "ALL":
		kind = ast.PredAll
	case "ANY":
		kind = ast.PredAny
	case "NONE":
		kind = ast.PredNone
	case "SINGLE":
		kind = ast.PredSingle
	}
	s.advance()
	s.expectPunct("(")
	variable := s.expectIdent()
	s.expectKeyword("IN")
	list := s.parseExpr()
	s.expectKeyword("WHERE")
	where := s.parseWhere()
	s.expectPunct(")")
	return &ast.ListPredicate{Kind: kind, Variable: variable, List: list, Where: where}
}

func (s *state) parseListLiteralOrComprehension() ast.Expression {
	s.expectPunct("[")
	if s.isPunct("]") {
		s.advance()
		return &ast.ListLiteral{}
	}

	// Disambiguate [x IN list ...] from [e1, e2, ...] by lookahead: an
	// identifier immediately followed by the IN keyword.
	if s.tok.Kind == TokIdent {
		save := s.mark()
		variable := s.tok.Text
		s.advance()
		if s.isKeyword("IN") {
			s.advance()
			list := s.parseExpr()
			var where ast.WhereCondition
			if s.isKeyword("WHERE") {
				s.advance()
				where = s.parseWhere()
			}
			var proj ast.Expression
			if s.isPunct("|") {
				s.advance()
				proj = s.parseExpr()
			}
			s.expectPunct("]")
			return &ast.ListComprehension{Variable: variable, List: list, Where: where, Projection: proj}
		}
		s.reset(save)
	}

	items := []ast.Expression{s.parseExpr()}
	for s.isPunct(",") {
		s.advance()
		items = append(items, s.parseExpr())
	}
	s.expectPunct("]")
	return &ast.ListLiteral{Items: items}
}

func (s *state) parseMapLiteral() ast.Expression {
	s.expectPunct("{")
	entries := map[string]ast.Expression{}
	if !s.isPunct("}") {
		for {
			key := s.propOrIdentKey()
			s.expectPunct(":")
			entries[key] = s.parseExpr()
			if s.isPunct(",") {
				s.advance()
				continue
			}
			break
		}
	}
	s.expectPunct("}")
	return &ast.ObjectLiteral{Entries: entries}
}

// propOrIdentKey reads a map key, which may be a bare identifier or a
// quoted string (`{"k": v}`).
func (s *state) propOrIdentKey() string {
	if s.tok.Kind == TokString {
		v := s.tok.Text
		s.advance()
		return v
	}
	return s.expectIdent()
}

// exprToCondition converts a parsed boolean-shaped Expression into the
// WhereCondition tagged union the planner and evaluator operate on.
func exprToCondition(e ast.Expression) ast.WhereCondition {
	switch v := e.(type) {
	case *ast.Comparison:
		return &ast.CondComparison{Comparison: v}
	case *ast.Binary:
		switch v.Op {
		case ast.OpAnd:
			return &ast.CondAnd{Left: exprToCondition(v.Left), Right: exprToCondition(v.Right)}
		case ast.OpOr:
			return &ast.CondOr{Left: exprToCondition(v.Left), Right: exprToCondition(v.Right)}
		}
		return &ast.CondExpression{Expr: e}
	case *ast.Unary:
		if v.Op == ast.UnaryNot {
			return &ast.CondNot{Inner: exprToCondition(v.Operand)}
		}
		return &ast.CondExpression{Expr: e}
	case *ast.ListPredicate:
		return &ast.CondListPredicate{Predicate: v}
	default:
		return &ast.CondExpression{Expr: e}
	}
}

// lowerFuncName normalizes function-name casing for dispatch lookup while
// preserving dotted apoc.* names verbatim.
func lowerFuncName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return strings.ToLower(name)
}
