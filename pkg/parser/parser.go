package parser

import (
	"fmt"

	"github.com/orneryd/nfgraph/pkg/ast"
)

// ParseError mirrors the parser collaborator's documented failure shape:
// a message plus source position. The engine forwards this verbatim to
// callers as a ParseError (§7).
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Line, e.Column)
}

// Parser is the collaborator interface the engine depends on.
type Parser interface {
	Parse(cypher string) (*ast.Query, error)
}

// CypherParser is the reference recursive-descent implementation.
type CypherParser struct{}

// New returns the reference CypherParser.
func New() *CypherParser {
	return &CypherParser{}
}

// Parse implements Parser.
func (p *CypherParser) Parse(cypher string) (q *ast.Query, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()

	ps := &state{lex: NewLexer(cypher)}
	ps.advance()
	query := ps.parseQuery()
	ps.expectEOF()
	return query, nil
}

// state holds parser position; methods panic with *ParseError on failure
// and Parse recovers at the top level, matching the recursive-descent
// idiom used throughout the rest of this repository's hand-written
// parsers.
type state struct {
	lex *Lexer
	tok Token
}

func (s *state) advance() {
	t, err := s.lex.Next()
	if err != nil {
		panic(&ParseError{Message: err.Error(), Line: s.tok.Line, Column: s.tok.Column})
	}
	s.tok = t
}

func (s *state) fail(format string, args ...interface{}) {
	panic(&ParseError{Message: fmt.Sprintf(format, args...), Line: s.tok.Line, Column: s.tok.Column})
}

// checkpoint is a restorable snapshot of lexer + current token, used by
// the handful of grammar productions that need bounded lookahead
// (distinguishing `[x IN list | ...]` from `[e1, e2]`, and dotted
// function names from label predicates).
type checkpoint struct {
	lex Lexer
	tok Token
}

func (s *state) mark() checkpoint {
	return checkpoint{lex: *s.lex, tok: s.tok}
}

func (s *state) reset(c checkpoint) {
	*s.lex = c.lex
	s.tok = c.tok
}

func (s *state) isKeyword(kw string) bool {
	return s.tok.Kind == TokKeyword && s.tok.Text == kw
}

func (s *state) isPunct(p string) bool {
	return s.tok.Kind == TokPunct && s.tok.Text == p
}

func (s *state) expectPunct(p string) {
	if !s.isPunct(p) {
		s.fail("expected %q, found %q", p, s.tok.Text)
	}
	s.advance()
}

func (s *state) expectKeyword(kw string) {
	if !s.isKeyword(kw) {
		s.fail("expected keyword %s, found %q", kw, s.tok.Text)
	}
	s.advance()
}

func (s *state) expectIdent() string {
	if s.tok.Kind != TokIdent {
		s.fail("expected identifier, found %q", s.tok.Text)
	}
	name := s.tok.Text
	s.advance()
	return name
}

func (s *state) expectEOF() {
	if s.tok.Kind != TokEOF {
		s.fail("unexpected trailing input %q", s.tok.Text)
	}
}

func (s *state) parseQuery() *ast.Query {
	q := &ast.Query{}
	for {
		q.Clauses = append(q.Clauses, s.parseClause())
		if s.isKeyword("UNION") {
			s.advance()
			all := false
			if s.isKeyword("ALL") {
				all = true
				s.advance()
			}
			next := s.parseQuery()
			q.Clauses = append(q.Clauses, &ast.UnionClause{All: all, Next: next})
			return q
		}
		if s.tok.Kind == TokEOF {
			return q
		}
	}
}

func (s *state) parseClause() ast.Clause {
	switch {
	case s.isKeyword("OPTIONAL"):
		s.advance()
		s.expectKeyword("MATCH")
		return s.parseMatch(true)
	case s.isKeyword("MATCH"):
		s.advance()
		return s.parseMatch(false)
	case s.isKeyword("CREATE"):
		s.advance()
		return &ast.CreateClause{Patterns: s.parsePatternList()}
	case s.isKeyword("MERGE"):
		s.advance()
		return s.parseMerge()
	case s.isKeyword("SET"):
		s.advance()
		return &ast.SetClause{Assignments: s.parseAssignList()}
	case s.isKeyword("DETACH"):
		s.advance()
		s.expectKeyword("DELETE")
		return &ast.DeleteClause{Expressions: s.parseExprList(), Detach: true}
	case s.isKeyword("DELETE"):
		s.advance()
		return &ast.DeleteClause{Expressions: s.parseExprList()}
	case s.isKeyword("WITH"):
		s.advance()
		return s.parseWith()
	case s.isKeyword("UNWIND"):
		s.advance()
		return s.parseUnwind()
	case s.isKeyword("RETURN"):
		s.advance()
		return s.parseReturn()
	case s.isKeyword("CALL"):
		s.advance()
		return s.parseCall()
	default:
		s.fail("unexpected token %q, expected a clause keyword", s.tok.Text)
		return nil
	}
}

func (s *state) parseMatch(optional bool) *ast.MatchClause {
	m := &ast.MatchClause{Optional: optional, Patterns: s.parsePatternList()}
	if s.isKeyword("WHERE") {
		s.advance()
		m.Where = s.parseWhere()
	}
	return m
}

func (s *state) parseMerge() *ast.MergeClause {
	patterns := s.parsePatternList()
	if len(patterns) != 1 {
		s.fail("MERGE takes exactly one pattern")
	}
	mc := &ast.MergeClause{Pattern: patterns[0]}
	for s.isKeyword("ON") {
		s.advance()
		if s.isKeyword("CREATE") {
			s.advance()
			s.expectKeyword("SET")
			mc.OnCreateSet = s.parseAssignList()
		} else if s.isKeyword("MATCH") {
			s.advance()
			s.expectKeyword("SET")
			mc.OnMatchSet = s.parseAssignList()
		} else {
			s.fail("expected CREATE or MATCH after ON")
		}
	}
	return mc
}

func (s *state) parseWith() *ast.WithClause {
	w := &ast.WithClause{}
	if s.isKeyword("DISTINCT") {
		w.Distinct = true
		s.advance()
	}
	if s.isPunct("*") {
		w.Star = true
		s.advance()
		if s.isPunct(",") {
			s.advance()
			w.Items = s.parseProjectionList()
		}
	} else {
		w.Items = s.parseProjectionList()
	}
	if s.isKeyword("WHERE") {
		s.advance()
		w.Where = s.parseWhere()
	}
	s.parseOrderSkipLimit(&w.OrderBy, &w.Skip, &w.Limit)
	return w
}

func (s *state) parseUnwind() *ast.UnwindClause {
	expr := s.parseExpr()
	s.expectKeyword("AS")
	alias := s.expectIdent()
	return &ast.UnwindClause{Expression: expr, Alias: alias}
}

func (s *state) parseReturn() *ast.ReturnClause {
	r := &ast.ReturnClause{}
	if s.isKeyword("DISTINCT") {
		r.Distinct = true
		s.advance()
	}
	r.Items = s.parseProjectionList()
	s.parseOrderSkipLimit(&r.OrderBy, &r.Skip, &r.Limit)
	return r
}

func (s *state) parseCall() *ast.CallClause {
	name := s.expectIdent()
	for s.isPunct(".") {
		s.advance()
		name += "." + s.expectIdent()
	}
	cc := &ast.CallClause{Procedure: name}
	s.expectPunct("(")
	if !s.isPunct(")") {
		cc.Args = append(cc.Args, s.parseExpr())
		for s.isPunct(",") {
			s.advance()
			cc.Args = append(cc.Args, s.parseExpr())
		}
	}
	s.expectPunct(")")
	if s.isKeyword("YIELD") {
		s.advance()
		cc.Yield = append(cc.Yield, s.expectIdent())
		for s.isPunct(",") {
			s.advance()
			cc.Yield = append(cc.Yield, s.expectIdent())
		}
	}
	return cc
}

func (s *state) parseOrderSkipLimit(orderBy *[]ast.OrderByItem, skip, limit *ast.Expression) {
	if s.isKeyword("ORDER") {
		s.advance()
		s.expectKeyword("BY")
		for {
			e := s.parseExpr()
			desc := false
			if s.isKeyword("DESC") || s.isKeyword("DESCENDING") {
				desc = true
				s.advance()
			} else if s.isKeyword("ASC") || s.isKeyword("ASCENDING") {
				s.advance()
			}
			*orderBy = append(*orderBy, ast.OrderByItem{Expr: e, Descending: desc})
			if s.isPunct(",") {
				s.advance()
				continue
			}
			break
		}
	}
	if s.isKeyword("SKIP") {
		s.advance()
		*skip = s.parseExpr()
	}
	if s.isKeyword("LIMIT") {
		s.advance()
		*limit = s.parseExpr()
	}
}

func (s *state) parseProjectionList() []ast.ProjectionItem {
	var items []ast.ProjectionItem
	for {
		e := s.parseExpr()
		alias := ""
		if s.isKeyword("AS") {
			s.advance()
			alias = s.expectIdent()
		} else if v, ok := e.(*ast.Variable); ok {
			alias = v.Name
		} else if prop, ok := e.(*ast.Property); ok {
			alias = prop.Variable + "." + prop.Name
		}
		items = append(items, ast.ProjectionItem{Expr: e, Alias: alias})
		if s.isPunct(",") {
			s.advance()
			continue
		}
		break
	}
	return items
}

func (s *state) parseAssignList() []ast.SetAssignment {
	var out []ast.SetAssignment
	for {
		out = append(out, s.parseAssign())
		if s.isPunct(",") {
			s.advance()
			continue
		}
		break
	}
	return out
}

func (s *state) parseAssign() ast.SetAssignment {
	variable := s.expectIdent()
	switch {
	case s.isPunct(":"):
		var labels []string
		for s.isPunct(":") {
			s.advance()
			labels = append(labels, s.expectIdent())
		}
		return ast.SetAssignment{Variable: variable, Labels: labels}
	case s.isPunct("."):
		s.advance()
		prop := s.expectIdent()
		s.expectPunct("=")
		return ast.SetAssignment{Variable: variable, Property: prop, Value: s.parseExpr()}
	case s.isPunct("+="):
		s.advance()
		return ast.SetAssignment{Variable: variable, Value: s.parseExpr(), MergeProps: true}
	case s.isPunct("="):
		s.advance()
		return ast.SetAssignment{Variable: variable, Value: s.parseExpr(), ReplaceProps: true}
	default:
		s.fail("expected '.', ':', '=' or '+=' after %s in SET", variable)
		return ast.SetAssignment{}
	}
}

func (s *state) parseExprList() []ast.Expression {
	var out []ast.Expression
	out = append(out, s.parseExpr())
	for s.isPunct(",") {
		s.advance()
		out = append(out, s.parseExpr())
	}
	return out
}

func (s *state) parseWhere() ast.WhereCondition {
	return exprToCondition(s.parseExpr())
}
