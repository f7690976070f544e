package parser

import "github.com/orneryd/nfgraph/pkg/ast"

// parsePatternList parses a comma-separated list of patterns, each
// optionally a named path (`p = (a)-[:R]->(b)`).
func (s *state) parsePatternList() []ast.Pattern {
	var out []ast.Pattern
	for {
		out = append(out, s.parsePattern())
		if s.isPunct(",") {
			s.advance()
			continue
		}
		break
	}
	return out
}

// parsePattern parses one pattern: an optional `variable =` path prefix
// followed by a node, possibly extended by a chain of relationship-node
// pairs. A chain of length > 1 is flattened into one RelationshipPattern
// per hop, sharing node patterns by variable the way the engine's row-set
// operators expect.
func (s *state) parsePattern() ast.Pattern {
	var pathVar string
	if s.tok.Kind == TokIdent {
		save := s.mark()
		name := s.tok.Text
		s.advance()
		if s.isPunct("=") {
			s.advance()
			pathVar = name
		} else {
			s.reset(save)
		}
	}

	first := s.parseNodePattern()
	var chain []ast.Pattern
	node := first
	for s.isPunct("-") || s.isPunct("<-") {
		rel := s.parseRelPattern(node)
		chain = append(chain, rel)
		node = rel.Target
	}

	if pathVar != "" {
		if len(chain) == 0 {
			chain = []ast.Pattern{first}
		}
		return &ast.PathPattern{Variable: pathVar, Chain: chain}
	}
	if len(chain) == 0 {
		return first
	}
	if len(chain) == 1 {
		return chain[0]
	}
	return &ast.PathPattern{Chain: chain}
}

func (s *state) parseNodePattern() *ast.NodePattern {
	s.expectPunct("(")
	n := &ast.NodePattern{Properties: map[string]ast.Expression{}}
	if s.tok.Kind == TokIdent {
		n.Variable = s.tok.Text
		s.advance()
	}
	for s.isPunct(":") {
		s.advance()
		n.Labels = append(n.Labels, s.expectIdent())
	}
	if s.isPunct("{") {
		n.Properties = s.parseProperties()
	}
	s.expectPunct(")")
	return n
}

// parseProperties parses a `{k: v, ...}` literal directly into a
// map[string]Expression, reusing the map-literal grammar via parseExpr.
func (s *state) parseProperties() map[string]ast.Expression {
	m := s.parseMapLiteral().(*ast.ObjectLiteral)
	return m.Entries
}

func (s *state) parseRelPattern(source *ast.NodePattern) *ast.RelationshipPattern {
	leftArrow := s.isPunct("<-")
	s.advance() // '-' or '<-'

	edge := ast.EdgeSpec{Properties: map[string]ast.Expression{}}
	if s.isPunct("[") {
		s.advance()
		if s.tok.Kind == TokIdent {
			edge.Variable = s.tok.Text
			s.advance()
		}
		if s.isPunct(":") {
			s.advance()
			edge.Type = s.expectIdent()
			for s.isPunct("|") {
				s.advance()
				s.expectIdent() // additional alternative types collapse to the first
			}
		}
		if s.isPunct("*") {
			s.advance()
			edge.MinHops, edge.MaxHops = s.parseHopRange()
		}
		if s.isPunct("{") {
			edge.Properties = s.parseProperties()
		}
		s.expectPunct("]")
	}

	rightArrow := false
	if s.isPunct("->") {
		rightArrow = true
		s.advance()
	} else {
		s.expectPunct("-")
	}

	switch {
	case leftArrow && !rightArrow:
		edge.Direction = ast.DirLeft
	case rightArrow && !leftArrow:
		edge.Direction = ast.DirRight
	default:
		edge.Direction = ast.DirNone
	}

	target := s.parseNodePattern()
	return &ast.RelationshipPattern{Source: source, Edge: edge, Target: target}
}

func (s *state) parseHopRange() (*int, *int) {
	if s.isPunct("..") {
		s.advance()
		max := s.expectNumberInt()
		return nil, &max
	}
	if s.tok.Kind != TokNumber {
		return nil, nil
	}
	min := s.expectNumberInt()
	if s.isPunct("..") {
		s.advance()
		if s.tok.Kind == TokNumber {
			max := s.expectNumberInt()
			return &min, &max
		}
		return &min, nil
	}
	return &min, &min
}

func (s *state) expectNumberInt() int {
	if s.tok.Kind != TokNumber {
		s.fail("expected a number, found %q", s.tok.Text)
	}
	v := parseNumberLiteral(s.tok.Text)
	s.advance()
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
