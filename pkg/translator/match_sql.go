package translator

import (
	"fmt"
	"strings"

	"github.com/orneryd/nfgraph/pkg/ast"
)

// sqlBuilder accumulates SQL text; kept tiny and allocation-light since
// every query goes through it once per execution.
type sqlBuilder struct {
	sb strings.Builder
}

func newSQLBuilder() *sqlBuilder { return &sqlBuilder{} }

func (b *sqlBuilder) writeString(s string) { b.sb.WriteString(s) }
func (b *sqlBuilder) String() string       { return b.sb.String() }

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// TranslateMatch lowers a pattern list plus WHERE into one SELECT that
// binds each pattern variable to its node/edge columns. bound is
// accepted but not read: the generated SQL has no constraint for
// already-bound variables, and callers pin those ids themselves.
func (t *SQLTranslator) TranslateMatch(patterns []ast.Pattern, where ast.WhereCondition, bound map[string]string) (*Statement, map[string]string, error) {
	b := &matchBuilder{vars: map[string]string{}, bound: bound}

	for _, p := range patterns {
		if err := b.addPattern(p); err != nil {
			return nil, nil, err
		}
	}
	if len(b.from) == 0 {
		return nil, nil, &ErrUnsupported{Reason: "empty pattern list"}
	}

	if where != nil {
		cond, params, err := translateWhere(where, b.vars)
		if err != nil {
			return nil, nil, err
		}
		b.wheres = append(b.wheres, cond)
		b.params = append(b.params, params...)
	}

	cols := make([]string, 0, len(b.vars)*4)
	for name, kind := range b.vars {
		if kind == "edge" {
			cols = append(cols,
				fmt.Sprintf("%s.id AS %s_id", name, name),
				fmt.Sprintf("%s.type AS %s_type", name, name),
				fmt.Sprintf("%s.source_id AS %s_source", name, name),
				fmt.Sprintf("%s.target_id AS %s_target", name, name),
				fmt.Sprintf("%s.properties AS %s_properties", name, name),
			)
		} else {
			cols = append(cols,
				fmt.Sprintf("%s.id AS %s_id", name, name),
				fmt.Sprintf("%s.label AS %s_label", name, name),
				fmt.Sprintf("%s.properties AS %s_properties", name, name),
			)
		}
	}

	sb := newSQLBuilder()
	sb.writeString("SELECT " + strings.Join(cols, ", "))
	sb.writeString(" FROM " + strings.Join(b.from, ", "))
	if len(b.wheres) > 0 {
		sb.writeString(" WHERE " + strings.Join(b.wheres, " AND "))
	}

	return &Statement{SQL: sb.String(), Params: b.params}, b.vars, nil
}

type matchBuilder struct {
	from   []string
	wheres []string
	params []interface{}
	vars   map[string]string // variable name -> "node" | "edge"
	bound  map[string]string
	anon   int
}

func (b *matchBuilder) addPattern(p ast.Pattern) error {
	switch pat := p.(type) {
	case *ast.NodePattern:
		name := b.nodeAlias(pat)
		return b.constrainNode(name, pat)
	case *ast.RelationshipPattern:
		srcName := b.nodeAlias(pat.Source)
		if err := b.constrainNode(srcName, pat.Source); err != nil {
			return err
		}
		dstName := b.nodeAlias(pat.Target)
		if err := b.constrainNode(dstName, pat.Target); err != nil {
			return err
		}
		return b.constrainEdge(srcName, dstName, pat)
	default:
		return &ErrUnsupported{Reason: "path patterns are not translated by the fast path"}
	}
}

func (b *matchBuilder) nodeAlias(n *ast.NodePattern) string {
	name := n.Variable
	if name == "" {
		b.anon++
		name = fmt.Sprintf("_anon%d", b.anon)
	}
	if _, seen := b.vars[name]; !seen {
		b.vars[name] = "node"
		b.from = append(b.from, "nodes AS "+name)
	}
	return name
}

func (b *matchBuilder) constrainNode(name string, n *ast.NodePattern) error {
	for _, label := range n.Labels {
		b.wheres = append(b.wheres, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM json_each(%s.label) WHERE json_each.value = ?)", name))
		b.params = append(b.params, label)
	}
	for prop, expr := range n.Properties {
		lit, ok := expr.(*ast.Literal)
		if !ok {
			return &ErrUnsupported{Reason: "non-literal property in pattern: " + prop}
		}
		b.wheres = append(b.wheres, fmt.Sprintf("json_extract(%s.properties, '$.%s') = ?", name, prop))
		b.params = append(b.params, lit.Value)
	}
	return nil
}

func (b *matchBuilder) constrainEdge(srcName, dstName string, pat *ast.RelationshipPattern) error {
	name := pat.Edge.Variable
	if name == "" {
		b.anon++
		name = fmt.Sprintf("_anon%d", b.anon)
	}
	b.vars[name] = "edge"
	b.from = append(b.from, "edges AS "+name)

	from, to := srcName, dstName
	switch pat.Edge.Direction {
	case ast.DirLeft:
		from, to = dstName, srcName
	case ast.DirNone:
		b.wheres = append(b.wheres, fmt.Sprintf(
			"((%s.source_id = %s.id AND %s.target_id = %s.id) OR (%s.source_id = %s.id AND %s.target_id = %s.id))",
			name, srcName, name, dstName, name, dstName, name, srcName))
		from, to = "", ""
	}
	if from != "" {
		b.wheres = append(b.wheres,
			fmt.Sprintf("%s.source_id = %s.id", name, from),
			fmt.Sprintf("%s.target_id = %s.id", name, to))
	}
	if pat.Edge.Type != "" {
		b.wheres = append(b.wheres, fmt.Sprintf("%s.type = ?", name))
		b.params = append(b.params, pat.Edge.Type)
	}
	for prop, expr := range pat.Edge.Properties {
		lit, ok := expr.(*ast.Literal)
		if !ok {
			return &ErrUnsupported{Reason: "non-literal edge property in pattern"}
		}
		b.wheres = append(b.wheres, fmt.Sprintf("json_extract(%s.properties, '$.%s') = ?", name, prop))
		b.params = append(b.params, lit.Value)
	}
	return nil
}

// translateWhere lowers a restricted WHERE shape (AND/OR/NOT over property
// comparisons and label predicates) to a SQL boolean expression.
func translateWhere(w ast.WhereCondition, vars map[string]string) (string, []interface{}, error) {
	switch c := w.(type) {
	case *ast.CondAnd:
		l, lp, err := translateWhere(c.Left, vars)
		if err != nil {
			return "", nil, err
		}
		r, rp, err := translateWhere(c.Right, vars)
		if err != nil {
			return "", nil, err
		}
		return "(" + l + " AND " + r + ")", append(lp, rp...), nil
	case *ast.CondOr:
		l, lp, err := translateWhere(c.Left, vars)
		if err != nil {
			return "", nil, err
		}
		r, rp, err := translateWhere(c.Right, vars)
		if err != nil {
			return "", nil, err
		}
		return "(" + l + " OR " + r + ")", append(lp, rp...), nil
	case *ast.CondNot:
		inner, p, err := translateWhere(c.Inner, vars)
		if err != nil {
			return "", nil, err
		}
		return "(NOT " + inner + ")", p, nil
	case *ast.CondComparison:
		return translateComparison(c.Comparison, vars)
	default:
		return "", nil, &ErrUnsupported{Reason: "WHERE shape requires row-at-a-time evaluation"}
	}
}

func translateComparison(c *ast.Comparison, vars map[string]string) (string, []interface{}, error) {
	left, err := columnRef(c.Left, vars)
	if err != nil {
		return "", nil, err
	}
	op, err := sqlOp(c.Op)
	if err != nil {
		return "", nil, err
	}
	if c.Op == ast.CmpIsNull {
		return left + " IS NULL", nil, nil
	}
	if c.Op == ast.CmpIsNotNull {
		return left + " IS NOT NULL", nil, nil
	}
	lit, ok := c.Right.(*ast.Literal)
	if !ok {
		return "", nil, &ErrUnsupported{Reason: "comparison against non-literal"}
	}
	return left + " " + op + " ?", []interface{}{lit.Value}, nil
}

func columnRef(e ast.Expression, vars map[string]string) (string, error) {
	prop, ok := e.(*ast.Property)
	if !ok {
		return "", &ErrUnsupported{Reason: "WHERE operand is not a property access"}
	}
	if _, ok := vars[prop.Variable]; !ok {
		return "", &ErrUnsupported{Reason: "unbound variable in WHERE: " + prop.Variable}
	}
	return fmt.Sprintf("json_extract(%s.properties, '$.%s')", prop.Variable, prop.Name), nil
}

func sqlOp(op ast.CompareOp) (string, error) {
	switch op {
	case ast.CmpEq:
		return "=", nil
	case ast.CmpNeq:
		return "!=", nil
	case ast.CmpLt:
		return "<", nil
	case ast.CmpLte:
		return "<=", nil
	case ast.CmpGt:
		return ">", nil
	case ast.CmpGte:
		return ">=", nil
	default:
		return "", &ErrUnsupported{Reason: "comparison operator requires row-at-a-time evaluation"}
	}
}
