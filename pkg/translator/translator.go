// Package translator lowers a restricted shape of Cypher AST — a single
// MATCH (optionally filtered) followed by a non-aggregating RETURN — into
// one SQL statement against the nodes/edges tables. It is the fast-path
// collaborator the strategy dispatcher calls when a query needs nothing
// fancier: no aggregation, no mutation, no multi-phase materialization.
//
// The translator never touches the storage engine itself; it only
// produces SQL text and positional parameters for the caller to run
// through a storage.Store.
package translator

import (
	"fmt"
	"strings"

	"github.com/orneryd/nfgraph/pkg/ast"
)

// Statement is one SQL statement ready to execute.
type Statement struct {
	SQL    string
	Params []interface{}
}

// Translation is the result of lowering a Query.
type Translation struct {
	Statements    []Statement
	ReturnColumns []string
}

// Translator is the black-box collaborator the engine invokes for
// fast-path queries and for per-row MATCH lookups inside phased execution.
type Translator interface {
	// Translate lowers an entire single-phase query (MATCH...RETURN) to
	// one statement. Returns ErrUnsupported if the query needs a
	// specialized or multi-phase strategy.
	Translate(q *ast.Query) (*Translation, error)

	// TranslateMatch lowers just a MATCH's patterns and WHERE into a
	// SELECT that binds every pattern variable to a node/edge id, for use
	// by the row-set engine's per-row pattern lookup and by multi-phase
	// id-capture (§4.6 Phase A).
	TranslateMatch(patterns []ast.Pattern, where ast.WhereCondition, bound map[string]string) (*Statement, map[string]string, error)
}

// ErrUnsupported is returned when a query's shape exceeds what this
// translator can express as a single statement; the dispatcher falls
// through to a specialized or multi-phase strategy in that case.
type ErrUnsupported struct {
	Reason string
}

func (e *ErrUnsupported) Error() string {
	return "translator: unsupported query shape: " + e.Reason
}

// SQLTranslator is the reference implementation.
type SQLTranslator struct{}

// New returns the reference SQLTranslator.
func New() *SQLTranslator {
	return &SQLTranslator{}
}

// Translate implements Translator.
func (t *SQLTranslator) Translate(q *ast.Query) (*Translation, error) {
	if len(q.Clauses) == 0 {
		return nil, &ErrUnsupported{Reason: "empty query"}
	}

	match, ok := q.Clauses[0].(*ast.MatchClause)
	if !ok || match.Optional {
		return nil, &ErrUnsupported{Reason: "first clause is not a plain MATCH"}
	}

	var ret *ast.ReturnClause
	for _, c := range q.Clauses[1:] {
		switch v := c.(type) {
		case *ast.ReturnClause:
			ret = v
		default:
			return nil, &ErrUnsupported{Reason: "clause beyond MATCH/RETURN"}
		}
	}
	if ret == nil {
		return nil, &ErrUnsupported{Reason: "no RETURN clause"}
	}
	for _, item := range ret.Items {
		if fn, ok := item.Expr.(*ast.FunctionCall); ok && isAggregateName(fn.Name) {
			return nil, &ErrUnsupported{Reason: "aggregate in RETURN"}
		}
	}
	if ret.OrderBy != nil || ret.Skip != nil || ret.Limit != nil || ret.Distinct {
		// ORDER BY/SKIP/LIMIT/DISTINCT all require the full row set before
		// they can be applied (§4.7's applyOrderSkipLimit); this translator
		// only ever lowers to a single SELECT with no post-processing, so
		// it defers to the phased strategy rather than silently dropping
		// them.
		return nil, &ErrUnsupported{Reason: "RETURN carries ORDER BY/SKIP/LIMIT/DISTINCT"}
	}

	stmt, vars, err := t.TranslateMatch(match.Patterns, match.Where, nil)
	if err != nil {
		return nil, err
	}

	b := newSQLBuilder()
	b.writeString("SELECT ")
	cols := make([]string, 0, len(ret.Items))
	for i, item := range ret.Items {
		col, err := projectReturnItem(item, vars)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			b.writeString(", ")
		}
		alias := item.Alias
		if alias == "" {
			alias = fmt.Sprintf("col%d", i)
		}
		b.writeString(col + " AS " + quoteIdent(alias))
		cols = append(cols, alias)
	}
	b.writeString(" FROM (" + stmt.SQL + ")")
	fromAlias := " _nf_base"
	b.writeString(fromAlias)

	return &Translation{
		Statements:    []Statement{{SQL: b.String(), Params: stmt.Params}},
		ReturnColumns: cols,
	}, nil
}

func isAggregateName(name string) bool {
	switch strings.ToLower(name) {
	case "count", "sum", "avg", "min", "max", "collect":
		return true
	}
	return false
}

// projectReturnItem renders a RETURN item as a SQL expression over the
// columns TranslateMatch produced (variable_id, variable_label,
// variable_properties, or variable_type/source/target for edges). Node and
// edge variables are projected as the stored properties object patched with
// the reserved fields (`_nf_id`, `_nf_labels`/`_nf_type`/`_nf_start`/
// `_nf_end`) so the row shape matches what the general phased path's
// NodeObject/EdgeObject builds — the result formatter (§4.7) strips the
// reserved keys from both paths identically.
func projectReturnItem(item ast.ProjectionItem, vars map[string]string) (string, error) {
	switch e := item.Expr.(type) {
	case *ast.Variable:
		kind, ok := vars[e.Name]
		if !ok {
			return "", &ErrUnsupported{Reason: "unbound variable in RETURN: " + e.Name}
		}
		if kind == "edge" {
			return fmt.Sprintf(
				"json_patch(%s_properties, json_object('_nf_id', %s_id, '_nf_type', %s_type, '_nf_start', %s_source, '_nf_end', %s_target))",
				e.Name, e.Name, e.Name, e.Name, e.Name), nil
		}
		return fmt.Sprintf(
			"json_patch(%s_properties, json_object('_nf_id', %s_id, '_nf_labels', json(%s_label)))",
			e.Name, e.Name, e.Name), nil
	case *ast.Property:
		if _, ok := vars[e.Variable]; !ok {
			return "", &ErrUnsupported{Reason: "unbound variable in RETURN: " + e.Variable}
		}
		return fmt.Sprintf("json_extract(%s_properties, '$.%s')", e.Variable, e.Name), nil
	default:
		return "", &ErrUnsupported{Reason: "non-trivial RETURN expression"}
	}
}
