// Package engine is the query execution core: it owns the Phase
// Planner, the Strategy Dispatcher, the Row-Set Engine's per-clause
// operators, and the Result Formatter. It holds its collaborators
// through the interfaces pkg/parser.Parser, pkg/storage.Store, and
// pkg/translator.Translator. New takes the Store from the caller, so a
// test double can stand in for storage; the parser and translator are
// always the ones built by parser.New and translator.New.
package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/orneryd/nfgraph/pkg/ast"
	"github.com/orneryd/nfgraph/pkg/cache"
	"github.com/orneryd/nfgraph/pkg/parser"
	"github.com/orneryd/nfgraph/pkg/storage"
	"github.com/orneryd/nfgraph/pkg/translator"
)

// Engine ties the collaborators together behind one Execute entry point.
type Engine struct {
	store      storage.Store
	parser     parser.Parser
	translator translator.Translator
	log        logrus.FieldLogger
	plans      *cache.QueryCache
}

// New wires an Engine from its three collaborators. logger may be nil,
// in which case a logrus.New() default is used.
func New(store storage.Store, logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		store:      store,
		parser:     parser.New(),
		translator: translator.New(),
		log:        logger,
		plans:      cache.NewQueryCache(256, 5*time.Minute),
	}
}

// QueryResponse is the shape returned to callers: either Data+Columns on
// success, or an Error describing what went wrong.
type QueryResponse struct {
	Columns []string                 `json:"columns"`
	Data    []map[string]interface{} `json:"data"`
	Error   *ErrorInfo                `json:"error,omitempty"`
}

// ErrorInfo mirrors the error-reporting shape a Cypher client expects:
// a message plus, for parse errors, a source position.
type ErrorInfo struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// Execute parses, plans, dispatches, and formats cypher against params,
// wrapping every mutation in a single storage transaction (§4.3 "phases
// run sequentially inside a single storage transaction").
func (e *Engine) Execute(ctx context.Context, cypher string, params map[string]interface{}) (*QueryResponse, error) {
	q, err := e.parseCached(cypher)
	if err != nil {
		if pe, ok := err.(*parser.ParseError); ok {
			wrapped := &ParseError{Message: pe.Message, Line: pe.Line, Column: pe.Column}
			return &QueryResponse{Error: &ErrorInfo{Message: wrapped.Error(), Line: wrapped.Line, Column: wrapped.Column}}, nil
		}
		return &QueryResponse{Error: &ErrorInfo{Message: err.Error()}}, nil
	}

	e.log.WithField("clauses", len(q.Clauses)).Debug("dispatching query")

	var resp *QueryResponse
	txErr := e.store.Transaction(ctx, func(ctx context.Context) error {
		var runErr error
		resp, runErr = e.run(ctx, q, params)
		return runErr
	})
	if txErr != nil {
		e.log.WithError(txErr).Warn("query execution failed")
		return &QueryResponse{Error: &ErrorInfo{Message: txErr.Error()}}, nil
	}
	return resp, nil
}

func (e *Engine) parseCached(cypher string) (*ast.Query, error) {
	key := e.plans.Key(cypher, nil)
	if cached, ok := e.plans.Get(key); ok {
		return cached.(*ast.Query), nil
	}
	q, err := e.parser.Parse(cypher)
	if err != nil {
		return nil, err
	}
	e.plans.Put(key, q)
	return q, nil
}

// run dispatches a parsed query through the strategy cascade (§4.1) and
// formats the winning strategy's rows into a QueryResponse (§4.7).
func (e *Engine) run(ctx context.Context, q *ast.Query, params map[string]interface{}) (*QueryResponse, error) {
	ev := NewEvaluator(ctx, e.store, params)

	phases, err := planPhases(q)
	if err != nil {
		return nil, err
	}
	if len(phases) == 0 {
		return &QueryResponse{Columns: []string{}, Data: []map[string]interface{}{}}, nil
	}

	rows, columns, err := dispatch(ctx, e.store, e.translator, ev, q, phases)
	if err != nil {
		return nil, err
	}

	data := formatRows(rows, columns)
	return &QueryResponse{Columns: columns, Data: data}, nil
}

// lastReturnColumns extracts the aliases of the last RETURN clause in q,
// used by the formatter to know which keys to keep and in what order
// (§4.7 "projects only columns declared by RETURN"). It returns nil when
// q has no RETURN clause.
func lastReturnColumns(q *ast.Query) []string {
	for i := len(q.Clauses) - 1; i >= 0; i-- {
		if ret, ok := q.Clauses[i].(*ast.ReturnClause); ok {
			cols := make([]string, len(ret.Items))
			for j, item := range ret.Items {
				cols[j] = item.Alias
			}
			return cols
		}
	}
	return nil
}
