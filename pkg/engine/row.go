package engine

// Row is a mapping from variable name to value, the unit of a
// PhaseContext's row list. Go maps aren't ordered, but nothing in this
// engine relies on key iteration order for rows; ordering that matters
// (ORDER BY, RETURN column order) is tracked separately.
type Row map[string]interface{}

// Clone returns a shallow copy of the row, used whenever a clause binds
// a new variable without disturbing rows other branches still hold a
// reference to (e.g. list comprehension's per-element clone, §4.2).
func (r Row) Clone() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

const (
	fieldID    = "_nf_id"
	fieldStart = "_nf_start"
	fieldEnd   = "_nf_end"
	fieldType  = "_nf_type"
)

// NodeObject builds the canonical in-row representation of a node: user
// properties plus the reserved id field.
func NodeObject(id string, labels []string, props map[string]interface{}) Row {
	out := make(Row, len(props)+2)
	for k, v := range props {
		out[k] = v
	}
	out[fieldID] = id
	out["_nf_labels"] = labels
	return out
}

// EdgeObject builds the canonical in-row representation of an edge.
func EdgeObject(id, edgeType, start, end string, props map[string]interface{}) Row {
	out := make(Row, len(props)+4)
	for k, v := range props {
		out[k] = v
	}
	out[fieldID] = id
	out[fieldType] = edgeType
	out[fieldStart] = start
	out[fieldEnd] = end
	return out
}

// entityID extracts _nf_id from a node/edge-object value, or "" if v
// isn't one.
func entityID(v interface{}) (string, bool) {
	m, ok := v.(Row)
	if !ok {
		if mm, ok2 := v.(map[string]interface{}); ok2 {
			m = Row(mm)
		} else {
			return "", false
		}
	}
	id, ok := m[fieldID].(string)
	return id, ok
}

// PhaseContext is the evolving row set between two clauses within one
// execution phase: an ordered row list plus side-indexes for the last
// bound id/value per variable (§3). The row list is authoritative; the
// side-indexes are convenience lookups the MERGE/multi-phase engines use
// to avoid re-deriving a binding from the row list on every access.
type PhaseContext struct {
	Rows    []Row
	NodeIDs map[string]string
	EdgeIDs map[string]string
	Values  map[string]interface{}
}

// NewPhaseContext returns a freshly-initialized context holding exactly
// one empty row, so that a clause producing rows can execute its body
// against that unit row (§3).
func NewPhaseContext() *PhaseContext {
	return &PhaseContext{
		Rows:    []Row{{}},
		NodeIDs: map[string]string{},
		EdgeIDs: map[string]string{},
		Values:  map[string]interface{}{},
	}
}

// bind records a variable's value in the Values side-index and, for a
// node or edge object, its id in NodeIDs or EdgeIDs (the side-index is a
// convenience last write). It does not touch the row list.
func (pc *PhaseContext) bind(v string, val interface{}) {
	pc.Values[v] = val
	if id, ok := entityID(val); ok {
		if row, ok := val.(Row); ok {
			if _, isEdge := row[fieldStart]; isEdge {
				pc.EdgeIDs[v] = id
				return
			}
		}
		pc.NodeIDs[v] = id
	}
}

// Vars returns the set of variables bound in the first row (all rows in
// a well-formed context share the same variable set).
func (pc *PhaseContext) Vars() map[string]bool {
	out := map[string]bool{}
	if len(pc.Rows) == 0 {
		return out
	}
	for k := range pc.Rows[0] {
		out[k] = true
	}
	return out
}
