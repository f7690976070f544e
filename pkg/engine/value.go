package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orneryd/nfgraph/pkg/convert"
)

// truthy implements the engine's two-valued approximation of Cypher's
// three-valued logic: null is treated as false rather than propagated as
// an undefined third value (§4.2, §9 Open Questions — a documented
// deviation from Neo4j, not a bug).
func truthy(v interface{}) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	default:
		return true
	}
}

// asList returns v and true when v is a list, else nil and false. `+`
// concatenation (§4.2) uses it and wraps a scalar operand into a
// one-element list itself.
func asList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	default:
		return nil, false
	}
}

// toFloat coerces a property/parameter value to float64 for arithmetic
// and numeric comparisons, delegating the actual type-switch to
// convert.ToFloat64 so every numeric width SQLite can hand back (and
// numeric strings arriving from JSON-decoded properties) are accepted
// the same way the rest of the codebase converts them.
func toFloat(v interface{}) (float64, bool) {
	return convert.ToFloat64(v)
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// compareValues implements Cypher's documented total order for ORDER BY
// (§4.7): null first, numbers by value, strings by byte-wise comparison
// (documented as locale-insensitive since this engine doesn't ship ICU
// collation), booleans false<true, and otherwise by string form.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if isNumber(a) && isNumber(b) {
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			if ab == bb {
				return 0
			}
			if !ab {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// valuesEqual implements `=` / `<>` over arbitrary values, used both by
// the evaluator's Comparison case and by DISTINCT/MERGE property
// matching.
func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return false // null = null is false, per comparison-with-null rule (§4.2)
	}
	if isNumber(a) && isNumber(b) {
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		return af == bf
	}
	if al, ok := a.([]interface{}); ok {
		bl, ok := b.([]interface{})
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !valuesEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// distinctKey produces the key DISTINCT groups by: `_nf_id` for
// node/edge values, JSON-ish string form otherwise (§4.7, §9 Open
// Questions — documented non-Cypher-standard fallback, kept
// deliberately).
func distinctKey(v interface{}) string {
	if id, ok := entityID(v); ok {
		return "id:" + id
	}
	return fmt.Sprint(v)
}

// sortRows sorts rows in place by a list of (expression value, desc)
// keys, already evaluated into parallel slices by the caller.
func sortRows(rows []Row, keys [][]interface{}, desc []bool) {
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		for k := range keys {
			c := compareValues(keys[a][k], keys[b][k])
			if desc[k] {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	sorted := make([]Row, len(rows))
	sortedKeys := make([][]interface{}, len(rows))
	for newPos, oldPos := range idx {
		sorted[newPos] = rows[oldPos]
		sortedKeys[newPos] = keys[oldPos]
	}
	copy(rows, sorted)
	copy(keys, sortedKeys)
}
