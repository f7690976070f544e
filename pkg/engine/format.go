package engine

import "encoding/json"

// formatRows implements the Result Formatter (§4.7): deep-parses JSON
// string values, normalizes single-element label arrays to a bare
// string, and projects only the declared columns in order (dropping
// any extras a phase's side-channel bindings left on the row, such as
// the multi-phase resolver's reserved `_id_*` id-capture columns).
func formatRows(rows []Row, columns []string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		formatted := make(map[string]interface{}, len(columns))
		for _, col := range columns {
			formatted[col] = formatValue(row[col])
		}
		out = append(out, formatted)
	}
	return out
}

// formatValue deep-parses string values that happen to be valid JSON
// (the shape every property/label column arrives in from SQLite) and
// normalizes a single-element label list to its bare string.
func formatValue(v interface{}) interface{} {
	switch val := v.(type) {
	case deletedEntity:
		// Only reachable when a deleted variable is never re-evaluated
		// downstream (Eval raises EntityNotFound on any reference before
		// formatting runs); falls back to the pre-fix null binding.
		return nil
	case Row:
		return formatEntityMap(val)
	case map[string]interface{}:
		return formatEntityMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			out[i] = formatValue(vv)
		}
		return out
	case string:
		return decodeJSONValue(val)
	default:
		return val
	}
}

// decodeJSONValue deep-parses a raw storage column value if it is a
// JSON-encoded string (object or array); any other shape is returned
// unchanged, including plain scalar strings that merely look like text.
func decodeJSONValue(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if len(s) == 0 || (s[0] != '{' && s[0] != '[') {
		return s
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return s
	}
	return formatValue(decoded)
}

// formatEntityMap strips the reserved `_nf_*` fields a node/edge-object
// carries internally and exposes only user properties plus a normalized
// `labels` (nodes) or `type` (edges) key, per §6: callers see plain
// property maps, never `_nf_id`. Both the fast-path translator's
// json_patch-built objects and the general path's NodeObject/EdgeObject
// rows arrive here carrying the same reserved keys, so one function
// produces an identical boundary shape for either execution path.
func formatEntityMap(val map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(val))
	for k, vv := range val {
		switch k {
		case fieldID, fieldStart, fieldEnd:
			continue
		case "_nf_labels":
			out["labels"] = normalizeLabels(vv)
		case fieldType:
			out["type"] = formatValue(vv)
		default:
			out[k] = formatValue(vv)
		}
	}
	return out
}

func normalizeLabels(v interface{}) interface{} {
	list, ok := v.([]string)
	if !ok {
		if generic, ok := v.([]interface{}); ok {
			list = make([]string, 0, len(generic))
			for _, g := range generic {
				if s, ok := g.(string); ok {
					list = append(list, s)
				}
			}
		}
	}
	if len(list) == 1 {
		return list[0]
	}
	out := make([]interface{}, len(list))
	for i, l := range list {
		out[i] = l
	}
	return out
}
