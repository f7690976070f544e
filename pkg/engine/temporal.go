package engine

import (
	"regexp"
	"strings"
	"time"

	"github.com/orneryd/nfgraph/pkg/functions/temporalfn"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDateTimeValue(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		s := strings.Trim(val, "'\"")
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// dispatchTemporal handles datetime/date/time/localdatetime/localtime/
// duration/timestamp (§4.2). Temporal values round-trip as ISO 8601
// strings at the evaluator boundary; the engine never holds a
// first-class time.Time in a row.
func dispatchTemporal(name string, args []interface{}) (interface{}, bool, error) {
	switch name {
	case "timestamp":
		return time.Now().UnixMilli(), true, nil
	case "date", "datetime", "localdatetime", "localtime", "time":
		return evalTemporalConstructor(name, args)
	case "duration":
		return evalDuration(args)
	}
	return nil, false, nil
}

func evalTemporalConstructor(kind string, args []interface{}) (interface{}, bool, error) {
	if len(args) == 0 {
		return formatKind(kind, time.Now()), true, nil
	}
	switch v := args[0].(type) {
	case string:
		t, ok := parseDateTimeValue(v)
		if !ok {
			return nil, true, &EvaluationError{Message: kind + "() could not parse " + v}
		}
		return formatKind(kind, t), true, nil
	case map[string]interface{}:
		t, err := timeFromComponents(v)
		if err != nil {
			return nil, true, err
		}
		if zone, ok := v["timezone"].(string); ok {
			s, err := temporalfn.ResolveOffset(t, zone)
			if err != nil {
				return nil, true, &EvaluationError{Message: err.Error()}
			}
			return t.Format("2006-01-02T15:04:05") + s, true, nil
		}
		return formatKind(kind, t), true, nil
	default:
		return nil, true, &EvaluationError{Message: kind + "() requires a string or map argument"}
	}
}

func formatKind(kind string, t time.Time) string {
	switch kind {
	case "date":
		return t.Format("2006-01-02")
	case "time", "localtime":
		return t.Format("15:04:05")
	default:
		return t.Format("2006-01-02T15:04:05")
	}
}

func timeFromComponents(m map[string]interface{}) (time.Time, error) {
	get := func(k string, def int) int {
		if v, ok := m[k]; ok {
			f, _ := toFloat(v)
			return int(f)
		}
		return def
	}
	year := get("year", 0)
	if year == 0 {
		return time.Time{}, &EvaluationError{Message: "temporal map constructor requires at least a year"}
	}
	return time.Date(year, time.Month(get("month", 1)), get("day", 1),
		get("hour", 0), get("minute", 0), get("second", 0),
		get("nanosecond", 0), time.UTC), nil
}

func evalDuration(args []interface{}) (interface{}, bool, error) {
	if len(args) == 0 {
		return nil, true, &EvaluationError{Message: "duration() requires an argument"}
	}
	switch v := args[0].(type) {
	case string:
		d, ok := temporalfn.Parse(v)
		if !ok {
			return nil, true, &EvaluationError{Message: "duration() could not parse " + v}
		}
		return d.String(), true, nil
	case map[string]interface{}:
		return temporalfn.FromMap(v).String(), true, nil
	default:
		return nil, true, &EvaluationError{Message: "duration() requires a string or map argument"}
	}
}

func matchRegex(pattern, s string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, &EvaluationError{Message: "invalid regex pattern: " + err.Error()}
	}
	return re.MatchString(s), nil
}

// aggregateFunctions are handled by the row-set grouping logic (§4.3),
// never by the single-row evaluator.
var aggregateFunctions = map[string]bool{
	"collect": true,
	"count":   true,
	"sum":     true,
	"avg":     true,
	"min":     true,
	"max":     true,
}

func isAggregateFunction(name string) bool {
	return aggregateFunctions[strings.ToLower(name)]
}
