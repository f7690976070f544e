package engine

import (
	"context"
	"strings"

	"github.com/orneryd/nfgraph/apoc/convert"
	"github.com/orneryd/nfgraph/apoc/date"
	"github.com/orneryd/nfgraph/apoc/math"
	"github.com/orneryd/nfgraph/apoc/text"
	"github.com/orneryd/nfgraph/pkg/ast"
	"github.com/orneryd/nfgraph/pkg/storage"
)

// runCall executes CALL procedure(args) YIELD ... per incoming row.
// Procedure names are dispatched against a fixed table: the apoc.*
// namespace delegates to the apoc packages for text/math/date/convert
// utilities (the query language's escape hatch for operations the
// expression evaluator doesn't special-case), and the db.* namespace
// answers schema-introspection questions straight from storage.
func runCall(ctx context.Context, store storage.Store, ev *Evaluator, pc *PhaseContext, c *ast.CallClause) (*PhaseContext, error) {
	name := strings.ToLower(c.Procedure)

	if strings.HasPrefix(name, "db.") {
		return runDBProcedure(ctx, store, pc, name, c.Yield)
	}

	out := clonePC(pc)
	out.Rows = nil
	for _, row := range pc.Rows {
		args := make([]interface{}, len(c.Args))
		for i, a := range c.Args {
			v, err := ev.Eval(a, row)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		result, err := callProcedure(name, args)
		if err != nil {
			return nil, err
		}
		newRow := row.Clone()
		yieldName := "value"
		if len(c.Yield) > 0 {
			yieldName = c.Yield[0]
		}
		newRow[yieldName] = result
		out.Rows = append(out.Rows, newRow)
	}
	return out, nil
}

// callProcedure dispatches one apoc.* call by name against already
// evaluated arguments. Every case here is a thin adapter between the
// loosely-typed Cypher argument list and the apoc package's native Go
// signature; functions whose native shape can't round-trip through
// the CALL/YIELD boundary cleanly (raw []byte, time.Time, or the
// teacher's unfinished stub bodies) are left unwired — see DESIGN.md.
func callProcedure(name string, args []interface{}) (interface{}, error) {
	str := func(i int) string {
		if i < len(args) {
			s, _ := args[i].(string)
			return s
		}
		return ""
	}
	num := func(i int) float64 {
		if i < len(args) {
			f, _ := toFloat(args[i])
			return f
		}
		return 0
	}
	intOf := func(i int) int64 {
		if i < len(args) {
			n, _ := toInt64(args[i])
			return n
		}
		return 0
	}
	strList := func(i int) []string {
		if i >= len(args) {
			return nil
		}
		l, _ := args[i].([]interface{})
		out := make([]string, 0, len(l))
		for _, v := range l {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	anyList := func(i int) []interface{} {
		if i >= len(args) {
			return nil
		}
		l, _ := args[i].([]interface{})
		return l
	}
	floatList := func(i int) []float64 {
		l := anyList(i)
		out := make([]float64, 0, len(l))
		for _, v := range l {
			f, _ := toFloat(v)
			out = append(out, f)
		}
		return out
	}
	intsFromArgs := func() []int64 {
		out := make([]int64, 0, len(args))
		for _, a := range args {
			n, _ := toInt64(a)
			out = append(out, n)
		}
		return out
	}
	floatsFromArgs := func() []float64 {
		out := make([]float64, 0, len(args))
		for _, a := range args {
			f, _ := toFloat(a)
			out = append(out, f)
		}
		return out
	}
	ints := func(vals []int) []interface{} {
		out := make([]interface{}, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return out
	}
	strs := func(vals []string) []interface{} {
		out := make([]interface{}, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return out
	}
	int64s := func(vals []int64) []interface{} {
		out := make([]interface{}, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return out
	}
	float64s := func(vals []float64) []interface{} {
		out := make([]interface{}, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return out
	}
	bools := func(vals []bool) []interface{} {
		out := make([]interface{}, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return out
	}
	maps := func(vals []map[string]interface{}) []interface{} {
		out := make([]interface{}, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return out
	}

	switch name {
	// apoc.text — string shaping, fuzzy matching, padding/trimming.
	case "apoc.text.join":
		return text.Join(strList(0), str(1)), nil
	case "apoc.text.split":
		return strs(text.Split(str(0), str(1))), nil
	case "apoc.text.replace":
		return text.Replace(str(0), str(1), str(2)), nil
	case "apoc.text.regexgroups":
		groups := text.RegexGroups(str(0), str(1))
		out := make([]interface{}, len(groups))
		for i, g := range groups {
			out[i] = strs(g)
		}
		return out, nil
	case "apoc.text.capitalize":
		return text.Capitalize(str(0)), nil
	case "apoc.text.capitalizeall":
		return text.CapitalizeAll(str(0)), nil
	case "apoc.text.decapitalize":
		return text.Decapitalize(str(0)), nil
	case "apoc.text.decapitalizeall":
		return text.DecapitalizeAll(str(0)), nil
	case "apoc.text.swapcase":
		return text.SwapCase(str(0)), nil
	case "apoc.text.camelcase":
		return text.CamelCase(str(0)), nil
	case "apoc.text.snakecase":
		return text.SnakeCase(str(0)), nil
	case "apoc.text.uppercamelcase":
		return text.UpperCamelCase(str(0)), nil
	case "apoc.text.clean":
		return text.Clean(str(0)), nil
	case "apoc.text.comparecleaned":
		return text.CompareCleaned(str(0), str(1)), nil
	case "apoc.text.distance":
		return int64(text.Distance(str(0), str(1))), nil
	case "apoc.text.fuzzymatch":
		return text.FuzzyMatch(str(0), str(1), num(2)), nil
	case "apoc.text.hammingdistance":
		return int64(text.HammingDistance(str(0), str(1))), nil
	case "apoc.text.jarowinklerdistance":
		return text.JaroWinklerDistance(str(0), str(1)), nil
	case "apoc.text.lpad":
		return text.Lpad(str(0), int(intOf(1)), str(2)), nil
	case "apoc.text.rpad":
		return text.Rpad(str(0), int(intOf(1)), str(2)), nil
	case "apoc.text.format":
		return text.Format(str(0), anyList(1)), nil
	case "apoc.text.repeat":
		return text.Repeat(str(0), int(intOf(1))), nil
	case "apoc.text.reverse":
		return text.Reverse(str(0)), nil
	case "apoc.text.slug":
		return text.Slug(str(0)), nil
	case "apoc.text.sorensendicesimilarity":
		return text.SorensenDiceSimilarity(str(0), str(1)), nil
	case "apoc.text.trim":
		return text.Trim(str(0)), nil
	case "apoc.text.ltrim":
		return text.Ltrim(str(0)), nil
	case "apoc.text.rtrim":
		return text.Rtrim(str(0)), nil
	case "apoc.text.urlencode":
		return text.Urlencode(str(0)), nil
	case "apoc.text.urldecode":
		return text.Urldecode(str(0)), nil
	case "apoc.text.indexof":
		return int64(text.IndexOf(str(0), str(1))), nil
	case "apoc.text.indexesof":
		return ints(text.IndexesOf(str(0), str(1))), nil
	case "apoc.text.code":
		return int64(text.Code(str(0))), nil
	case "apoc.text.fromcodepoint":
		return text.FromCodePoint(int(intOf(0))), nil
	case "apoc.text.phonetic":
		return text.Phonetic(str(0)), nil
	case "apoc.text.phoneticdelta":
		return int64(text.PhoneticDelta(str(0), str(1))), nil

	// apoc.math — arithmetic, trig, number theory, descriptive stats.
	case "apoc.math.maxlong":
		return math.MaxLong(intsFromArgs()...), nil
	case "apoc.math.minlong":
		return math.MinLong(intsFromArgs()...), nil
	case "apoc.math.maxdouble":
		return math.MaxDouble(floatsFromArgs()...), nil
	case "apoc.math.mindouble":
		return math.MinDouble(floatsFromArgs()...), nil
	case "apoc.math.round":
		return math.Round(num(0), int(num(1))), nil
	case "apoc.math.ceil":
		return math.Ceil(num(0)), nil
	case "apoc.math.floor":
		return math.Floor(num(0)), nil
	case "apoc.math.abs":
		return math.Abs(num(0)), nil
	case "apoc.math.pow":
		return math.Pow(num(0), num(1)), nil
	case "apoc.math.sqrt":
		return math.Sqrt(num(0)), nil
	case "apoc.math.log":
		return math.Log(num(0)), nil
	case "apoc.math.log10":
		return math.Log10(num(0)), nil
	case "apoc.math.exp":
		return math.Exp(num(0)), nil
	case "apoc.math.sin":
		return math.Sin(num(0)), nil
	case "apoc.math.cos":
		return math.Cos(num(0)), nil
	case "apoc.math.tan":
		return math.Tan(num(0)), nil
	case "apoc.math.asin":
		return math.Asin(num(0)), nil
	case "apoc.math.acos":
		return math.Acos(num(0)), nil
	case "apoc.math.atan":
		return math.Atan(num(0)), nil
	case "apoc.math.atan2":
		return math.Atan2(num(0), num(1)), nil
	case "apoc.math.sinh":
		return math.Sinh(num(0)), nil
	case "apoc.math.cosh":
		return math.Cosh(num(0)), nil
	case "apoc.math.tanh":
		return math.Tanh(num(0)), nil
	case "apoc.math.sigmoid":
		return math.Sigmoid(num(0)), nil
	case "apoc.math.logit":
		return math.Logit(num(0)), nil
	case "apoc.math.clamp":
		return math.Clamp(num(0), num(1), num(2)), nil
	case "apoc.math.lerp":
		return math.Lerp(num(0), num(1), num(2)), nil
	case "apoc.math.normalize":
		return math.Normalize(num(0), num(1), num(2), num(3), num(4)), nil
	case "apoc.math.gcd":
		return math.Gcd(intOf(0), intOf(1)), nil
	case "apoc.math.lcm":
		return math.Lcm(intOf(0), intOf(1)), nil
	case "apoc.math.factorial":
		return math.Factorial(intOf(0)), nil
	case "apoc.math.fibonacci":
		return math.Fibonacci(intOf(0)), nil
	case "apoc.math.isprime":
		return math.IsPrime(intOf(0)), nil
	case "apoc.math.nextprime":
		return math.NextPrime(intOf(0)), nil
	case "apoc.math.random":
		return math.Random(), nil
	case "apoc.math.randomint":
		return math.RandomInt(intOf(0), intOf(1)), nil
	case "apoc.math.percentile":
		return math.Percentile(floatList(0), num(1)), nil
	case "apoc.math.median":
		return math.Median(floatList(0)), nil
	case "apoc.math.mean":
		return math.Mean(floatList(0)), nil
	case "apoc.math.stddev":
		return math.StdDev(floatList(0)), nil
	case "apoc.math.variance":
		return math.Variance(floatList(0)), nil
	case "apoc.math.mode":
		return math.Mode(floatList(0)), nil
	case "apoc.math.range":
		return int64s(math.Range(intOf(0), intOf(1), intOf(2))), nil
	case "apoc.math.sum":
		return math.Sum(floatList(0)), nil
	case "apoc.math.product":
		return math.Product(floatList(0)), nil

	// apoc.date — parsing/formatting, unit conversion, calendar fields.
	case "apoc.date.parse":
		return date.Parse(str(0), str(1)), nil
	case "apoc.date.format":
		return date.Format(intOf(0), str(1)), nil
	case "apoc.date.currenttimestamp":
		return date.CurrentTimestamp(), nil
	case "apoc.date.field":
		return int64(date.Field(intOf(0), str(1))), nil
	case "apoc.date.fields":
		fields := date.Fields(intOf(0))
		out := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			out[k] = int64(v)
		}
		return out, nil
	case "apoc.date.add":
		return date.Add(intOf(0), int(intOf(1)), str(2)), nil
	case "apoc.date.convert":
		return date.Convert(intOf(0), str(1), str(2)), nil
	case "apoc.date.convertformat":
		return date.ConvertFormat(str(0), str(1), str(2)), nil
	case "apoc.date.fromiso8601":
		return date.FromISO8601(str(0)), nil
	case "apoc.date.toiso8601":
		return date.ToISO8601(intOf(0)), nil
	case "apoc.date.toyears":
		return date.ToYears(intOf(0)), nil
	case "apoc.date.systemtimezone":
		return date.SystemTimezone(), nil
	case "apoc.date.parseaszoneddatetime":
		return date.ParseAsZonedDateTime(str(0), str(1)), nil

	// apoc.convert — value coercion and JSON interop.
	case "apoc.convert.toboolean":
		return convert.ToBoolean(valueOrNil(args, 0)), nil
	case "apoc.convert.tointeger":
		return convert.ToInteger(valueOrNil(args, 0)), nil
	case "apoc.convert.tofloat":
		return convert.ToFloat(valueOrNil(args, 0)), nil
	case "apoc.convert.tostring":
		return convert.ToString(valueOrNil(args, 0)), nil
	case "apoc.convert.tolist":
		return convert.ToList(valueOrNil(args, 0)), nil
	case "apoc.convert.tomap":
		m := convert.ToMap(valueOrNil(args, 0))
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	case "apoc.convert.tojson":
		return convert.ToJson(valueOrNil(args, 0)), nil
	case "apoc.convert.fromjsonlist":
		return convert.FromJsonList(str(0)), nil
	case "apoc.convert.fromjsonmap":
		return convert.FromJsonMap(str(0)), nil
	case "apoc.convert.toset":
		return convert.ToSet(anyList(0)), nil
	case "apoc.convert.fromjsonnode":
		return convert.FromJsonNode(str(0)), nil
	case "apoc.convert.tonode":
		m := convert.ToMap(valueOrNil(args, 0))
		return convert.ToNode(m), nil
	case "apoc.convert.torelationship":
		m := convert.ToMap(valueOrNil(args, 0))
		return convert.ToRelationship(m), nil
	case "apoc.convert.getjsonproperty":
		return convert.GetJsonProperty(str(0), str(1)), nil
	case "apoc.convert.getjsonpropertymap":
		return convert.GetJsonPropertyMap(str(0), str(1)), nil
	case "apoc.convert.setjsonproperty":
		return convert.SetJsonProperty(str(0), str(1), valueOrNil(args, 2)), nil
	case "apoc.convert.tointlist":
		return int64s(convert.ToIntList(anyList(0))), nil
	case "apoc.convert.tofloatlist":
		return float64s(convert.ToFloatList(anyList(0))), nil
	case "apoc.convert.tostringlist":
		return strs(convert.ToStringList(anyList(0))), nil
	case "apoc.convert.tobooleanlist":
		return bools(convert.ToBooleanList(anyList(0))), nil
	case "apoc.convert.tonodelist":
		return maps(convert.ToNodeList(anyList(0))), nil
	case "apoc.convert.torelationshiplist":
		return maps(convert.ToRelationshipList(anyList(0))), nil

	default:
		return nil, &EvaluationError{Message: "unknown procedure " + name}
	}
}

func valueOrNil(args []interface{}, i int) interface{} {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// runDBProcedure answers schema-introspection procedures directly
// against the nodes/edges tables, one result row per distinct value,
// bound under the first YIELD name (default "value").
func runDBProcedure(ctx context.Context, store storage.Store, pc *PhaseContext, name string, yield []string) (*PhaseContext, error) {
	yieldName := "value"
	if len(yield) > 0 {
		yieldName = yield[0]
	}

	var sql string
	switch name {
	case "db.labels":
		sql = `SELECT DISTINCT json_each.value AS v FROM nodes, json_each(nodes.label)`
	case "db.relationshiptypes":
		sql = `SELECT DISTINCT type AS v FROM edges`
	case "db.propertykeys":
		sql = `SELECT DISTINCT json_each.key AS v FROM nodes, json_each(nodes.properties)
			UNION
			SELECT DISTINCT json_each.key AS v FROM edges, json_each(edges.properties)`
	default:
		return nil, &EvaluationError{Message: "unknown procedure " + name}
	}

	res, err := store.Execute(ctx, sql, nil)
	if err != nil {
		return nil, storageErr(err)
	}

	out := clonePC(pc)
	out.Rows = nil
	for _, row := range pc.Rows {
		for _, raw := range res.Rows {
			newRow := row.Clone()
			newRow[yieldName] = raw["v"]
			out.Rows = append(out.Rows, newRow)
		}
	}
	return out, nil
}
