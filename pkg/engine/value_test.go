package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.True(t, truthy(true))
	assert.True(t, truthy("anything"))
	assert.True(t, truthy(0))
}

func TestToFloat_AcceptsWideningTypesAndNumericStrings(t *testing.T) {
	cases := []struct {
		in       interface{}
		expected float64
		ok       bool
	}{
		{float64(3.5), 3.5, true},
		{int(7), 7.0, true},
		{int64(9), 9.0, true},
		{"2.5", 2.5, true},
		{"not a number", 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		f, ok := toFloat(c.in)
		assert.Equal(t, c.ok, ok, "input %v", c.in)
		if c.ok {
			assert.Equal(t, c.expected, f, "input %v", c.in)
		}
	}
}

func TestIsNumber(t *testing.T) {
	assert.True(t, isNumber(1))
	assert.True(t, isNumber(int64(1)))
	assert.True(t, isNumber(1.5))
	assert.False(t, isNumber("1"))
	assert.False(t, isNumber(nil))
}

func TestCompareValues_NullFirst(t *testing.T) {
	assert.Equal(t, 0, compareValues(nil, nil))
	assert.Equal(t, -1, compareValues(nil, 1))
	assert.Equal(t, 1, compareValues(1, nil))
}

func TestCompareValues_Numbers(t *testing.T) {
	assert.Equal(t, -1, compareValues(1, 2))
	assert.Equal(t, 1, compareValues(2.0, 1))
	assert.Equal(t, 0, compareValues(3, 3.0))
}

func TestCompareValues_Strings(t *testing.T) {
	assert.Equal(t, -1, compareValues("a", "b"))
	assert.Equal(t, 0, compareValues("x", "x"))
}

func TestValuesEqual_NullNeverEqual(t *testing.T) {
	assert.False(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, 1))
}

func TestValuesEqual_ListsCompareElementwise(t *testing.T) {
	a := []interface{}{1, 2, 3}
	b := []interface{}{1.0, 2.0, 3.0}
	assert.True(t, valuesEqual(a, b))

	c := []interface{}{1, 2}
	assert.False(t, valuesEqual(a, c))
}

func TestDistinctKey_PrefersEntityID(t *testing.T) {
	node := NodeObject("n1", []string{"Person"}, map[string]interface{}{"name": "Ada"})
	assert.Equal(t, "id:n1", distinctKey(node))
	assert.Equal(t, "42", distinctKey(42))
}

func TestSortRows_StableMultiKeyOrdering(t *testing.T) {
	rows := []Row{{"name": "b"}, {"name": "a"}, {"name": "c"}}
	keys := [][]interface{}{{"b"}, {"a"}, {"c"}}
	sortRows(rows, keys, []bool{false})
	assert.Equal(t, "a", rows[0]["name"])
	assert.Equal(t, "b", rows[1]["name"])
	assert.Equal(t, "c", rows[2]["name"])
}
