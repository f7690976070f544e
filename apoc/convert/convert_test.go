package convert

import (
	"reflect"
	"testing"
)

func TestToBoolean(t *testing.T) {
	cases := map[interface{}]bool{
		"true": true, "yes": true, "1": true, "false": false, 0: false, 1: true,
	}
	for in, want := range cases {
		if got := ToBoolean(in); got != want {
			t.Errorf("ToBoolean(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestToIntegerTruncatesFloat(t *testing.T) {
	if got := ToInteger(3.99); got != 3 {
		t.Errorf("ToInteger(3.99) = %v, want 3", got)
	}
}

func TestToJsonFromJsonMapRoundTrip(t *testing.T) {
	m := map[string]interface{}{"name": "Ada", "age": float64(36)}
	js := ToJson(m)
	got := FromJsonMap(js)
	if !reflect.DeepEqual(got, m) {
		t.Errorf("round trip = %v, want %v", got, m)
	}
}

func TestFromJsonList(t *testing.T) {
	got := FromJsonList(`[1,2,3]`)
	want := []interface{}{float64(1), float64(2), float64(3)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromJsonList = %v, want %v", got, want)
	}
}

func TestToSetRemovesDuplicates(t *testing.T) {
	got := ToSet([]interface{}{1, 2, 2, 3, 3, 3})
	if len(got) != 3 {
		t.Errorf("ToSet length = %d, want 3", len(got))
	}
}
