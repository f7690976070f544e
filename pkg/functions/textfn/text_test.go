package textfn

import (
	"reflect"
	"testing"
)

func TestSubstring(t *testing.T) {
	if got := Substring("hello world", 6, -1); got != "world" {
		t.Errorf("Substring = %q, want %q", got, "world")
	}
	if got := Substring("hello", 1, 3); got != "ell" {
		t.Errorf("Substring = %q, want %q", got, "ell")
	}
	if got := Substring("hi", 10, -1); got != "" {
		t.Errorf("Substring out of range = %q, want empty", got)
	}
}

func TestLeftRight(t *testing.T) {
	if got := Left("hello", 3); got != "hel" {
		t.Errorf("Left = %q, want %q", got, "hel")
	}
	if got := Right("hello", 3); got != "llo" {
		t.Errorf("Right = %q, want %q", got, "llo")
	}
	if got := Left("hi", 10); got != "hi" {
		t.Errorf("Left beyond length = %q, want %q", got, "hi")
	}
}

func TestReverse(t *testing.T) {
	if got := Reverse("hello"); got != "olleh" {
		t.Errorf("Reverse = %q, want %q", got, "olleh")
	}
}

func TestSplit(t *testing.T) {
	if got := Split("a,b,c", ","); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Split = %v", got)
	}
	if got := Split("abc", ""); !reflect.DeepEqual(got, []string{"abc"}) {
		t.Errorf("Split with empty delimiter = %v", got)
	}
}

func TestTrimFamily(t *testing.T) {
	if got := Trim("  hi  "); got != "hi" {
		t.Errorf("Trim = %q", got)
	}
	if got := LTrim("  hi  "); got != "hi  " {
		t.Errorf("LTrim = %q", got)
	}
	if got := RTrim("  hi  "); got != "  hi" {
		t.Errorf("RTrim = %q", got)
	}
}
