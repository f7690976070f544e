package date

import "testing"

func TestParseFormatRoundTrip(t *testing.T) {
	ts := Parse("2024-01-15", "yyyy-MM-dd")
	if ts == 0 {
		t.Fatal("Parse returned zero timestamp")
	}
	got := Format(ts, "yyyy-MM-dd")
	if got != "2024-01-15" {
		t.Errorf("Format(Parse(...)) = %q, want 2024-01-15", got)
	}
}

func TestParse_InvalidFormatReturnsZero(t *testing.T) {
	if got := Parse("not-a-date", "yyyy-MM-dd"); got != 0 {
		t.Errorf("Parse invalid date = %v, want 0", got)
	}
}

func TestAdd(t *testing.T) {
	base := Parse("2024-01-01", "yyyy-MM-dd")
	plusDay := Add(base, 1, "days")
	if plusDay-base != 86400 {
		t.Errorf("Add(+1 day) delta = %v, want 86400", plusDay-base)
	}
}

func TestToISO8601FromISO8601RoundTrip(t *testing.T) {
	ts := FromISO8601("2024-06-15T12:00:00Z")
	if ts == 0 {
		t.Fatal("FromISO8601 returned zero")
	}
	back := ToISO8601(ts)
	if back != "2024-06-15T12:00:00Z" {
		t.Fatalf("ToISO8601(FromISO8601(...)) = %q, want 2024-06-15T12:00:00Z", back)
	}
}
