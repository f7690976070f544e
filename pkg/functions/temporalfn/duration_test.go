package temporalfn

import (
	"testing"
	"time"
)

func TestFromMap_SpillsFractionalMonthsIntoDays(t *testing.T) {
	d := FromMap(map[string]interface{}{"months": 1.5})
	if d.Months != 1 {
		t.Errorf("Months = %v, want 1", d.Months)
	}
	wantDays := int64(15) // 0.5 * daysPerMonth = 15.218... days, truncated
	if d.Days != wantDays {
		t.Errorf("Days = %v, want %v", d.Days, wantDays)
	}
}

func TestFromMap_NeverSpillsUpward(t *testing.T) {
	d := FromMap(map[string]interface{}{"hours": 36})
	if d.Hours != 36 {
		t.Errorf("Hours = %v, want 36 (no upward spill into days)", d.Hours)
	}
	if d.Days != 0 {
		t.Errorf("Days = %v, want 0", d.Days)
	}
}

func TestDuration_StringRoundTrips(t *testing.T) {
	d := Duration{Years: 1, Months: 2, Days: 3, Hours: 4, Minutes: 5, Seconds: 6}
	s := d.String()
	parsed, ok := Parse(s)
	if !ok {
		t.Fatalf("Parse(%q) failed", s)
	}
	if parsed != d {
		t.Errorf("round trip mismatch: got %+v, want %+v", parsed, d)
	}
}

func TestDuration_ZeroStringIsPT0S(t *testing.T) {
	if got := (Duration{}).String(); got != "PT0S" {
		t.Errorf("String() = %q, want PT0S", got)
	}
}

func TestAddTo_AppliesCalendarThenClock(t *testing.T) {
	base := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	d := Duration{Months: 1, Hours: 1}
	got := d.AddTo(base)
	want := time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC) // Jan 31 + 1 month = Mar 2 (Feb has 29 days in 2024)
	if !got.Equal(want) {
		t.Errorf("AddTo = %v, want %v", got, want)
	}
}

func TestBetween_ReturnsAbsoluteDifference(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	d := Between(b, a)
	if d.Days != 1 || d.Hours != 1 {
		t.Errorf("Between = %+v, want Days=1 Hours=1", d)
	}
}

func TestResolveOffset_KnownZone(t *testing.T) {
	tm := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, err := ResolveOffset(tm, "UTC")
	if err != nil {
		t.Fatalf("ResolveOffset: %v", err)
	}
	if s != "+00:00[UTC]" {
		t.Errorf("ResolveOffset = %q, want +00:00[UTC]", s)
	}
}

func TestResolveOffset_UnknownZone(t *testing.T) {
	_, err := ResolveOffset(time.Now(), "Not/AZone")
	if err == nil {
		t.Error("expected error for unknown zone")
	}
}
