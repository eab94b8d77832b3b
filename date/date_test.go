package date

import (
	"testing"
	"time"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		// Note that usually time.Time are not comparable (there is a pointer for the timezone) this
		// tests also checks that the property remain true
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestOf(t *testing.T) {
	// A timestamp late in the evening west of Greenwich is already the next
	// day in UTC: Of must follow UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2025, 7, 31, 23, 30, 0, 0, loc)
	if got := Of(ts); got != New(2025, 8, 1) {
		t.Errorf("Of(%v) = %s, want 2025-08-01", ts, got)
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2025-06-01", want: New(2025, 6, 1)},
		{in: "2025-6-1", want: New(2025, 6, 1)},
		{in: "2025-13-01", wantErr: true},
		{in: "yesterday", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) should fail", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestSub(t *testing.T) {
	if got := New(2025, 6, 10).Sub(New(2025, 6, 1)); got != 9 {
		t.Errorf("Sub() = %d, want 9", got)
	}
	if got := New(2025, 6, 1).Sub(New(2025, 6, 10)); got != -9 {
		t.Errorf("Sub() = %d, want -9", got)
	}
	// Day arithmetic is calendar-aware.
	if got := New(2025, 3, 1).Sub(New(2025, 2, 28)); got != 1 {
		t.Errorf("Sub() across February = %d, want 1", got)
	}
}

func TestIsZero(t *testing.T) {
	var zero Date
	if !zero.IsZero() {
		t.Error("the zero Date must report IsZero")
	}
	if New(2025, 6, 1).IsZero() {
		t.Error("a real day must not report IsZero")
	}
}
