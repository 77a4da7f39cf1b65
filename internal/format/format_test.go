package format

import (
	"math"
	"testing"
	"time"
)

func TestReadableNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1000000, "1,000,000"},
		{1234.5, "1,234.5"},
		{1234.567, "1,234.57"},
		{999, "999"},
		{0, "0"},
		{-56789, "-56,789"},
		{math.NaN(), ""},
	}

	for _, c := range cases {
		if got := ReadableNumber(c.in); got != c.want {
			t.Errorf("ReadableNumber(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReadableNumberPtr(t *testing.T) {
	if got := ReadableNumberPtr(nil); got != "" {
		t.Errorf("ReadableNumberPtr(nil) = %q, want empty", got)
	}

	v := 2500.0
	if got := ReadableNumberPtr(&v); got != "2,500" {
		t.Errorf("ReadableNumberPtr(&2500) = %q, want 2,500", got)
	}
}

func TestCompactNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1500, "1.5K"},
		{1000, "1K"},
		{2500000, "2.5M"},
		{1000000000, "1B"},
		{999, "999"},
		{12.3, "12.3"},
		{math.NaN(), ""},
	}

	for _, c := range cases {
		if got := CompactNumber(c.in); got != c.want {
			t.Errorf("CompactNumber(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTimeOfDay(t *testing.T) {
	// Sub-second precision is discarded
	got := TimeOfDay("00:57:36.280378")
	if got != "12:57 AM" {
		t.Errorf("TimeOfDay(00:57:36.280378) = %q, want 12:57 AM", got)
	}

	if got := TimeOfDay("14:05:00"); got != "2:05 PM" {
		t.Errorf("TimeOfDay(14:05:00) = %q, want 2:05 PM", got)
	}

	// Unparseable input is echoed back, never an error
	if got := TimeOfDay("not-a-time"); got != "not-a-time" {
		t.Errorf("TimeOfDay(not-a-time) = %q, want raw echo", got)
	}

	if got := TimeOfDay(""); got != "" {
		t.Errorf("TimeOfDay(\"\") = %q, want empty", got)
	}
}

func TestDate(t *testing.T) {
	d := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	if got := Date(d); got != "March 9, 2026" {
		t.Errorf("Date = %q, want March 9, 2026", got)
	}

	if got := Date(time.Time{}); got != "" {
		t.Errorf("Date(zero) = %q, want empty", got)
	}
}

func TestDateString(t *testing.T) {
	if got := DateString("2025-12-01"); got != "December 1, 2025" {
		t.Errorf("DateString = %q, want December 1, 2025", got)
	}

	if got := DateString("31/12/2025"); got != "" {
		t.Errorf("DateString(invalid) = %q, want empty", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(72.5); got != "72.5%" {
		t.Errorf("Percent(72.5) = %q", got)
	}
	if got := Percent(80); got != "80%" {
		t.Errorf("Percent(80) = %q", got)
	}
	if got := Percent(math.NaN()); got != "" {
		t.Errorf("Percent(NaN) = %q, want empty", got)
	}
}
