package format

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Date renders a long locale-style date ("January 2, 2006").
// The zero time renders as an empty string.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// DateString parses a YYYY-MM-DD date and renders it like Date.
// Unparseable input renders as an empty string.
func DateString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ""
	}
	return Date(t)
}

// TimeOfDay parses an HH:MM:SS[.ffffff] time-of-day string (sub-second
// precision is discarded) and renders it on a 12-hour clock. If the
// input does not parse, the raw input is echoed back unchanged.
func TimeOfDay(raw string) string {
	s := raw
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		s = s[:idx]
	}
	t, err := time.Parse("15:04:05", strings.TrimSpace(s))
	if err != nil {
		return raw
	}
	return t.Format("3:04 PM")
}

// ReadableNumber renders a number with thousands grouping and up to
// two fractional digits. NaN and infinities render as an empty string.
func ReadableNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	s := strconv.FormatFloat(v, 'f', 2, 64)
	// Trim insignificant fraction: "12.50" -> "12.5", "12.00" -> "12"
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx:]
	}

	out := groupThousands(intPart) + fracPart
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// ReadableNumberPtr is the nullable variant of ReadableNumber.
func ReadableNumberPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return ReadableNumber(*v)
}

// CompactNumber renders a number with K/M/B suffixes at the
// 1,000 / 1,000,000 / 1,000,000,000 thresholds, one fractional digit,
// trailing ".0" stripped. NaN and infinities render as an empty string.
func CompactNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return compactScaled(v/1e9) + "B"
	case abs >= 1e6:
		return compactScaled(v/1e6) + "M"
	case abs >= 1e3:
		return compactScaled(v/1e3) + "K"
	default:
		return compactScaled(v)
	}
}

// CompactNumberPtr is the nullable variant of CompactNumber.
func CompactNumberPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return CompactNumber(*v)
}

// Percent renders a 0..100 rate with one fractional digit and a "%"
// suffix; trailing ".0" stripped. NaN renders as an empty string.
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return compactScaled(v) + "%"
}

func compactScaled(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return s
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}

	var b strings.Builder
	b.Grow(n + (n-1)/3)
	lead := n % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
