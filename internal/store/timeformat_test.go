package store

import (
	"testing"
	"time"
)

func TestFormatTimeLexicalOrderMatchesChronological(t *testing.T) {
	base := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	ordered := []time.Time{
		base.Add(-500 * time.Millisecond),
		base,
		base.Add(1 * time.Nanosecond),
		base.Add(250 * time.Millisecond),
		base.Add(time.Second),
	}

	for i := 1; i < len(ordered); i++ {
		earlier := formatTime(ordered[i-1])
		later := formatTime(ordered[i])
		if !(earlier < later) {
			t.Fatalf("formatTime ordering broken: %q should sort before %q", earlier, later)
		}
	}
}

func TestFormatTimeWholeSecondSortsBeforeFractional(t *testing.T) {
	whole := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	fractional := whole.Add(100 * time.Millisecond)

	if got := formatTime(whole); len(got) != len(formatTime(fractional)) {
		t.Fatalf("layout must be fixed width, got %q vs %q", got, formatTime(fractional))
	}
	if !(formatTime(whole) < formatTime(fractional)) {
		t.Fatalf("whole-second %q must sort before fractional %q", formatTime(whole), formatTime(fractional))
	}
}

func TestFormatTimeRoundTrips(t *testing.T) {
	stamp := time.Date(2026, 8, 31, 10, 30, 0, 123456789, time.FixedZone("CEST", 2*3600))

	parsed, err := parseTimeString(formatTime(stamp))
	if err != nil {
		t.Fatalf("parse formatted time: %v", err)
	}
	if !parsed.Equal(stamp) {
		t.Fatalf("round trip changed instant: %v != %v", parsed, stamp)
	}
	if parsed.Location() != time.UTC {
		t.Fatalf("stored timestamps must be UTC, got %v", parsed.Location())
	}
}
