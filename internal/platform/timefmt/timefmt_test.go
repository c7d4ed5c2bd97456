package timefmt

import (
	"testing"
	"time"
)

func TestAgeLabel(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{59 * time.Second, "59s"},
		{60 * time.Second, "1m"},
		{59 * time.Minute, "59m"},
		{3 * time.Hour, "3h"},
		{2 * 24 * time.Hour, "2d"},
		{15 * 24 * time.Hour, "2w"},
		{-5 * time.Second, "0s"},
	}
	for _, c := range cases {
		if got := AgeLabel(now, now.Add(-c.ago)); got != c.want {
			t.Fatalf("AgeLabel(-%s) = %q, want %q", c.ago, got, c.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("07:30")
	if err != nil || d != 7*time.Hour+30*time.Minute {
		t.Fatalf("ParseClock(07:30) = %s, %v", d, err)
	}
	d, err = ParseClock("18:05:10")
	if err != nil || d != 18*time.Hour+5*time.Minute+10*time.Second {
		t.Fatalf("ParseClock(18:05:10) = %s, %v", d, err)
	}
	for _, bad := range []string{"", "7pm", "25:00", "ab:cd"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestToPH_FixedOffset(t *testing.T) {
	utc := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)
	ph := ToPH(utc)
	if ph.Day() != 2 || ph.Hour() != 4 {
		t.Fatalf("expected 2025-01-02 04:00 PHT, got %s", ph)
	}
}
