package dates

import (
	"testing"
	"time"
)

func TestFromSerial(t *testing.T) {
	cases := []struct {
		in   float64
		want time.Time
	}{
		{45047, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
		{45047.5, time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)},
		{44927.75, time.Date(2023, 1, 1, 18, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		if got := FromSerial(c.in); !got.Equal(c.want) {
			t.Errorf("FromSerial(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParse(t *testing.T) {
	cases := map[string]time.Time{
		"2023-05-01 10:00:00":  time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
		"2023-05-01T10:00:00":  time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
		"2023/5/1 10:00":       time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
		"5/1/2023 3:04 PM":     time.Date(2023, 5, 1, 15, 4, 0, 0, time.UTC),
		"1-May-2023 10:00:00":  time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
		"2023-05-01   10:00:00": time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := Parse(in, time.UTC)
		if !ok || !got.Equal(want) {
			t.Errorf("Parse(%q) = %v %v, want %v", in, got, ok, want)
		}
	}
	if _, ok := Parse("13/05/2023", time.UTC); ok {
		t.Errorf("day-first text is not a primary layout")
	}
}

func TestParseWindow(t *testing.T) {
	cases := map[string]time.Time{
		"13/05/2023":       time.Date(2023, 5, 13, 0, 0, 0, 0, time.UTC),
		"13-05-2023 10:00": time.Date(2023, 5, 13, 10, 0, 0, 0, time.UTC),
		"13.05.23 10:00":   time.Date(2023, 5, 13, 10, 0, 0, 0, time.UTC),
		"1-May-23":         time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := ParseWindow(in, time.UTC, 2010, 2024)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseWindow(%q) = %v %v, want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"2005-01-01", "2030-01-01", "2010-06-01", "nonsense"} {
		if got, ok := ParseWindow(in, time.UTC, 2010, 2024); ok {
			t.Errorf("ParseWindow(%q) = %v, want rejection", in, got)
		}
	}
	if _, ok := ParseWindow("2024-12-31", time.UTC, 2010, 2024); !ok {
		t.Errorf("upper bound is inclusive")
	}
}

func TestLooksLikeDate(t *testing.T) {
	yes := []string{"45047", "45047.25", "2023-05-01", "13/05/2023 10:00", "1-May-2023"}
	no := []string{"", "65", "9876543210", "hello", "Tower A"}
	for _, s := range yes {
		if !LooksLikeDate(s) {
			t.Errorf("LooksLikeDate(%q) = false", s)
		}
	}
	for _, s := range no {
		if LooksLikeDate(s) {
			t.Errorf("LooksLikeDate(%q) = true", s)
		}
	}
}

func TestClock(t *testing.T) {
	cases := map[string]time.Duration{
		"10:30:15": 10*time.Hour + 30*time.Minute + 15*time.Second,
		"10:30":    10*time.Hour + 30*time.Minute,
		"3:04 PM":  15*time.Hour + 4*time.Minute,
		"0.5":      12 * time.Hour,
		"0":        0,
	}
	for in, want := range cases {
		got, ok := Clock(in)
		if !ok || got != want {
			t.Errorf("Clock(%q) = %v %v, want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "1.5", "-0.1", "noon"} {
		if _, ok := Clock(in); ok {
			t.Errorf("Clock(%q) accepted", in)
		}
	}
}
