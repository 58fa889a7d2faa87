// Package dates parses the date encodings found in operator CDR exports:
// ISO and US style text, day-first rewrites with two-digit years, and Excel
// serial day numbers.
package dates

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Layouts tried first, month-first like a browser Date parser.
var primaryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"2-Jan-2006 15:04:05",
	"2-Jan-2006 15:04",
	"2-Jan-2006",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Mon Jan 2 15:04:05 2006",
	time.RFC1123,
}

// Day-first and two-digit-year layouts used when the primary parse fails or
// lands on an implausible year.
var rewriteLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 3:04:05 PM",
	"2/1/2006 3:04 PM",
	"2/1/2006",
	"2/1/06 15:04:05",
	"2/1/06 15:04",
	"2/1/06",
	"1/2/06 15:04:05",
	"1/2/06 15:04",
	"1/2/06",
	"2006/2/1 15:04:05",
	"2006/2/1",
	"2-Jan-06 15:04:05",
	"2-Jan-06 15:04",
	"2-Jan-06",
}

var allLayouts = append(append([]string{}, primaryLayouts...), rewriteLayouts...)

var clockLayouts = []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "15:04:05.000"}

// Parse tries the primary layouts in loc.
func Parse(s string, loc *time.Location) (time.Time, bool) {
	return tryLayouts(spaceCollapse(s), primaryLayouts, loc)
}

// ParseWindow retries s with separator and ordering rewrites and accepts the
// first result whose year satisfies minYear < year <= maxYear.
func ParseWindow(s string, loc *time.Location, minYear, maxYear int) (time.Time, bool) {
	for _, cand := range variants(s) {
		for _, l := range allLayouts {
			t, err := time.ParseInLocation(l, cand, loc)
			if err != nil {
				continue
			}
			if y := t.Year(); y > minYear && y <= maxYear {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// LooksLikeDate is the loose check the schema normalizer samples with.
func LooksLikeDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return IsSerialRange(v)
	}
	for _, cand := range variants(s) {
		if _, ok := tryLayouts(cand, allLayouts, time.UTC); ok {
			return true
		}
	}
	return false
}

/* ──────────── excel serials ──────────── */

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// IsSerialRange reports whether v falls in the serial-day band that covers
// roughly 2009 to 2036.
func IsSerialRange(v float64) bool { return v >= 40000 && v <= 50000 }

// FromSerial converts an Excel serial day count to the wall-clock time it
// encodes, expressed as if it were UTC.
func FromSerial(v float64) time.Time {
	secs := math.Round(v * 86400)
	return excelEpoch.Add(time.Duration(secs) * time.Second)
}

// Clock parses a time-of-day cell, either as text or as an Excel day fraction.
func Clock(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 0 || v >= 1 {
			return 0, false
		}
		return time.Duration(math.Round(v*86400)) * time.Second, true
	}
	for _, l := range clockLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}

/* ──────────── helpers ──────────── */

func tryLayouts(s string, layouts []string, loc *time.Location) (time.Time, bool) {
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// variants returns s plus a copy whose date separators are rewritten to '/'.
func variants(s string) []string {
	s = spaceCollapse(strings.TrimSpace(s))
	out := []string{s}
	date, rest, _ := strings.Cut(s, " ")
	if strings.ContainsAny(date, ".-") && !strings.ContainsAny(date, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		alt := strings.NewReplacer(".", "/", "-", "/").Replace(date)
		if rest != "" {
			alt += " " + rest
		}
		out = append(out, alt)
	}
	return out
}

func spaceCollapse(s string) string { return strings.Join(strings.Fields(s), " ") }
