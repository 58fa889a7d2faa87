// Package parser turns normalized rows into cdr.Record values. It never
// rejects a row for a bad timestamp, location or call type; only a missing
// caller number drops the row.
package parser

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/jalad-shrimali/cdr-insight/cdr"
	"github.com/jalad-shrimali/cdr-insight/dates"
)

// Clock lets tests pin "now".
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Rand is the random source used for synthetic times.
type Rand interface {
	Int63n(n int64) int64
}

type Options struct {
	// Location text timestamps are read in.
	Location *time.Location
	// SerialShift is subtracted from Excel serial timestamps.
	SerialShift time.Duration
	// Rewritten dates must land in MinYear < year <= MaxYear.
	MinYear, MaxYear int
	Rand             Rand
	Clock            Clock
}

// DefaultOptions reads text in UTC+05:00, shifts serials back by the same
// five hours and accepts rewritten years 2011 through 2024.
func DefaultOptions() Options {
	return Options{
		Location:    time.FixedZone("UTC+5", 5*60*60),
		SerialShift: 5 * time.Hour,
		MinYear:     2010,
		MaxYear:     2024,
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		Clock:       SystemClock{},
	}
}

type Parser struct {
	opts Options
}

// New fills nil and zero fields of opts from DefaultOptions. SerialShift is
// used as given, so start from DefaultOptions to keep the five hour shift.
func New(opts Options) *Parser {
	def := DefaultOptions()
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.MinYear == 0 {
		opts.MinYear = def.MinYear
	}
	if opts.MaxYear == 0 {
		opts.MaxYear = def.MaxYear
	}
	if opts.Rand == nil {
		opts.Rand = def.Rand
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	return &Parser{opts: opts}
}

// Parse builds one record per row that has a caller number.
func (p *Parser) Parse(rows []cdr.RawRow, batchID string) []cdr.Record {
	out := make([]cdr.Record, 0, len(rows))
	for _, row := range rows {
		rec, ok := p.Record(row, batchID)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Record parses a single row. ok is false when the caller number is empty.
func (p *Parser) Record(row cdr.RawRow, batchID string) (cdr.Record, bool) {
	caller := field(row, cdr.FieldAParty)
	if caller == "" {
		return cdr.Record{}, false
	}
	rec := cdr.Record{
		CallerNumber: caller,
		CalledNumber: field(row, cdr.FieldBParty),
		IMEI:         field(row, cdr.FieldIMEI),
		CallType:     ClassifyCallType(field(row, cdr.FieldCallType)),
		Duration:     ParseDuration(field(row, cdr.FieldDuration)),
		Timestamp:    p.Timestamp(row).UTC(),
		UploadID:     batchID,
	}
	rec.Location, rec.Latitude, rec.Longitude = SplitLocation(field(row, cdr.FieldSiteLocation))
	if !rec.HasCoordinates() {
		rec.Latitude, rec.Longitude = coordinates(field(row, cdr.FieldLatitude), field(row, cdr.FieldLongitude))
	}
	return rec, true
}

/* ──────────── timestamps ──────────── */

// Timestamp resolves the event time. The result is never the zero time.
func (p *Parser) Timestamp(row cdr.RawRow) time.Time {
	dt := field(row, cdr.FieldDateTime)
	d, tm := field(row, cdr.FieldDate), field(row, cdr.FieldTime)

	if dt != "" {
		if v, ok := serial(dt); ok {
			if t := dates.FromSerial(v).Add(-p.opts.SerialShift); valid(t) {
				return t
			}
		} else if t, ok := p.text(dt); ok {
			return t
		}
	}

	if d != "" {
		if day, ok := p.day(d); ok {
			if tm == "" {
				return day.Add(p.randomClock())
			}
			if c, ok := dates.Clock(tm); ok {
				return day.Add(c)
			}
		}
		if tm != "" {
			if t, ok := p.text(d + " " + tm); ok {
				return t
			}
		}
	}

	now := p.opts.Clock.Now()
	if dt != "" || d != "" || tm != "" {
		y, m, dd := now.In(p.opts.Location).Date()
		return time.Date(y, m, dd, 0, 0, 0, 0, p.opts.Location).Add(p.randomClock())
	}
	return now.Add(-time.Duration(p.opts.Rand.Int63n(int64(30 * 24 * time.Hour))))
}

// text parses a date-time string: direct parse first, windowed rewrites when
// that fails or yields a year before the plausible range.
func (p *Parser) text(s string) (time.Time, bool) {
	if t, ok := dates.Parse(s, p.opts.Location); ok && t.Year() >= p.opts.MinYear {
		return t, true
	}
	return dates.ParseWindow(s, p.opts.Location, p.opts.MinYear, p.opts.MaxYear)
}

// day parses a date-only cell to local midnight.
func (p *Parser) day(s string) (time.Time, bool) {
	var t time.Time
	if v, ok := serial(s); ok {
		src := dates.FromSerial(math.Floor(v))
		t = time.Date(src.Year(), src.Month(), src.Day(), 0, 0, 0, 0, p.opts.Location)
	} else if parsed, ok := p.text(s); ok {
		t = parsed
	} else {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.opts.Location), true
}

func (p *Parser) randomClock() time.Duration {
	return time.Duration(p.opts.Rand.Int63n(24*60*60)) * time.Second
}

// serial reports whether s is a bare number that can be a serial day count.
func serial(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v >= 2958466 {
		return 0, false
	}
	return v, true
}

func valid(t time.Time) bool { return t.Year() >= 1970 }

/* ──────────── fields ──────────── */

// ParseDuration reads whole seconds from "65", "65.7", "1:05" or "0:01:05".
// Anything unreadable or negative is 0.
func ParseDuration(s string) int {
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(math.Floor(v))
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// SplitLocation decomposes "name|lat|lng". With fewer than three segments the
// whole value is the name and no coordinates are returned.
func SplitLocation(s string) (name string, lat, lng *float64) {
	if s == "" {
		return "", nil, nil
	}
	parts := strings.Split(s, "|")
	if len(parts) < 3 {
		return s, nil, nil
	}
	lat, lng = coordinates(strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]))
	return strings.TrimSpace(parts[0]), lat, lng
}

// coordinates returns both values or neither.
func coordinates(latS, lngS string) (*float64, *float64) {
	lat, err1 := strconv.ParseFloat(latS, 64)
	lng, err2 := strconv.ParseFloat(lngS, 64)
	if err1 != nil || err2 != nil || math.IsNaN(lat) || math.IsNaN(lng) {
		return nil, nil
	}
	return &lat, &lng
}

func field(row cdr.RawRow, key string) string { return cdr.Clean(row[key]) }
