package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

// Type tags a cached analysis result.
type Type string

const (
	TypeRankings        Type = "rankings"
	TypeTopCalls        Type = "top_calls"
	TypeTopDuration     Type = "top_duration"
	TypeTopSMS          Type = "top_sms"
	TypeSites           Type = "locations"
	TypeLocationChanges Type = "location_changes"
	TypeMobility        Type = "mobility"
	TypeIMEIChanges     Type = "imei_changes"
	TypeDailyStats      Type = "daily_stats"
)

// Types lists every batch-wide analysis in a stable order.
var Types = []Type{
	TypeRankings, TypeTopCalls, TypeTopDuration, TypeTopSMS, TypeSites,
	TypeLocationChanges, TypeMobility, TypeIMEIChanges, TypeDailyStats,
}

// Option adjusts how Compute and RunAll bin time.
type Option func(*settings)

type settings struct {
	loc *time.Location
}

// WithLocation sets the zone site peaks are read in. Daily statistics and
// number profiles stay in UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{loc: time.UTC}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Compute runs the analysis named by t.
func Compute(t Type, records []cdr.Record, opts ...Option) (any, error) {
	set := newSettings(opts)
	switch t {
	case TypeRankings:
		return Rank(records), nil
	case TypeTopCalls:
		return Top(records, MetricCalls), nil
	case TypeTopDuration:
		return Top(records, MetricDuration), nil
	case TypeTopSMS:
		return Top(records, MetricSMS), nil
	case TypeSites:
		return SitesIn(records, set.loc), nil
	case TypeLocationChanges:
		return LocationChanges(records), nil
	case TypeMobility:
		return Mobility(records), nil
	case TypeIMEIChanges:
		return IMEIChanges(records), nil
	case TypeDailyStats:
		return FileStats(records), nil
	}
	return nil, fmt.Errorf("unknown analysis type %q", t)
}

// Decode restores a result of type t from its JSON encoding.
func Decode(t Type, data []byte) (any, error) {
	switch t {
	case TypeRankings:
		return decode[Rankings](data)
	case TypeTopCalls, TypeTopDuration, TypeTopSMS:
		return decode[[]RankEntry](data)
	case TypeSites:
		return decode[[]Site](data)
	case TypeLocationChanges:
		return decode[[]LocationChange](data)
	case TypeMobility:
		return decode[[]MobilityProfile](data)
	case TypeIMEIChanges:
		return decode[[]DeviceHistory](data)
	case TypeDailyStats:
		return decode[Stats](data)
	}
	return nil, fmt.Errorf("unknown analysis type %q", t)
}

func decode[T any](data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Known reports whether t names a batch-wide analysis.
func Known(t Type) bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// RunAll computes every analysis concurrently over the same records. The
// analyzers only read records, so sharing the slice is safe.
func RunAll(ctx context.Context, records []cdr.Record, opts ...Option) (map[Type]any, error) {
	var mu sync.Mutex
	out := make(map[Type]any, len(Types))
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range Types {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Compute(t, records, opts...)
			if err != nil {
				return err
			}
			mu.Lock()
			out[t] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
