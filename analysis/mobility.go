package analysis

import (
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

const mobilityLimit = 50

type MobilityLevel string

const (
	MobilityHigh   MobilityLevel = "high"
	MobilityMedium MobilityLevel = "medium"
	MobilityLow    MobilityLevel = "low"
)

// Level classifies a change count: more than 15 is high, more than 8 medium.
func Level(changes int) MobilityLevel {
	switch {
	case changes > 15:
		return MobilityHigh
	case changes > 8:
		return MobilityMedium
	}
	return MobilityLow
}

type Move struct {
	FromLocation  string    `json:"fromLocation"`
	ToLocation    string    `json:"toLocation"`
	Timestamp     time.Time `json:"timestamp"`
	CallsAfter    int       `json:"callsAfter"`
	DurationAfter int       `json:"durationAfter"`
	DistanceKm    *float64  `json:"distanceKm,omitempty"`
}

type MobilityProfile struct {
	Subscriber      string        `json:"subscriber"`
	TotalChanges    int           `json:"totalChanges"`
	UniqueLocations int           `json:"uniqueLocations"`
	TotalCalls      int           `json:"totalCalls"`
	MobilityLevel   MobilityLevel `json:"mobilityLevel"`
	FirstSeen       time.Time     `json:"firstSeen"`
	LastSeen        time.Time     `json:"lastSeen"`
	Changes         []Move        `json:"changes"`
}

// Mobility ranks subscribers by how often the location of their calls
// changes. Each move carries the calls and talk time made at the new
// location before the next move.
func Mobility(records []cdr.Record) []MobilityProfile {
	var calls []cdr.Record
	for _, r := range records {
		if r.CallType.IsCall() && r.Location != "" {
			calls = append(calls, r)
		}
	}

	out := []MobilityProfile{}
	for _, g := range bySubscriber(calls) {
		recs := g.records
		p := MobilityProfile{
			Subscriber: g.number,
			TotalCalls: len(recs),
			FirstSeen:  recs[0].Timestamp,
			LastSeen:   recs[len(recs)-1].Timestamp,
		}
		places := map[string]struct{}{recs[0].Location: {}}

		var open *Move
		n, dur := 0, 0
		closeOut := func() {
			if open != nil {
				open.CallsAfter, open.DurationAfter = n, dur
				p.Changes = append(p.Changes, *open)
			}
		}
		for i := 1; i < len(recs); i++ {
			prev, cur := recs[i-1], recs[i]
			if cur.Location != prev.Location {
				closeOut()
				open = &Move{
					FromLocation: prev.Location,
					ToLocation:   cur.Location,
					Timestamp:    cur.Timestamp,
					DistanceKm:   distanceKm(prev, cur),
				}
				n, dur = 0, 0
				places[cur.Location] = struct{}{}
			}
			n++
			dur += cur.Duration
		}
		closeOut()

		if len(p.Changes) == 0 {
			continue
		}
		p.TotalChanges = len(p.Changes)
		p.UniqueLocations = len(places)
		p.MobilityLevel = Level(p.TotalChanges)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalChanges > out[j].TotalChanges })
	if len(out) > mobilityLimit {
		out = out[:mobilityLimit]
	}
	return out
}

// distanceKm is the great-circle distance between two records, nil unless
// both carry coordinates.
func distanceKm(a, b cdr.Record) *float64 {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return nil
	}
	d := geo.Distance(orb.Point{*a.Longitude, *a.Latitude}, orb.Point{*b.Longitude, *b.Latitude}) / 1000
	return &d
}
