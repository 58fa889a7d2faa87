package analysis

import (
	"sort"
	"strconv"
	"time"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

const (
	siteLimit        = 30
	siteMinActivity  = 3
	changeLimit      = 20
	sampleNumbersMax = 5
)

type Site struct {
	Location        string    `json:"location"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	Interactions    int       `json:"interactions"`
	Calls           int       `json:"calls"`
	SMS             int       `json:"sms"`
	IncomingCalls   int       `json:"incomingCalls"`
	OutgoingCalls   int       `json:"outgoingCalls"`
	SMSSent         int       `json:"smsSent"`
	SMSReceived     int       `json:"smsReceived"`
	TotalDuration   int       `json:"totalDuration"`
	DisplayDuration string    `json:"displayDuration"`
	UniqueNumbers   int       `json:"uniqueNumbers"`
	Numbers         []string  `json:"numbers"`
	FirstSeen       time.Time `json:"firstSeen"`
	LastSeen        time.Time `json:"lastSeen"`
	PeakHour        int       `json:"peakHour"`
	PeakDay         string    `json:"peakDay"`
	ActivityScore   int       `json:"activityScore"`
}

// located keeps the records that carry a site name.
func located(records []cdr.Record) []cdr.Record {
	out := make([]cdr.Record, 0, len(records))
	for _, r := range records {
		if r.Location != "" && (r.CallType.IsCall() || r.CallType.IsSMS()) {
			out = append(out, r)
		}
	}
	return out
}

// Sites is SitesIn with peaks binned in UTC.
func Sites(records []cdr.Record) []Site { return SitesIn(records, time.UTC) }

// SitesIn aggregates activity per location. Peak hour and weekday are read on
// the wall clock of loc. Sites with fewer than three interactions are
// dropped; the thirty busiest are returned.
func SitesIn(records []cdr.Record, loc *time.Location) []Site {
	if loc == nil {
		loc = time.UTC
	}
	type acc struct {
		site  *Site
		seen  map[string]struct{}
		hours [24]int
		days  [7]int
	}
	var order []string
	accs := map[string]*acc{}

	for _, r := range located(records) {
		a := accs[r.Location]
		if a == nil {
			a = &acc{
				site: &Site{Location: r.Location, FirstSeen: r.Timestamp, LastSeen: r.Timestamp},
				seen: map[string]struct{}{},
			}
			accs[r.Location] = a
			order = append(order, r.Location)
		}
		s := a.site
		s.Interactions++
		switch r.CallType {
		case cdr.CallIncoming:
			s.Calls++
			s.IncomingCalls++
			s.TotalDuration += r.Duration
		case cdr.CallOutgoing:
			s.Calls++
			s.OutgoingCalls++
			s.TotalDuration += r.Duration
		case cdr.SMSSent:
			s.SMS++
			s.SMSSent++
		case cdr.SMSReceived:
			s.SMS++
			s.SMSReceived++
		}
		if s.Latitude == nil && r.HasCoordinates() {
			s.Latitude, s.Longitude = r.Latitude, r.Longitude
		}
		if n := r.CalledNumber; n != "" {
			if _, ok := a.seen[n]; !ok {
				a.seen[n] = struct{}{}
				s.Numbers = append(s.Numbers, n)
			}
		}
		if r.Timestamp.Before(s.FirstSeen) {
			s.FirstSeen = r.Timestamp
		}
		if r.Timestamp.After(s.LastSeen) {
			s.LastSeen = r.Timestamp
		}
		ts := r.Timestamp.In(loc)
		a.hours[ts.Hour()]++
		a.days[ts.Weekday()]++
	}

	out := make([]Site, 0, len(order))
	for _, loc := range order {
		a := accs[loc]
		s := *a.site
		if s.Interactions < siteMinActivity {
			continue
		}
		h, hc := argmax(a.hours[:])
		d, dc := argmax(a.days[:])
		s.PeakHour = h
		s.PeakDay = time.Weekday(d).String()
		s.ActivityScore = hc + dc
		s.UniqueNumbers = len(s.Numbers)
		s.DisplayDuration = FormatDuration(s.TotalDuration)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Interactions > out[j].Interactions })
	if len(out) > siteLimit {
		out = out[:siteLimit]
	}
	return out
}

/* ──────────── location change timeline ──────────── */

// StayActivity summarises what a subscriber did while at a location, from
// arriving there until the next move or the end of their records.
type StayActivity struct {
	IncomingCalls       int           `json:"incomingCalls"`
	OutgoingCalls       int           `json:"outgoingCalls"`
	SMSSent             int           `json:"smsSent"`
	SMSReceived         int           `json:"smsReceived"`
	IncomingCallNumbers []string      `json:"incomingCallNumbers"`
	OutgoingCallNumbers []string      `json:"outgoingCallNumbers"`
	SentSMSNumbers      []string      `json:"sentSmsNumbers"`
	ReceivedSMSNumbers  []string      `json:"receivedSmsNumbers"`
	TotalDuration       int           `json:"totalDuration"`
	DisplayDuration     string        `json:"displayDuration"`
	TopContact          string        `json:"topContact,omitempty"`
	TopContactCount     int           `json:"topContactCount"`
	UniqueContacts      int           `json:"uniqueContacts"`
	StayDuration        time.Duration `json:"stayDuration"`
	DisplayStay         string        `json:"displayStay"`
	Records             []cdr.Record  `json:"records"`
}

type LocationChange struct {
	Subscriber   string       `json:"subscriber"`
	ChangeTime   time.Time    `json:"changeTime"`
	FromLocation string       `json:"fromLocation"`
	ToLocation   string       `json:"toLocation"`
	DistanceKm   *float64     `json:"distanceKm,omitempty"`
	Activity     StayActivity `json:"activity"`
}

// LocationChanges walks each subscriber's records in time order and emits an
// event whenever the location differs from the previous record. The twenty
// most recent changes across all subscribers are returned.
func LocationChanges(records []cdr.Record) []LocationChange {
	out := []LocationChange{}
	for _, g := range bySubscriber(located(records)) {
		recs := g.records
		var moves []int
		for i := 1; i < len(recs); i++ {
			if recs[i].Location != recs[i-1].Location {
				moves = append(moves, i)
			}
		}
		for k, i := range moves {
			end := len(recs)
			if k+1 < len(moves) {
				end = moves[k+1]
			}
			stay := recs[i:end]
			until := recs[len(recs)-1].Timestamp
			if end < len(recs) {
				until = recs[end].Timestamp
			}
			act := summarise(stay)
			act.StayDuration = until.Sub(recs[i].Timestamp)
			act.DisplayStay = FormatDuration(int(act.StayDuration / time.Second))
			out = append(out, LocationChange{
				Subscriber:   g.number,
				ChangeTime:   recs[i].Timestamp,
				FromLocation: recs[i-1].Location,
				ToLocation:   recs[i].Location,
				DistanceKm:   distanceKm(recs[i-1], recs[i]),
				Activity:     act,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangeTime.After(out[j].ChangeTime) })
	if len(out) > changeLimit {
		out = out[:changeLimit]
	}
	return out
}

func summarise(stay []cdr.Record) StayActivity {
	act := StayActivity{Records: append([]cdr.Record(nil), stay...)}
	contacts := newTally()
	for _, r := range stay {
		n := r.CalledNumber
		switch r.CallType {
		case cdr.CallIncoming:
			act.IncomingCalls++
			act.TotalDuration += r.Duration
			act.IncomingCallNumbers = sample(act.IncomingCallNumbers, n)
		case cdr.CallOutgoing:
			act.OutgoingCalls++
			act.TotalDuration += r.Duration
			act.OutgoingCallNumbers = sample(act.OutgoingCallNumbers, n)
		case cdr.SMSSent:
			act.SMSSent++
			act.SentSMSNumbers = sample(act.SentSMSNumbers, n)
		case cdr.SMSReceived:
			act.SMSReceived++
			act.ReceivedSMSNumbers = sample(act.ReceivedSMSNumbers, n)
		}
		if n != "" {
			contacts.add(n, 1)
		}
	}
	act.UniqueContacts = len(contacts.order)
	if top := contacts.entries(1, strconv.Itoa); len(top) == 1 {
		act.TopContact, act.TopContactCount = top[0].Number, top[0].Value
	}
	act.DisplayDuration = FormatDuration(act.TotalDuration)
	return act
}

// sample appends n to a distinct sample list capped at five entries.
func sample(list []string, n string) []string {
	if n == "" || len(list) >= sampleNumbersMax {
		return list
	}
	for _, v := range list {
		if v == n {
			return list
		}
	}
	return append(list, n)
}

/* ──────────── helpers ──────────── */

type subscriberRecords struct {
	number  string
	records []cdr.Record
}

// bySubscriber groups by caller in first-seen order, each group sorted by time.
func bySubscriber(records []cdr.Record) []subscriberRecords {
	idx := map[string]int{}
	var groups []subscriberRecords
	for _, r := range records {
		i, ok := idx[r.CallerNumber]
		if !ok {
			i = len(groups)
			idx[r.CallerNumber] = i
			groups = append(groups, subscriberRecords{number: r.CallerNumber})
		}
		groups[i].records = append(groups[i].records, r)
	}
	for i := range groups {
		recs := groups[i].records
		sort.SliceStable(recs, func(a, b int) bool { return recs[a].Timestamp.Before(recs[b].Timestamp) })
	}
	return groups
}

// argmax returns the first index holding the largest count.
func argmax(counts []int) (int, int) {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best, counts[best]
}
