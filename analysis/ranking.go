// Package analysis derives the report views from a batch's records. Every
// function here is pure: same records in, same result out, and an empty input
// gives an empty result rather than an error.
package analysis

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

// TopLimit caps the combined calls/duration/sms leaderboards.
const TopLimit = 200

type RankEntry struct {
	Rank         int    `json:"rank"`
	Number       string `json:"number"`
	Value        int    `json:"value"`
	DisplayValue string `json:"displayValue"`
}

// Rankings are per-counterpart leaderboards, one per interaction kind.
type Rankings struct {
	OutgoingCalls []RankEntry `json:"outgoingCalls"`
	IncomingCalls []RankEntry `json:"incomingCalls"`
	OutgoingSMS   []RankEntry `json:"outgoingSms"`
	IncomingSMS   []RankEntry `json:"incomingSms"`
}

// Rank counts, for each call type, how many events went to or came from each
// B-party number.
func Rank(records []cdr.Record) Rankings {
	tallies := map[cdr.CallType]*tally{
		cdr.CallOutgoing: newTally(),
		cdr.CallIncoming: newTally(),
		cdr.SMSSent:      newTally(),
		cdr.SMSReceived:  newTally(),
	}
	for _, r := range records {
		if r.CalledNumber == "" {
			continue
		}
		if t, ok := tallies[r.CallType]; ok {
			t.add(r.CalledNumber, 1)
		}
	}
	return Rankings{
		OutgoingCalls: tallies[cdr.CallOutgoing].entries(0, strconv.Itoa),
		IncomingCalls: tallies[cdr.CallIncoming].entries(0, strconv.Itoa),
		OutgoingSMS:   tallies[cdr.SMSSent].entries(0, strconv.Itoa),
		IncomingSMS:   tallies[cdr.SMSReceived].entries(0, strconv.Itoa),
	}
}

type Metric string

const (
	MetricCalls    Metric = "calls"
	MetricDuration Metric = "duration"
	MetricSMS      Metric = "sms"
)

// Top is the combined leaderboard for one metric, keyed by the called number
// or, when that is missing, the caller. At most TopLimit entries.
func Top(records []cdr.Record, m Metric) []RankEntry {
	t := newTally()
	for _, r := range records {
		key := r.Counterpart()
		switch {
		case m == MetricCalls && r.CallType.IsCall():
			t.add(key, 1)
		case m == MetricDuration && r.CallType.IsCall():
			t.add(key, r.Duration)
		case m == MetricSMS && r.CallType.IsSMS():
			t.add(key, 1)
		}
	}
	display := strconv.Itoa
	if m == MetricDuration {
		display = FormatDuration
	}
	return t.entries(TopLimit, display)
}

// FormatDuration renders seconds as "{h}h {m}m", or "{m}m" under an hour.
func FormatDuration(secs int) string {
	if secs < 0 {
		secs = 0
	}
	h, m := secs/3600, (secs%3600)/60
	if h >= 1 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

/* ──────────── tally ──────────── */

// tally sums values per key remembering first-seen order, so sorting by
// value keeps encounter order for ties.
type tally struct {
	order []string
	sums  map[string]int
}

func newTally() *tally { return &tally{sums: map[string]int{}} }

func (t *tally) add(key string, v int) {
	if _, ok := t.sums[key]; !ok {
		t.order = append(t.order, key)
	}
	t.sums[key] += v
}

func (t *tally) entries(limit int, display func(int) string) []RankEntry {
	keys := append([]string(nil), t.order...)
	sort.SliceStable(keys, func(i, j int) bool { return t.sums[keys[i]] > t.sums[keys[j]] })
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]RankEntry, 0, len(keys))
	for i, k := range keys {
		out = append(out, RankEntry{Rank: i + 1, Number: k, Value: t.sums[k], DisplayValue: display(t.sums[k])})
	}
	return out
}
