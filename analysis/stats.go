package analysis

import (
	"sort"
	"time"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

type DailyStat struct {
	Date          string `json:"date"`
	IncomingCalls int    `json:"incomingCalls"`
	OutgoingCalls int    `json:"outgoingCalls"`
	SMSSent       int    `json:"smsSent"`
	SMSReceived   int    `json:"smsReceived"`
	Total         int    `json:"total"`
}

type Stats struct {
	TotalRecords  int         `json:"totalRecords"`
	UniqueNumbers int         `json:"uniqueNumbers"`
	FirstRecord   time.Time   `json:"firstRecord"`
	LastRecord    time.Time   `json:"lastRecord"`
	DateRangeDays int         `json:"dateRangeDays"`
	Daily         []DailyStat `json:"daily"`
}

// FileStats summarises a whole batch with an ascending per-day breakdown.
func FileStats(records []cdr.Record) Stats {
	s := Stats{TotalRecords: len(records), Daily: []DailyStat{}}
	if len(records) == 0 {
		return s
	}
	callers := map[string]struct{}{}
	days := map[string]*DailyStat{}
	s.FirstRecord, s.LastRecord = records[0].Timestamp, records[0].Timestamp

	for _, r := range records {
		callers[r.CallerNumber] = struct{}{}
		if r.Timestamp.Before(s.FirstRecord) {
			s.FirstRecord = r.Timestamp
		}
		if r.Timestamp.After(s.LastRecord) {
			s.LastRecord = r.Timestamp
		}
		key := r.Timestamp.UTC().Format(dayLayout)
		d := days[key]
		if d == nil {
			d = &DailyStat{Date: key}
			days[key] = d
		}
		switch r.CallType {
		case cdr.CallIncoming:
			d.IncomingCalls++
		case cdr.CallOutgoing:
			d.OutgoingCalls++
		case cdr.SMSSent:
			d.SMSSent++
		case cdr.SMSReceived:
			d.SMSReceived++
		}
		d.Total++
	}
	s.UniqueNumbers = len(callers)
	s.DateRangeDays = int(s.LastRecord.Sub(s.FirstRecord) / (24 * time.Hour))
	for _, d := range days {
		s.Daily = append(s.Daily, *d)
	}
	sort.Slice(s.Daily, func(i, j int) bool { return s.Daily[i].Date < s.Daily[j].Date })
	return s
}
