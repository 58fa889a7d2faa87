package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

const (
	profileDays   = 90
	profileWindow = profileDays * 24 * time.Hour
	dayLayout     = "2006-01-02"
)

type DayActivity struct {
	Date          string       `json:"date"`
	Calls         int          `json:"calls"`
	SMS           int          `json:"sms"`
	TotalDuration int          `json:"totalDuration"`
	Records       []cdr.Record `json:"records"`
}

// Total is calls plus SMS for the day.
func (d DayActivity) Total() int { return d.Calls + d.SMS }

type NumberProfile struct {
	Number         string        `json:"number"`
	Days           []DayActivity `json:"days"`
	TotalDays      int           `json:"totalDays"`
	TotalCalls     int           `json:"totalCalls"`
	TotalSMS       int           `json:"totalSms"`
	TotalDuration  int           `json:"totalDuration"`
	AveragePerDay  float64       `json:"averagePerDay"`
	MostActiveDay  *DayActivity  `json:"mostActiveDay"`
	LeastActiveDay *DayActivity  `json:"leastActiveDay"`
}

// Profile buckets every event the number took part in by UTC calendar day.
// Only days within 90 days of the number's latest event are kept, at most the
// 90 most recent. Days are returned newest first. It returns nil when the
// number does not appear in records.
func Profile(records []cdr.Record, number string) *NumberProfile {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil
	}
	var mine []cdr.Record
	var latest time.Time
	for _, r := range records {
		if r.CallerNumber != number && r.CalledNumber != number {
			continue
		}
		mine = append(mine, r)
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	if len(mine) == 0 {
		return nil
	}

	byDay := map[string]*DayActivity{}
	for _, r := range mine {
		if latest.Sub(r.Timestamp) > profileWindow {
			continue
		}
		key := r.Timestamp.UTC().Format(dayLayout)
		d := byDay[key]
		if d == nil {
			d = &DayActivity{Date: key}
			byDay[key] = d
		}
		switch {
		case r.CallType.IsCall():
			d.Calls++
			d.TotalDuration += r.Duration
		case r.CallType.IsSMS():
			d.SMS++
		}
		d.Records = append(d.Records, r)
	}

	days := make([]DayActivity, 0, len(byDay))
	for _, d := range byDay {
		sort.SliceStable(d.Records, func(i, j int) bool { return d.Records[i].Timestamp.Before(d.Records[j].Timestamp) })
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	if len(days) > profileDays {
		days = days[:profileDays]
	}

	p := &NumberProfile{Number: number, Days: days, TotalDays: len(days)}
	for _, d := range days {
		p.TotalCalls += d.Calls
		p.TotalSMS += d.SMS
		p.TotalDuration += d.TotalDuration
	}
	if p.TotalDays > 0 {
		p.AveragePerDay = float64(p.TotalCalls+p.TotalSMS) / float64(p.TotalDays)
	}

	// walk oldest to newest: the first day reaching the maximum is the most
	// active, the last day at the minimum is the least active
	most, least := len(days)-1, len(days)-1
	for i := len(days) - 1; i >= 0; i-- {
		if days[i].Total() > days[most].Total() {
			most = i
		}
		if days[i].Total() <= days[least].Total() {
			least = i
		}
	}
	p.MostActiveDay = &p.Days[most]
	p.LeastActiveDay = &p.Days[least]
	return p
}
