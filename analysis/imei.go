package analysis

import (
	"sort"
	"time"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

const imeiLimit = 50

// DeviceUsage is the activity seen under one IMEI.
type DeviceUsage struct {
	IMEI          string    `json:"imei"`
	FirstSeen     time.Time `json:"firstSeen"`
	LastSeen      time.Time `json:"lastSeen"`
	Calls         int       `json:"calls"`
	TotalDuration int       `json:"totalDuration"`
	SMSSent       int       `json:"smsSent"`
	SMSReceived   int       `json:"smsReceived"`
}

// DeviceChange is one IMEI swap. The counters are those of the new IMEI.
type DeviceChange struct {
	FromIMEI      string    `json:"fromImei"`
	ToIMEI        string    `json:"toImei"`
	ChangeTime    time.Time `json:"changeTime"`
	Calls         int       `json:"calls"`
	TotalDuration int       `json:"totalDuration"`
	SMSSent       int       `json:"smsSent"`
	SMSReceived   int       `json:"smsReceived"`
}

type DeviceHistory struct {
	Number      string         `json:"number"`
	IMEIs       []DeviceUsage  `json:"imeis"`
	Changes     []DeviceChange `json:"changes"`
	ChangeCount int            `json:"changeCount"`
}

// IMEIChanges finds numbers seen with more than one IMEI. Records are keyed
// by counterpart number (called, else caller).
func IMEIChanges(records []cdr.Record) []DeviceHistory {
	type group struct {
		order []string
		use   map[string]*DeviceUsage
	}
	var numbers []string
	groups := map[string]*group{}

	for _, r := range records {
		if r.IMEI == "" {
			continue
		}
		key := r.Counterpart()
		g := groups[key]
		if g == nil {
			g = &group{use: map[string]*DeviceUsage{}}
			groups[key] = g
			numbers = append(numbers, key)
		}
		u := g.use[r.IMEI]
		if u == nil {
			u = &DeviceUsage{IMEI: r.IMEI, FirstSeen: r.Timestamp, LastSeen: r.Timestamp}
			g.use[r.IMEI] = u
			g.order = append(g.order, r.IMEI)
		}
		if r.Timestamp.Before(u.FirstSeen) {
			u.FirstSeen = r.Timestamp
		}
		if r.Timestamp.After(u.LastSeen) {
			u.LastSeen = r.Timestamp
		}
		switch r.CallType {
		case cdr.CallIncoming, cdr.CallOutgoing:
			u.Calls++
			u.TotalDuration += r.Duration
		case cdr.SMSSent:
			u.SMSSent++
		case cdr.SMSReceived:
			u.SMSReceived++
		}
	}

	out := []DeviceHistory{}
	for _, n := range numbers {
		g := groups[n]
		if len(g.order) < 2 {
			continue
		}
		h := DeviceHistory{Number: n}
		for _, imei := range g.order {
			h.IMEIs = append(h.IMEIs, *g.use[imei])
		}
		sort.SliceStable(h.IMEIs, func(i, j int) bool { return h.IMEIs[i].FirstSeen.Before(h.IMEIs[j].FirstSeen) })
		for i := 1; i < len(h.IMEIs); i++ {
			prev, cur := h.IMEIs[i-1], h.IMEIs[i]
			h.Changes = append(h.Changes, DeviceChange{
				FromIMEI:      prev.IMEI,
				ToIMEI:        cur.IMEI,
				ChangeTime:    cur.FirstSeen,
				Calls:         cur.Calls,
				TotalDuration: cur.TotalDuration,
				SMSSent:       cur.SMSSent,
				SMSReceived:   cur.SMSReceived,
			})
		}
		h.ChangeCount = len(h.Changes)
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangeCount > out[j].ChangeCount })
	if len(out) > imeiLimit {
		out = out[:imeiLimit]
	}
	return out
}
