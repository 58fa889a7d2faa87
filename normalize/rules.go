package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jalad-shrimali/cdr-insight/cdr"
	"github.com/jalad-shrimali/cdr-insight/dates"
)

// Column is what a rule gets to look at: the header and a few sample values.
type Column struct {
	Header  string
	Norm    string
	Samples []string
}

// Rule maps a column to a canonical field when Match accepts it.
type Rule struct {
	Name      string
	Canonical string
	Match     func(Column) bool
}

/* ──────────── tier 1: exact header aliases (trim-and-lowered) ──────────── */

// aliases keeps the spellings seen in Airtel, Jio, Vi and BSNL exports as
// well as the generic ones. Every canonical name is its own alias.
var aliases = map[string][]string{
	cdr.FieldAParty: {
		"a-party", "a party", "aparty", "a_party", "a party no", "a party number",
		"calling number", "calling no", "calling party", "calling party telephone number",
		"caller", "caller number", "caller no", "source number", "originating number",
		"target no", "target number",
	},
	cdr.FieldBParty: {
		"b-party", "b party", "bparty", "b_party", "b party no", "b party number",
		"called number", "called no", "called party", "called party telephone number",
		"customer msisdn", "destination number", "dialled number", "other party number",
	},
	cdr.FieldIMEI: {"imei", "imei no", "imei number", "device imei", "imei_no"},
	cdr.FieldCallType: {
		"call type", "calltype", "call_type", "call direction", "direction",
		"event type", "record type", "usage type",
	},
	cdr.FieldDuration: {
		"duration", "call duration", "dur(s)", "duration(s)", "duration (s)",
		"duration (sec)", "duration(sec)", "call duration (sec)", "call_duration", "talk time (sec)",
	},
	cdr.FieldDateTime: {
		"date and time", "datetime", "date time", "date/time", "date_time", "timestamp",
		"call datetime", "call date time", "start time", "call start time", "event time",
	},
	cdr.FieldDate: {"date", "call date", "call_date", "event date"},
	cdr.FieldTime: {"time", "call time", "call_time", "call initiation time"},
	cdr.FieldSiteLocation: {
		"sitelocation", "site location", "site", "site name", "cell id", "cellid", "cell_id",
		"location", "first cell id", "first cgi", "cgi", "cell global id",
		"first cell global id", "bts location", "first bts location",
	},
	cdr.FieldLatitude:  {"latitude", "lat"},
	cdr.FieldLongitude: {"longitude", "long", "lng", "lon"},
}

// ExactRules returns tier 1, one rule per canonical field in vocabulary order.
func ExactRules() []Rule {
	rules := make([]Rule, 0, len(cdr.Fields))
	for _, canon := range cdr.Fields {
		set := map[string]struct{}{cdr.Norm(canon): {}}
		for _, a := range aliases[canon] {
			set[cdr.Norm(a)] = struct{}{}
		}
		rules = append(rules, Rule{
			Name:      "exact:" + canon,
			Canonical: canon,
			Match: func(c Column) bool {
				_, ok := set[c.Norm]
				return ok
			},
		})
	}
	return rules
}

/* ──────────── tier 2: value pattern inference ──────────── */

var (
	phoneRE = regexp.MustCompile(`^[0-9+\-\s()]{8,20}$`)
	imeiRE  = regexp.MustCompile(`^[0-9A-Za-z.+]{12,20}$`)
	imeiNum = regexp.MustCompile(`^[0-9]{14,17}$`)
)

// PatternRules returns tier 2 in evaluation order.
func PatternRules() []Rule {
	return []Rule{
		{Name: "phone:a-party", Canonical: cdr.FieldAParty, Match: func(c Column) bool {
			if deviceHint(c.Norm) || !mostly(c.Samples, looksLikePhone) {
				return false
			}
			return aPartyHint(c.Norm) || looksLikePhone(c.Header)
		}},
		{Name: "phone:b-party", Canonical: cdr.FieldBParty, Match: func(c Column) bool {
			return !deviceHint(c.Norm) && mostly(c.Samples, looksLikePhone) && bPartyHint(c.Norm)
		}},
		{Name: "msisdn:b-party", Canonical: cdr.FieldBParty, Match: func(c Column) bool {
			return !mostly(c.Samples, looksLikePhone) && hasAny(c.Norm, "msisdn", "customer")
		}},
		{Name: "date-time", Canonical: cdr.FieldDateTime, Match: func(c Column) bool {
			return hasAny(c.Norm, "date", "time") && mostly(c.Samples, dates.LooksLikeDate)
		}},
		{Name: "imei", Canonical: cdr.FieldIMEI, Match: func(c Column) bool {
			return deviceHint(c.Norm) && mostly(c.Samples, looksLikeIMEI)
		}},
		{Name: "call-type", Canonical: cdr.FieldCallType, Match: func(c Column) bool {
			return hasAny(c.Norm, "type", "call") && mostly(c.Samples, func(v string) bool {
				return hasAny(strings.ToLower(v), "call", "sms", "incoming", "outgoing")
			})
		}},
		{Name: "duration", Canonical: cdr.FieldDuration, Match: func(c Column) bool {
			return hasAny(c.Norm, "duration", "time") && all(c.Samples, func(v string) bool {
				f, err := strconv.ParseFloat(v, 64)
				return err == nil && f >= 0
			})
		}},
		{Name: "location", Canonical: cdr.FieldSiteLocation, Match: func(c Column) bool {
			return hasAny(c.Norm, "location", "site", "cell") && mostly(c.Samples, func(v string) bool {
				return strings.Contains(v, "|") || len(v) > 10
			})
		}},
	}
}

/* ──────────── helpers ──────────── */

func looksLikePhone(v string) bool {
	v = strings.TrimSpace(v)
	return phoneRE.MatchString(v) && strings.ContainsAny(v, "0123456789")
}

func looksLikeIMEI(v string) bool {
	if !imeiRE.MatchString(v) || !strings.ContainsAny(v, "0123456789") {
		return false
	}
	return strings.Contains(strings.ToUpper(v), "E+") || imeiNum.MatchString(v)
}

// deviceHint marks IMEI headers; a 15 digit IMEI is also phone shaped.
func deviceHint(h string) bool { return hasAny(h, "imei", "device") }

func aPartyHint(h string) bool {
	if hasAny(h, "caller", "calling", "source", "origin") {
		return true
	}
	for _, t := range tokens(h) {
		if t == "a" || t == "aparty" || t == "from" {
			return true
		}
	}
	return false
}

func bPartyHint(h string) bool {
	if hasAny(h, "called", "dest", "customer", "msisdn", "subscriber") {
		return true
	}
	for _, t := range tokens(h) {
		if t == "b" || t == "bparty" || t == "to" {
			return true
		}
	}
	return false
}

func tokens(h string) []string {
	return strings.FieldsFunc(h, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// mostly is true when more than half of the samples satisfy ok.
func mostly(samples []string, ok func(string) bool) bool {
	if len(samples) == 0 {
		return false
	}
	n := 0
	for _, s := range samples {
		if ok(s) {
			n++
		}
	}
	return n*2 > len(samples)
}

func all(samples []string, ok func(string) bool) bool {
	if len(samples) == 0 {
		return false
	}
	for _, s := range samples {
		if !ok(s) {
			return false
		}
	}
	return true
}

// Known reports whether h is a built-in exact spelling of any canonical field.
func Known(h string) bool {
	n := cdr.Norm(h)
	for canon, list := range aliases {
		if n == cdr.Norm(canon) {
			return true
		}
		for _, a := range list {
			if n == a {
				return true
			}
		}
	}
	return false
}
