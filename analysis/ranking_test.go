package analysis

import (
	"strconv"
	"testing"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		secs int
		want string
	}{
		{0, "0m"},
		{59, "0m"},
		{65, "1m"},
		{3600, "1h 0m"},
		{3665, "1h 1m"},
		{7325, "2h 2m"},
		{-5, "0m"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.secs); got != c.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", c.secs, got, c.want)
		}
	}
}

func checkOrdered(t *testing.T, name string, list []RankEntry) {
	t.Helper()
	for i, e := range list {
		if e.Rank != i+1 {
			t.Fatalf("%s[%d].Rank = %d, want %d", name, i, e.Rank, i+1)
		}
		if i > 0 && list[i-1].Value < e.Value {
			t.Fatalf("%s not descending at %d: %d < %d", name, i, list[i-1].Value, e.Value)
		}
	}
}

func TestRankCountsPerCounterpart(t *testing.T) {
	recs := []cdr.Record{
		rec("A", "B", cdr.CallOutgoing, 10, at(1, 1), ""),
		rec("A", "C", cdr.CallOutgoing, 10, at(1, 2), ""),
		rec("A", "C", cdr.CallOutgoing, 10, at(1, 3), ""),
		rec("A", "D", cdr.CallOutgoing, 10, at(1, 4), ""),
		rec("A", "C", cdr.CallOutgoing, 10, at(1, 5), ""),
		rec("A", "B", cdr.CallOutgoing, 10, at(1, 6), ""),
		rec("A", "", cdr.CallOutgoing, 10, at(1, 7), ""),
		rec("A", "B", cdr.CallIncoming, 10, at(1, 8), ""),
		rec("A", "F", cdr.SMSSent, 0, at(1, 9), ""),
		rec("A", "G", cdr.SMSReceived, 0, at(1, 10), ""),
	}
	r := Rank(recs)

	want := []struct {
		number string
		value  int
	}{{"C", 3}, {"B", 2}, {"D", 1}}
	if len(r.OutgoingCalls) != len(want) {
		t.Fatalf("outgoing calls = %+v", r.OutgoingCalls)
	}
	for i, w := range want {
		if e := r.OutgoingCalls[i]; e.Number != w.number || e.Value != w.value || e.DisplayValue != strconv.Itoa(w.value) {
			t.Errorf("outgoing[%d] = %+v, want %s=%d", i, e, w.number, w.value)
		}
	}
	checkOrdered(t, "outgoing", r.OutgoingCalls)

	if len(r.IncomingCalls) != 1 || r.IncomingCalls[0].Number != "B" {
		t.Errorf("incoming calls = %+v", r.IncomingCalls)
	}
	if len(r.OutgoingSMS) != 1 || r.OutgoingSMS[0].Number != "F" {
		t.Errorf("outgoing sms = %+v", r.OutgoingSMS)
	}
	if len(r.IncomingSMS) != 1 || r.IncomingSMS[0].Number != "G" {
		t.Errorf("incoming sms = %+v", r.IncomingSMS)
	}
}

func TestRankTiesKeepEncounterOrder(t *testing.T) {
	recs := []cdr.Record{
		rec("A", "X", cdr.CallOutgoing, 1, at(1, 1), ""),
		rec("A", "Y", cdr.CallOutgoing, 1, at(1, 2), ""),
		rec("A", "Z", cdr.CallOutgoing, 1, at(1, 3), ""),
		rec("A", "Z", cdr.CallOutgoing, 1, at(1, 4), ""),
	}
	got := Rank(recs).OutgoingCalls
	order := []string{"Z", "X", "Y"}
	for i, n := range order {
		if got[i].Number != n {
			t.Fatalf("position %d = %s, want %s (%+v)", i, got[i].Number, n, got)
		}
	}
}

func TestRankEmpty(t *testing.T) {
	r := Rank(nil)
	if r.OutgoingCalls == nil || len(r.OutgoingCalls) != 0 {
		t.Fatalf("want empty non-nil list, got %#v", r.OutgoingCalls)
	}
}

func TestTopByMetric(t *testing.T) {
	recs := fixture()

	calls := Top(recs, MetricCalls)
	checkOrdered(t, "calls", calls)
	// B: 2 from A, 2 from E; C: 1; E (no called number): 1
	if calls[0].Number != "B" || calls[0].Value != 4 {
		t.Fatalf("top calls = %+v", calls)
	}
	foundCaller := false
	for _, e := range calls {
		if e.Number == "E" {
			foundCaller = true
		}
	}
	if !foundCaller {
		t.Errorf("record without called number should rank under its caller: %+v", calls)
	}

	dur := Top(recs, MetricDuration)
	checkOrdered(t, "duration", dur)
	if dur[0].Number != "B" || dur[0].Value != 60+120+3700+15 || dur[0].DisplayValue != "1h 4m" {
		t.Fatalf("top duration = %+v", dur[0])
	}

	sms := Top(recs, MetricSMS)
	if len(sms) != 2 || sms[0].Number != "C" || sms[1].Number != "D" {
		t.Fatalf("top sms = %+v", sms)
	}
}

func TestTopIsCapped(t *testing.T) {
	var recs []cdr.Record
	for i := 0; i < TopLimit+25; i++ {
		recs = append(recs, rec("A", "N"+string(rune('a'+i%26))+string(rune('a'+i/26)), cdr.CallOutgoing, 1, at(1, 1), ""))
	}
	if got := Top(recs, MetricCalls); len(got) != TopLimit {
		t.Fatalf("len = %d, want %d", len(got), TopLimit)
	}
}
