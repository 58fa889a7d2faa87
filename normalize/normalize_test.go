package normalize

import (
	"testing"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

func table(header []string, rows ...[]string) cdr.Table {
	t := cdr.Table{Header: header}
	for _, r := range rows {
		row := cdr.RawRow{}
		for i, h := range header {
			if i < len(r) {
				row[h] = r[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestInferExactAliases(t *testing.T) {
	tb := table(
		[]string{"Calling Number", "B PARTY NO", " Call  Type ", "Dur(s)", "Call Date", "Call Time", "IMEI", "First Cell ID", "Lat", "Long"},
		[]string{"9000000001", "9111111111", "CALL_OUT", "60", "2023-05-01", "10:00:00", "356938035643809", "404-45-1", "24.8", "67.0"},
	)
	got := Default().Infer(tb)
	want := Mapping{
		"Calling Number": cdr.FieldAParty,
		"B PARTY NO":     cdr.FieldBParty,
		" Call  Type ":   cdr.FieldCallType,
		"Dur(s)":         cdr.FieldDuration,
		"Call Date":      cdr.FieldDate,
		"Call Time":      cdr.FieldTime,
		"IMEI":           cdr.FieldIMEI,
		"First Cell ID":  cdr.FieldSiteLocation,
		"Lat":            cdr.FieldLatitude,
		"Long":           cdr.FieldLongitude,
	}
	for h, canon := range want {
		if got[h] != canon {
			t.Errorf("%q mapped to %q, want %q", h, got[h], canon)
		}
	}
	if len(got) != len(want) {
		t.Errorf("mapping = %v", got)
	}
}

func TestInferFromValues(t *testing.T) {
	tb := table(
		[]string{"Caller Phone", "Dest Phone", "Event Start Date", "Talk Time", "Handset Device", "Call Nature", "Tower Site", "Remarks"},
		[]string{"9000000001", "9111111111", "2023-05-01 10:00:00", "65", "356938035643809", "Outgoing Call", "Tower A|24.86|67.01", "ok"},
		[]string{"9000000001", "9222222222", "2023-05-01 11:00:00", "120", "356938035643809", "Incoming Call", "Tower B|24.90|67.10", ""},
		[]string{"9000000001", "9333333333", "2023-05-02 09:15:00", "0", "356938035643810", "SMS", "Tower B|24.90|67.10", "late"},
	)
	got := Default().Infer(tb)
	want := Mapping{
		"Caller Phone":     cdr.FieldAParty,
		"Dest Phone":       cdr.FieldBParty,
		"Event Start Date": cdr.FieldDateTime,
		"Talk Time":        cdr.FieldDuration,
		"Handset Device":   cdr.FieldIMEI,
		"Call Nature":      cdr.FieldCallType,
		"Tower Site":       cdr.FieldSiteLocation,
	}
	for h, canon := range want {
		if got[h] != canon {
			t.Errorf("%q mapped to %q, want %q", h, got[h], canon)
		}
	}
	if _, ok := got["Remarks"]; ok {
		t.Errorf("Remarks should pass through, got %q", got["Remarks"])
	}
}

func TestCustomerMSISDNIsCounterpart(t *testing.T) {
	tb := table(
		[]string{"Target No", "Customer MSISDN"},
		[]string{"9000000001", "9111111111"},
	)
	got := Default().Infer(tb)
	if got["Target No"] != cdr.FieldAParty || got["Customer MSISDN"] != cdr.FieldBParty {
		t.Fatalf("mapping = %v", got)
	}
}

func TestFirstColumnClaimsField(t *testing.T) {
	tb := table(
		[]string{"Calling Number", "A Party", "Called Number"},
		[]string{"111111111", "222222222", "333333333"},
	)
	out := Default().Normalize(tb)
	row := out.Rows[0]
	if row[cdr.FieldAParty] != "111111111" {
		t.Errorf("A-Party = %q, want the first column", row[cdr.FieldAParty])
	}
	if row["A Party"] != "222222222" {
		t.Errorf("second A-Party column should pass through under its own name: %v", row)
	}
	if out.Header[0] != cdr.FieldAParty || out.Header[1] != "A Party" || out.Header[2] != cdr.FieldBParty {
		t.Errorf("header = %v", out.Header)
	}
}

func TestNormalizeKeepsUnmappedColumns(t *testing.T) {
	tb := table(
		[]string{"A Party", "Circle", "Roaming"},
		[]string{"111111111", "Delhi", "No"},
	)
	out := Normalize(tb)
	row := out.Rows[0]
	if row[cdr.FieldAParty] != "111111111" || row["Circle"] != "Delhi" || row["Roaming"] != "No" {
		t.Fatalf("row = %v", row)
	}
	if _, ok := row["A Party"]; ok {
		t.Errorf("mapped key should be renamed, row = %v", row)
	}
	if len(tb.Rows[0]) != 3 || tb.Rows[0]["A Party"] != "111111111" {
		t.Errorf("input table was modified")
	}
}

func TestSamplesSkipBlanks(t *testing.T) {
	var rows [][]string
	for i := 0; i < 15; i++ {
		rows = append(rows, []string{""})
	}
	rows = append(rows, []string{"Outgoing Call"})
	tb := table([]string{"Call Nature"}, rows...)

	cols := columns(tb)
	if len(cols[0].Samples) != 1 || cols[0].Samples[0] != "Outgoing Call" {
		t.Fatalf("samples = %v", cols[0].Samples)
	}
	if got := Default().Infer(tb); got["Call Nature"] != cdr.FieldCallType {
		t.Fatalf("mapping = %v", got)
	}
}

func TestPatternTierIsIndependent(t *testing.T) {
	n := &Normalizer{Pattern: PatternRules()}
	tb := table([]string{"Duration"}, []string{"60"}, []string{"abc"})
	if got := n.Infer(tb); len(got) != 0 {
		t.Fatalf("without the exact tier a mixed Duration column stays unmapped, got %v", got)
	}
	n = &Normalizer{Exact: ExactRules()}
	if got := n.Infer(tb); got["Duration"] != cdr.FieldDuration {
		t.Fatalf("exact tier alone = %v", got)
	}
}

func TestKnown(t *testing.T) {
	for _, h := range []string{"Calling Number", "B Party No", "IMEI", "Date And Time", "SiteLocation", "  call   type "} {
		if !Known(h) {
			t.Errorf("Known(%q) = false", h)
		}
	}
	for _, h := range []string{"Remarks", "Mobile No '9000000001'", ""} {
		if Known(h) {
			t.Errorf("Known(%q) = true", h)
		}
	}
}

func TestInferPatternBranches(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		rows   [][]string
		want   Mapping
	}{
		{
			name:   "phone shaped header is the caller",
			header: []string{"9876543210"},
			rows:   [][]string{{"9111111111"}, {"9222222222"}},
			want:   Mapping{"9876543210": cdr.FieldAParty},
		},
		{
			name:   "excel serial dates",
			header: []string{"Event Start Date"},
			rows:   [][]string{{"45047.5"}, {"45048.25"}},
			want:   Mapping{"Event Start Date": cdr.FieldDateTime},
		},
		{
			name:   "scientific notation imei",
			header: []string{"Handset IMEI"},
			rows:   [][]string{{"3.56938035E+14"}, {"3.56938035E+14"}},
			want:   Mapping{"Handset IMEI": cdr.FieldIMEI},
		},
		{
			name:   "msisdn header without phone values",
			header: []string{"Subscriber MSISDN Ref"},
			rows:   [][]string{{"SUB-DL-000123"}, {"SUB-DL-000456"}},
			want:   Mapping{"Subscriber MSISDN Ref": cdr.FieldBParty},
		},
		{
			name:   "exact alias beats the duration pattern",
			header: []string{"Time"},
			rows:   [][]string{{"65"}, {"120"}},
			want:   Mapping{"Time": cdr.FieldTime},
		},
		{
			name:   "imei header with phone shaped values",
			header: []string{"A Party", "Subscriber IMEI"},
			rows:   [][]string{{"9000000001", "356938035643809"}, {"9000000001", "356938035643810"}},
			want:   Mapping{"A Party": cdr.FieldAParty, "Subscriber IMEI": cdr.FieldIMEI},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(table(tt.header, tt.rows...))
			if len(got) != len(tt.want) {
				t.Fatalf("mapping = %v, want %v", got, tt.want)
			}
			for h, canon := range tt.want {
				if got[h] != canon {
					t.Errorf("%q mapped to %q, want %q", h, got[h], canon)
				}
			}
		})
	}
}
