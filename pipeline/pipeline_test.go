package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jalad-shrimali/cdr-insight/analysis"
	"github.com/jalad-shrimali/cdr-insight/cdr"
	"github.com/jalad-shrimali/cdr-insight/ingest"
	"github.com/jalad-shrimali/cdr-insight/parser"
	"github.com/jalad-shrimali/cdr-insight/store"
)

const sampleCSV = `Calling Number,Dest Phone,Call Type,Duration,Event Start Date
9000000001,9111111111,outgoing,60,2023-05-01 10:00:00
9000000001,9111111111,outgoing,30,2023-05-01 11:00:00
,9222222222,outgoing,10,2023-05-01 12:00:00
9000000002,9333333333,Incoming,45,2023-05-02 09:00:00
9000000003,9444444444,SMS Outgoing,0,2023-05-02 10:00:00
`

func newTestPipeline(t *testing.T) (*Pipeline, store.Store) {
	t.Helper()
	st := store.NewMemory()
	opts := parser.DefaultOptions()
	opts.Rand = rand.New(rand.NewSource(1))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, ingest.New(st, parser.New(opts), log), log), st
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	b, err := p.Upload(ctx, "cdr.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != store.StatusReady || b.Records != 4 {
		t.Fatalf("batch = %+v", b)
	}
	for _, typ := range analysis.Types {
		if _, err := st.GetResult(ctx, b.ID, string(typ)); err != nil {
			t.Errorf("%s not cached: %v", typ, err)
		}
	}

	data, err := p.Result(ctx, b.ID, analysis.TypeRankings)
	if err != nil {
		t.Fatal(err)
	}
	var r analysis.Rankings
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	if len(r.OutgoingCalls) != 1 || r.OutgoingCalls[0].Number != "9111111111" || r.OutgoingCalls[0].Value != 2 {
		t.Errorf("outgoing = %+v", r.OutgoingCalls)
	}
	if len(r.OutgoingSMS) != 1 || r.OutgoingSMS[0].Number != "9444444444" {
		t.Errorf("outgoing sms = %+v", r.OutgoingSMS)
	}
}

func TestUploadFailure(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t)

	b, err := p.Upload(ctx, "cdr.csv", []byte("A Party,B Party\n,9111111111\n"))
	if !errors.Is(err, ingest.ErrNoRecords) {
		t.Fatalf("err = %v", err)
	}
	if b.ID == "" || b.Status != store.StatusFailed || b.Error == "" {
		t.Fatalf("batch = %+v", b)
	}
	got, err := p.Batch(ctx, b.ID)
	if err != nil || got.Status != store.StatusFailed {
		t.Fatalf("stored batch = %+v, %v", got, err)
	}
}

func TestResultRegeneratesMissingCache(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	b, _ := st.CreateBatch(ctx, "manual")
	recs := []cdr.Record{
		{CallerNumber: "1", CalledNumber: "2", CallType: cdr.CallOutgoing, Duration: 125, Timestamp: time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
	if err := st.AppendRecords(ctx, b.ID, recs); err != nil {
		t.Fatal(err)
	}
	st.SetStatus(ctx, b.ID, store.StatusReady, "")

	data, err := p.Result(ctx, b.ID, analysis.TypeTopDuration)
	if err != nil {
		t.Fatal(err)
	}
	var top []analysis.RankEntry
	if err := json.Unmarshal(data, &top); err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || top[0].Number != "2" || top[0].DisplayValue != "2m" {
		t.Fatalf("top = %+v", top)
	}
	cached, err := st.GetResult(ctx, b.ID, string(analysis.TypeTopDuration))
	if err != nil || !bytes.Equal(cached, data) {
		t.Fatalf("regenerated result not cached: %s, %v", cached, err)
	}
}

func TestResultErrors(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t)
	b, err := p.Upload(ctx, "cdr.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Result(ctx, b.ID, "heatmap"); !errors.Is(err, ErrUnknownAnalysis) {
		t.Errorf("unknown type err = %v", err)
	}
	if _, err := p.Result(ctx, "missing", analysis.TypeRankings); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown batch err = %v", err)
	}
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t)
	b, err := p.Upload(ctx, "cdr.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}

	prof, err := p.Profile(ctx, b.ID, "9111111111")
	if err != nil {
		t.Fatal(err)
	}
	if prof.TotalCalls != 2 || prof.TotalDuration != 90 || prof.TotalDays != 1 {
		t.Errorf("profile = %+v", prof)
	}
	if _, err := p.Profile(ctx, b.ID, "0000000000"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown number err = %v", err)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t)
	b, err := p.Upload(ctx, "cdr.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := p.Export(ctx, b.ID, &buf); err != nil {
		t.Fatal(err)
	}
	x, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer x.Close()
	if n := len(x.GetSheetList()); n != 13 {
		t.Errorf("sheets = %v", x.GetSheetList())
	}
	rows, err := x.GetRows("records")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Errorf("records sheet has %d rows, want header plus 4", len(rows))
	}

	var csvBuf bytes.Buffer
	if err := p.ExportRecords(ctx, b.ID, &csvBuf); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(csvBuf.String(), "\n"); lines != 5 {
		t.Errorf("csv has %d lines:\n%s", lines, csvBuf.String())
	}

	if err := p.Export(ctx, "missing", io.Discard); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("export of unknown batch err = %v", err)
	}
}

func TestFailedBatchServesNothing(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	b, err := p.Upload(ctx, "cdr.csv", []byte("A Party,B Party\n,123\n"))
	if !errors.Is(err, ingest.ErrNoRecords) || b.Status != store.StatusFailed {
		t.Fatalf("upload = %+v, %v", b, err)
	}

	if _, err := p.Result(ctx, b.ID, analysis.TypeRankings); !errors.Is(err, ErrBatchNotReady) {
		t.Errorf("Result err = %v", err)
	}
	if _, err := st.GetResult(ctx, b.ID, string(analysis.TypeRankings)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("failed batch gained a cached result, err = %v", err)
	}
	if _, err := p.Profile(ctx, b.ID, "123"); !errors.Is(err, ErrBatchNotReady) {
		t.Errorf("Profile err = %v", err)
	}
	if _, err := p.Records(ctx, b.ID); !errors.Is(err, ErrBatchNotReady) {
		t.Errorf("Records err = %v", err)
	}
	if err := p.Export(ctx, b.ID, io.Discard); !errors.Is(err, ErrBatchNotReady) {
		t.Errorf("Export err = %v", err)
	}
	if err := p.ExportRecords(ctx, b.ID, io.Discard); !errors.Is(err, ErrBatchNotReady) {
		t.Errorf("ExportRecords err = %v", err)
	}
}

func TestPendingBatchIsNotReady(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)
	b, _ := st.CreateBatch(ctx, "in flight")
	if _, err := p.Result(ctx, b.ID, analysis.TypeDailyStats); !errors.Is(err, ErrBatchNotReady) {
		t.Fatalf("err = %v", err)
	}
}

func TestSitePeaksFollowParserZone(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	opts := parser.DefaultOptions()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(st, ingest.New(st, parser.New(opts), log), log, WithLocation(opts.Location))

	data := "A Party,B Party,Call Type,Date And Time,SiteLocation\n" +
		"9000000001,9111111111,Outgoing,2023-05-02 10:15:00,Tower A\n" +
		"9000000001,9111111111,Outgoing,2023-05-02 10:20:00,Tower A\n" +
		"9000000001,9111111111,Outgoing,2023-05-03 02:30:00,Tower A\n" +
		"9000000001,9111111111,Outgoing,2023-05-02 10:30:00,Tower A\n"
	b, err := p.Upload(ctx, "cdr.csv", []byte(data))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := p.Result(ctx, b.ID, analysis.TypeSites)
	if err != nil {
		t.Fatal(err)
	}
	var sites []analysis.Site
	if err := json.Unmarshal(raw, &sites); err != nil {
		t.Fatal(err)
	}
	if len(sites) != 1 || sites[0].PeakHour != 10 || sites[0].PeakDay != "Tuesday" {
		t.Fatalf("sites = %+v", sites)
	}
}
