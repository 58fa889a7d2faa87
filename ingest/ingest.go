// Package ingest takes an uploaded export from raw bytes to stored records:
// read the sheet, normalize headers, parse rows, enrich locations, store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jalad-shrimali/cdr-insight/cdr"
	"github.com/jalad-shrimali/cdr-insight/cellsite"
	"github.com/jalad-shrimali/cdr-insight/normalize"
	"github.com/jalad-shrimali/cdr-insight/parser"
	"github.com/jalad-shrimali/cdr-insight/store"
)

var (
	ErrUnreadable = errors.New("file is not a readable spreadsheet")
	ErrNoRows     = errors.New("file has no data rows")
	ErrNoRecords  = errors.New("no row has a caller number")
)

type Ingester struct {
	store  store.Store
	norm   *normalize.Normalizer
	parser *parser.Parser
	cells  cellsite.Lookup
	log    *slog.Logger
}

type Option func(*Ingester)

// WithCells enables coordinate enrichment for locations that carry none.
func WithCells(l cellsite.Lookup) Option { return func(in *Ingester) { in.cells = l } }

func WithNormalizer(n *normalize.Normalizer) Option { return func(in *Ingester) { in.norm = n } }

func New(st store.Store, p *parser.Parser, log *slog.Logger, opts ...Option) *Ingester {
	in := &Ingester{store: st, norm: normalize.Default(), parser: p, log: log}
	for _, o := range opts {
		o(in)
	}
	return in
}

// Ingest creates a batch for the file and fills it. On any error the batch is
// marked failed and holds no records; its id is still returned when one was
// assigned.
func (in *Ingester) Ingest(ctx context.Context, name string, data []byte) (string, []cdr.Record, error) {
	b, err := in.store.CreateBatch(ctx, name)
	if err != nil {
		return "", nil, err
	}
	log := in.log.With("batch", b.ID, "file", name)

	recs, err := in.load(ctx, b.ID, name, data)
	if err == nil {
		err = in.store.AppendRecords(ctx, b.ID, recs)
	}
	if err != nil {
		log.Warn("ingest failed", "err", err)
		if serr := in.store.SetStatus(ctx, b.ID, store.StatusFailed, err.Error()); serr != nil {
			log.Error("mark batch failed", "err", serr)
		}
		return b.ID, nil, err
	}
	log.Info("ingested", "records", len(recs))
	return b.ID, recs, nil
}

func (in *Ingester) load(ctx context.Context, batchID, name string, data []byte) ([]cdr.Record, error) {
	t, target, err := ReadTable(name, data)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoRows)
	}

	t = in.norm.Normalize(t)
	if target != "" {
		fillCaller(t.Rows, target)
	}
	recs := in.parser.Parse(t.Rows, batchID)
	if dropped := len(t.Rows) - len(recs); dropped > 0 {
		in.log.Debug("rows without caller dropped", "batch", batchID, "dropped", dropped)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s: %d rows: %w", name, len(t.Rows), ErrNoRecords)
	}
	if in.cells != nil {
		in.enrich(ctx, recs)
	}
	return recs, nil
}

// fillCaller gives the banner's target number to rows without an A-Party.
func fillCaller(rows []cdr.RawRow, target string) {
	for _, r := range rows {
		if cdr.Clean(r[cdr.FieldAParty]) == "" {
			r[cdr.FieldAParty] = target
		}
	}
}

// enrich adds tower coordinates to records whose location is a bare cell id.
// Lookup failures leave the record as parsed.
func (in *Ingester) enrich(ctx context.Context, recs []cdr.Record) {
	hits := 0
	for i := range recs {
		r := &recs[i]
		if r.Location == "" || r.HasCoordinates() {
			continue
		}
		c, ok, err := in.cells.Lookup(ctx, r.Location)
		if err != nil {
			in.log.Warn("cell lookup", "cell", r.Location, "err", err)
			continue
		}
		if !ok {
			continue
		}
		lat, lng := c.Latitude, c.Longitude
		r.Latitude, r.Longitude = &lat, &lng
		hits++
	}
	if hits > 0 {
		in.log.Debug("locations enriched", "records", hits)
	}
}
