// Package pipeline runs an upload end to end: ingest the file, compute every
// batch analysis and cache the encoded results in the store.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jalad-shrimali/cdr-insight/analysis"
	"github.com/jalad-shrimali/cdr-insight/cdr"
	"github.com/jalad-shrimali/cdr-insight/ingest"
	"github.com/jalad-shrimali/cdr-insight/report"
	"github.com/jalad-shrimali/cdr-insight/store"
)

var (
	ErrUnknownAnalysis = errors.New("unknown analysis type")
	ErrBatchNotReady   = errors.New("batch is not ready")
)

type Pipeline struct {
	store  store.Store
	ingest *ingest.Ingester
	log    *slog.Logger
	loc    *time.Location
}

type Option func(*Pipeline)

// WithLocation sets the zone site peaks are binned in, normally the one the
// parser reads text timestamps in.
func WithLocation(loc *time.Location) Option { return func(p *Pipeline) { p.loc = loc } }

func New(st store.Store, in *ingest.Ingester, log *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{store: st, ingest: in, log: log, loc: time.UTC}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Upload ingests data and caches every analysis. The returned batch is ready
// on success; on failure it is marked failed and carries the reason.
func (p *Pipeline) Upload(ctx context.Context, name string, data []byte) (store.Batch, error) {
	id, recs, err := p.ingest.Ingest(ctx, name, data)
	if err != nil {
		if id == "" {
			return store.Batch{}, err
		}
		b, berr := p.store.Batch(ctx, id)
		if berr != nil {
			return store.Batch{ID: id, Status: store.StatusFailed, Error: err.Error()}, err
		}
		return b, err
	}

	results, err := analysis.RunAll(ctx, recs, analysis.WithLocation(p.loc))
	if err == nil {
		err = p.cache(ctx, id, results)
	}
	if err != nil {
		p.fail(ctx, id, err)
		return store.Batch{ID: id, Status: store.StatusFailed, Error: err.Error()}, err
	}
	if err := p.store.SetStatus(ctx, id, store.StatusReady, ""); err != nil {
		return store.Batch{}, err
	}
	p.log.Info("batch ready", "batch", id, "records", len(recs), "results", len(results))
	return p.store.Batch(ctx, id)
}

func (p *Pipeline) cache(ctx context.Context, id string, results map[analysis.Type]any) error {
	for _, t := range analysis.Types {
		data, err := json.Marshal(results[t])
		if err != nil {
			return fmt.Errorf("encode %s: %w", t, err)
		}
		if err := p.store.PutResult(ctx, id, string(t), data); err != nil {
			return fmt.Errorf("cache %s: %w", t, err)
		}
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, id string, cause error) {
	p.log.Warn("analysis failed", "batch", id, "err", cause)
	if err := p.store.SetStatus(ctx, id, store.StatusFailed, cause.Error()); err != nil {
		p.log.Error("mark batch failed", "batch", id, "err", err)
	}
}

func (p *Pipeline) Batch(ctx context.Context, id string) (store.Batch, error) {
	return p.store.Batch(ctx, id)
}

func (p *Pipeline) Records(ctx context.Context, id string) ([]cdr.Record, error) {
	if err := p.ready(ctx, id); err != nil {
		return nil, err
	}
	return p.store.GetRecords(ctx, id)
}

// ready fails with ErrBatchNotReady unless the batch finished ingestion.
func (p *Pipeline) ready(ctx context.Context, id string) error {
	b, err := p.store.Batch(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != store.StatusReady {
		return fmt.Errorf("batch %s is %s: %w", id, b.Status, ErrBatchNotReady)
	}
	return nil
}

// Result returns the JSON encoding of analysis t for a ready batch. A missing
// cache entry is recomputed from the records and stored again.
func (p *Pipeline) Result(ctx context.Context, id string, t analysis.Type) ([]byte, error) {
	if !analysis.Known(t) {
		return nil, fmt.Errorf("%q: %w", t, ErrUnknownAnalysis)
	}
	if err := p.ready(ctx, id); err != nil {
		return nil, err
	}
	return p.result(ctx, id, t)
}

func (p *Pipeline) result(ctx context.Context, id string, t analysis.Type) ([]byte, error) {
	data, err := p.store.GetResult(ctx, id, string(t))
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	recs, err := p.store.GetRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := analysis.Compute(t, recs, analysis.WithLocation(p.loc))
	if err != nil {
		return nil, err
	}
	if data, err = json.Marshal(res); err != nil {
		return nil, err
	}
	if err := p.store.PutResult(ctx, id, string(t), data); err != nil {
		p.log.Warn("re-cache result", "batch", id, "type", t, "err", err)
	}
	p.log.Debug("result regenerated", "batch", id, "type", t)
	return data, nil
}

// Profile computes the day-by-day profile of number within the batch. It is
// not cached: the target varies per request.
func (p *Pipeline) Profile(ctx context.Context, id, number string) (*analysis.NumberProfile, error) {
	if err := p.ready(ctx, id); err != nil {
		return nil, err
	}
	recs, err := p.store.GetRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	prof := analysis.Profile(recs, number)
	if prof == nil {
		return nil, fmt.Errorf("number %s in batch %s: %w", number, id, store.ErrNotFound)
	}
	return prof, nil
}

// Export writes the batch workbook: records plus every cached result.
func (p *Pipeline) Export(ctx context.Context, id string, w io.Writer) error {
	if err := p.ready(ctx, id); err != nil {
		return err
	}
	recs, err := p.store.GetRecords(ctx, id)
	if err != nil {
		return err
	}
	results := make(map[analysis.Type]any, len(analysis.Types))
	for _, t := range analysis.Types {
		data, err := p.result(ctx, id, t)
		if err != nil {
			return err
		}
		v, err := analysis.Decode(t, data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", t, err)
		}
		results[t] = v
	}
	return report.WriteWorkbook(w, recs, results)
}

// ExportRecords writes the batch records as csv.
func (p *Pipeline) ExportRecords(ctx context.Context, id string, w io.Writer) error {
	if err := p.ready(ctx, id); err != nil {
		return err
	}
	recs, err := p.store.GetRecords(ctx, id)
	if err != nil {
		return err
	}
	return report.WriteRecordsCSV(w, recs)
}
