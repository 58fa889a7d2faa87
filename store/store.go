// Package store keeps ingested batches: their records and the cached
// analysis results derived from them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNotPending = errors.New("batch is not accepting records")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

type Batch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Records   int       `json:"records"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is what ingestion and the pipeline need from persistence. Results are
// opaque encoded blobs keyed by batch and analysis type.
type Store interface {
	CreateBatch(ctx context.Context, name string) (Batch, error)
	AppendRecords(ctx context.Context, batchID string, recs []cdr.Record) error
	GetRecords(ctx context.Context, batchID string) ([]cdr.Record, error)
	PutResult(ctx context.Context, batchID, analysisType string, data []byte) error
	GetResult(ctx context.Context, batchID, analysisType string) ([]byte, error)
	SetStatus(ctx context.Context, batchID string, status Status, reason string) error
	Batch(ctx context.Context, batchID string) (Batch, error)
	DeleteBatch(ctx context.Context, batchID string) error
	Close() error
}

func newBatch(name string, now time.Time) Batch {
	return Batch{ID: uuid.NewString(), Name: name, Status: StatusPending, CreatedAt: now.UTC()}
}
