package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

type memBatch struct {
	meta    Batch
	records []cdr.Record
	results map[string][]byte
}

// Memory is a process-local Store. Every batch is its own entry, so
// concurrent uploads never share state.
type Memory struct {
	mu      sync.RWMutex
	batches map[string]*memBatch
}

func NewMemory() *Memory { return &Memory{batches: map[string]*memBatch{}} }

func (m *Memory) CreateBatch(_ context.Context, name string) (Batch, error) {
	b := newBatch(name, time.Now())
	m.mu.Lock()
	m.batches[b.ID] = &memBatch{meta: b, results: map[string][]byte{}}
	m.mu.Unlock()
	return b, nil
}

func (m *Memory) AppendRecords(_ context.Context, id string, recs []cdr.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	if b.meta.Status != StatusPending {
		return fmt.Errorf("batch %s: %w", id, ErrNotPending)
	}
	b.records = append(b.records, recs...)
	b.meta.Records = len(b.records)
	return nil
}

func (m *Memory) GetRecords(_ context.Context, id string) ([]cdr.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	return append([]cdr.Record(nil), b.records...), nil
}

func (m *Memory) PutResult(_ context.Context, id, typ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	b.results[typ] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) GetResult(_ context.Context, id, typ string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	data, ok := b.results[typ]
	if !ok {
		return nil, fmt.Errorf("result %s/%s: %w", id, typ, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// SetStatus records the batch outcome. A failed batch drops whatever
// records it had.
func (m *Memory) SetStatus(_ context.Context, id string, status Status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	b.meta.Status, b.meta.Error = status, reason
	if status == StatusFailed {
		b.records = nil
		b.results = map[string][]byte{}
		b.meta.Records = 0
	}
	return nil
}

func (m *Memory) Batch(_ context.Context, id string) (Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return Batch{}, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	return b.meta, nil
}

func (m *Memory) DeleteBatch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[id]; !ok {
		return fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	delete(m.batches, id)
	return nil
}

func (m *Memory) Close() error { return nil }
