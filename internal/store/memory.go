package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
)

// Memory is an in-process table store. Rows live only as long as the value.
type Memory struct {
	mu      sync.RWMutex
	rows    []model.Record
	batches map[model.BatchID]int
	appends int
}

func NewMemory() *Memory {
	return &Memory{batches: make(map[model.BatchID]int)}
}

// Seed appends rows without counting them as an append call.
func (m *Memory) Seed(recs ...model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.rows = append(m.rows, r)
		m.batches[r.BatchID]++
	}
}

func (m *Memory) LoadedBatchIDs(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.batches))
	for id := range m.batches {
		ids = append(ids, int64(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) Append(ctx context.Context, recs []model.Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.rows = append(m.rows, r)
		m.batches[r.BatchID]++
	}
	m.appends++
	return int64(len(recs)), nil
}

func (m *Memory) EnsureTable(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Rows returns a copy of every stored row in append order.
func (m *Memory) Rows() []model.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Record, len(m.rows))
	copy(out, m.rows)
	return out
}

// Count returns the number of rows stored for a batch.
func (m *Memory) Count(id model.BatchID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batches[id]
}

// Appends returns how many non-empty Append calls succeeded.
func (m *Memory) Appends() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appends
}
