package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
	"github.com/fairyhunter13/order-batch-loader/internal/source"
	"github.com/fairyhunter13/order-batch-loader/internal/store"
)

// fakeSource serves CSV payloads from memory.
type fakeSource struct {
	list    string
	listErr error
	data    map[model.BatchID]string
	errs    map[model.BatchID]error
	fetched []model.BatchID
}

func newFakeSource(list string) *fakeSource {
	return &fakeSource{list: list, data: map[model.BatchID]string{}, errs: map[model.BatchID]error{}}
}

func (f *fakeSource) ListBatches(ctx context.Context) (io.ReadCloser, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return io.NopCloser(strings.NewReader(f.list)), nil
}

func (f *fakeSource) FetchBatch(ctx context.Context, id model.BatchID) (io.ReadCloser, error) {
	f.fetched = append(f.fetched, id)
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	body, ok := f.data[id]
	if !ok {
		return nil, fmt.Errorf("GET /batch-data/%s: %w", id, source.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// faultyStore wraps the memory store with injectable failures.
type faultyStore struct {
	*store.Memory
	loadErr   error
	appendErr map[model.BatchID]error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: store.NewMemory(), appendErr: map[model.BatchID]error{}}
}

func (s *faultyStore) LoadedBatchIDs(ctx context.Context) ([]int64, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.Memory.LoadedBatchIDs(ctx)
}

func (s *faultyStore) Append(ctx context.Context, recs []model.Record) (int64, error) {
	if len(recs) > 0 {
		if err, ok := s.appendErr[recs[0].BatchID]; ok {
			return 0, err
		}
	}
	return s.Memory.Append(ctx, recs)
}

func orders(n int) string {
	var b strings.Builder
	b.WriteString("order_id,amount\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "o-%d,%d.50\n", i, i)
	}
	return b.String()
}
