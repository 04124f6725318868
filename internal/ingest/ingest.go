// Package ingest loads new order batches from the batch source into the table
// store, skipping batches already present.
//
// A run reads the loaded-batch set, discovers the source catalog and ingests
// every batch not yet loaded, one at a time. Failures of a single batch are
// contained; only the inability to read the loaded set, to discover the
// catalog, or to keep the store connection aborts the run.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
	"github.com/fairyhunter13/order-batch-loader/internal/source"
)

// BatchSource exposes the batch catalog and per-batch payloads as CSV.
type BatchSource interface {
	ListBatches(ctx context.Context) (io.ReadCloser, error)
	FetchBatch(ctx context.Context, id model.BatchID) (io.ReadCloser, error)
}

// TableStore is the warehouse table receiving ingested rows.
type TableStore interface {
	LoadedBatchIDs(ctx context.Context) ([]int64, error)
	Append(ctx context.Context, recs []model.Record) (int64, error)
}

// LoadedBatches reads the set of batch identifiers already in the store.
func LoadedBatches(ctx context.Context, st TableStore) (model.BatchSet, error) {
	ids, err := st.LoadedBatchIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading loaded batches: %w", err)
	}
	return model.NewBatchSet(ids...), nil
}

// Discover returns the source catalog in source order.
func Discover(ctx context.Context, src BatchSource) ([]model.BatchID, error) {
	body, err := src.ListBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering batches: %w", err)
	}
	defer body.Close()
	t, err := readTable(body)
	if err != nil {
		return nil, fmt.Errorf("parsing batch list: %w", err)
	}
	col, ok := t.column(ColBatchID)
	if !ok {
		return nil, fmt.Errorf("parsing batch list: missing column %s", ColBatchID)
	}
	ids := make([]model.BatchID, 0, len(t.rows))
	for i, row := range t.rows {
		id, err := model.ParseBatchID(row[col])
		if err != nil {
			return nil, fmt.Errorf("parsing batch list row %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Ingestor fetches, normalizes and appends one batch.
type Ingestor struct {
	src   BatchSource
	store TableStore
}

func NewIngestor(src BatchSource, st TableStore) *Ingestor {
	return &Ingestor{src: src, store: st}
}

// Ingest loads batch id and returns the number of rows written. Any error is
// an *Error carrying the failure Kind.
func (in *Ingestor) Ingest(ctx context.Context, id model.BatchID) (int64, error) {
	body, err := in.src.FetchBatch(ctx, id)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return 0, &Error{BatchID: id, Kind: KindNotFound, Err: err}
		}
		return 0, &Error{BatchID: id, Kind: KindFetch, Err: err}
	}
	defer body.Close()

	recs, err := decodeBatch(id, body)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}
	n, err := in.store.Append(ctx, recs)
	if err != nil {
		return 0, &Error{BatchID: id, Kind: KindWrite, Err: err}
	}
	return n, nil
}

// decodeBatch parses a batch payload into records tagged with id, keeping
// exactly the BATCH_ID, ORDER_ID, AMOUNT columns.
func decodeBatch(id model.BatchID, r io.Reader) ([]model.Record, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, &Error{BatchID: id, Kind: KindMalformed, Err: err}
	}
	var missing []string
	orderCol, ok := t.column(ColOrderID)
	if !ok {
		missing = append(missing, ColOrderID)
	}
	amountCol, ok := t.column(ColAmount)
	if !ok {
		missing = append(missing, ColAmount)
	}
	if len(missing) > 0 {
		return nil, &Error{BatchID: id, Kind: KindMissingColumn,
			Err: fmt.Errorf("missing columns %s (have %s)", strings.Join(missing, ", "), strings.Join(t.columns, ", "))}
	}

	recs := make([]model.Record, 0, len(t.rows))
	for i, row := range t.rows {
		orderID := strings.TrimSpace(row[orderCol])
		if orderID == "" {
			return nil, &Error{BatchID: id, Kind: KindMalformed, Err: fmt.Errorf("row %d: empty %s", i+1, ColOrderID)}
		}
		amount, err := parseAmount(row[amountCol])
		if err != nil {
			return nil, &Error{BatchID: id, Kind: KindMalformed, Err: fmt.Errorf("row %d: %s: %w", i+1, ColAmount, err)}
		}
		recs = append(recs, model.Record{BatchID: id, OrderID: orderID, Amount: amount})
	}
	return recs, nil
}

// parseAmount accepts finite decimal numbers only. Blank, NaN, Inf and hex
// forms are rejected.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("blank value")
	}
	if strings.ContainsAny(s, "xX") {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}
