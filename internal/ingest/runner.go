package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
	"github.com/fairyhunter13/order-batch-loader/internal/obs"
	"github.com/fairyhunter13/order-batch-loader/internal/store"
)

const (
	reasonLoaded    = "already loaded"
	reasonAttempted = "already attempted"
	reasonEmpty     = "empty batch"
)

// Report summarizes one run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Outcomes []model.Outcome
}

// Count returns how many batches ended in state s.
func (r *Report) Count(s model.State) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == s {
			n++
		}
	}
	return n
}

// Rows returns the total number of rows written.
func (r *Report) Rows() int64 {
	var n int64
	for _, o := range r.Outcomes {
		n += o.Rows
	}
	return n
}

// HasFailures reports whether any batch failed.
func (r *Report) HasFailures() bool { return r.Count(model.StateFailed) > 0 }

// Runner drives one ingestion run over the whole discovered catalog.
type Runner struct {
	src      BatchSource
	store    TableStore
	ingestor *Ingestor
	metrics  *obs.Metrics
}

// NewRunner wires a run against src and st. metrics may be nil.
func NewRunner(src BatchSource, st TableStore, m *obs.Metrics) *Runner {
	return &Runner{src: src, store: st, ingestor: NewIngestor(src, st), metrics: m}
}

// Run ingests every discovered batch that is not yet loaded. Per-batch
// failures are recorded in the report; the returned error is non-nil only for
// failures that make the rest of the run unsafe.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: uuid.NewString(), Started: time.Now()}
	log := obs.Logger.With("run_id", rep.RunID)
	log.Info("run_started")

	loaded, err := LoadedBatches(ctx, r.store)
	if err != nil {
		log.Error("run_aborted", "stage", "loaded_set", "error", err)
		return rep, err
	}
	log.Info("loaded_batches", "count", len(loaded))

	ids, err := Discover(ctx, r.src)
	if err != nil {
		log.Error("run_aborted", "stage", "discover", "error", err)
		return rep, err
	}
	log.Info("batches_discovered", "count", len(ids))

	attempted := make(model.BatchSet, len(ids))
	for _, id := range ids {
		out := model.Outcome{BatchID: id, State: model.StatePending}
		switch {
		case loaded.Has(id):
			out.State, out.Reason = model.StateSkipped, reasonLoaded
		case attempted.Has(id):
			out.State, out.Reason = model.StateSkipped, reasonAttempted
		default:
			attempted.Add(id)
			start := time.Now()
			n, err := r.ingestor.Ingest(ctx, id)
			out.Duration = time.Since(start)
			switch {
			case err != nil:
				out.State, out.Err, out.Reason = model.StateFailed, err, string(KindOf(err))
			case n == 0:
				// nothing written, so the next run fetches it again
				out.State, out.Reason = model.StateSkipped, reasonEmpty
			default:
				out.State, out.Rows = model.StateIngested, n
				loaded.Add(id)
			}
		}
		rep.Outcomes = append(rep.Outcomes, out)
		r.record(log, out)

		if out.Err != nil && errors.Is(out.Err, store.ErrConnLost) {
			log.Error("run_aborted", "stage", "ingest", "batch_id", int64(id), "error", out.Err)
			rep.Duration = time.Since(rep.Started)
			return rep, fmt.Errorf("ingesting batch %s: %w", id, out.Err)
		}
	}

	rep.Duration = time.Since(rep.Started)
	r.metrics.MarkRunCompleted()
	log.Info("run_completed",
		"ingested", rep.Count(model.StateIngested),
		"skipped", rep.Count(model.StateSkipped),
		"failed", rep.Count(model.StateFailed),
		"rows", rep.Rows(),
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

func (r *Runner) record(log *slog.Logger, out model.Outcome) {
	r.metrics.ObserveBatch(string(out.State), out.Rows, out.Duration)
	switch out.State {
	case model.StateSkipped:
		log.Info("batch_skipped", "batch_id", int64(out.BatchID), "reason", out.Reason)
	case model.StateIngested:
		log.Info("batch_ingested", "batch_id", int64(out.BatchID), "rows", out.Rows, "latency_ms", out.Duration.Milliseconds())
	case model.StateFailed:
		log.Warn("batch_failed", "batch_id", int64(out.BatchID), "kind", out.Reason, "error", out.Err)
	}
}
