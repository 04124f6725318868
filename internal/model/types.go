// Package model defines domain types used by the loader and the batch source.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BatchID is the canonical form of a batch identifier. Sources and stores may
// render it differently ("12", "012", 12); it is converted once on ingress.
type BatchID int64

// ParseBatchID converts a textual identifier into a BatchID.
func ParseBatchID(s string) (BatchID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid batch id %q: %w", s, err)
	}
	return BatchID(n), nil
}

func (id BatchID) String() string { return strconv.FormatInt(int64(id), 10) }

// BatchSet is the set of batch identifiers already present in the table.
type BatchSet map[BatchID]struct{}

// NewBatchSet builds a set from raw store values.
func NewBatchSet(ids ...int64) BatchSet {
	s := make(BatchSet, len(ids))
	for _, id := range ids {
		s[BatchID(id)] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s BatchSet) Has(id BatchID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s BatchSet) Add(id BatchID) { s[id] = struct{}{} }

// Record is one persisted order row, tagged with its owning batch.
type Record struct {
	BatchID BatchID `json:"batch_id"`
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
}

// State is the terminal state of a batch within one run.
type State string

const (
	StatePending  State = "pending"
	StateSkipped  State = "skipped"
	StateIngested State = "ingested"
	StateFailed   State = "failed"
)

// Outcome records what happened to one discovered batch.
type Outcome struct {
	BatchID  BatchID       `json:"batch_id"`
	State    State         `json:"state"`
	Rows     int64         `json:"rows"`
	Reason   string        `json:"reason,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}
