package ingest

import (
	"errors"
	"fmt"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
)

// Kind tags why a single batch could not be ingested.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindFetch         Kind = "fetch"
	KindMalformed     Kind = "malformed"
	KindMissingColumn Kind = "missing_column"
	KindWrite         Kind = "write"
)

// Error is the per-batch failure returned by Ingestor.Ingest. It is contained
// by the Runner: the loop logs it and moves on to the next batch.
type Error struct {
	BatchID model.BatchID
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("batch %s: %s: %v", e.BatchID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
