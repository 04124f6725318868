// Package store implements the warehouse table that accumulates ingested order rows.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
)

var (
	// ErrConnLost marks errors after which the store handle is unusable.
	ErrConnLost = errors.New("store connection lost")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Columns is the fixed column set written for every record, in order.
var Columns = []string{"batch_id", "order_id", "amount"}

// Store is a table store handle. It is opened once per run and closed on exit.
type Store interface {
	LoadedBatchIDs(ctx context.Context) ([]int64, error)
	Append(ctx context.Context, recs []model.Record) (int64, error)
	EnsureTable(ctx context.Context) error
	Close() error
}

// Open connects to the table store selected by driver.
func Open(ctx context.Context, driver, dsn, table string) (Store, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return OpenPostgres(ctx, dsn, table)
	case "duckdb":
		return OpenDuckDB(ctx, dsn, table)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// tableIdent splits "schema.table" into a quoted identifier.
func tableIdent(table string) (pgx.Identifier, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, errors.New("table name is empty")
	}
	parts := strings.Split(table, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts), nil
}
