package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
)

// Postgres is a table store backed by a single PostgreSQL connection.
type Postgres struct {
	conn  *pgx.Conn
	table pgx.Identifier
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return &Postgres{conn: conn, table: ident}, nil
}

func (p *Postgres) LoadedBatchIDs(ctx context.Context) ([]int64, error) {
	q := "SELECT DISTINCT batch_id FROM " + p.table.Sanitize() + " WHERE batch_id IS NOT NULL"
	rows, err := p.conn.Query(ctx, q)
	if err != nil {
		return nil, p.classify(fmt.Errorf("querying loaded batches: %w", err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, p.classify(fmt.Errorf("reading loaded batches: %w", err))
	}
	return ids, nil
}

// Append writes recs with a single COPY, so a batch lands entirely or not at all.
func (p *Postgres) Append(ctx context.Context, recs []model.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	n, err := p.conn.CopyFrom(ctx, p.table, Columns, pgx.CopyFromSlice(len(recs), func(i int) ([]any, error) {
		r := recs[i]
		return []any{int64(r.BatchID), r.OrderID, r.Amount}, nil
	}))
	if err != nil {
		return 0, p.classify(fmt.Errorf("copy into %s: %w", p.table.Sanitize(), err))
	}
	return n, nil
}

func (p *Postgres) EnsureTable(ctx context.Context) error {
	ddl := "CREATE TABLE IF NOT EXISTS " + p.table.Sanitize() +
		" (batch_id BIGINT NOT NULL, order_id TEXT NOT NULL, amount DOUBLE PRECISION)"
	if _, err := p.conn.Exec(ctx, ddl); err != nil {
		return p.classify(fmt.Errorf("creating table: %w", err))
	}
	return nil
}

func (p *Postgres) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.conn.Close(ctx)
}

func (p *Postgres) classify(err error) error {
	if p.conn.IsClosed() {
		return fmt.Errorf("%w: %w", ErrConnLost, err)
	}
	return err
}
