package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
)

// DuckDB is a table store backed by a DuckDB database file (or memory when
// the path is empty). Appends go through a query Appender that inserts into
// the named columns, so the table may carry extra or reordered columns.
type DuckDB struct {
	db     *sql.DB
	table  pgx.Identifier
	schema string
}

// OpenDuckDB opens the database at path.
func OpenDuckDB(ctx context.Context, path, table string) (*DuckDB, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return nil, err
	}
	if len(ident) > 2 {
		return nil, fmt.Errorf("invalid duckdb table name %q", table)
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DuckDB: %w", err)
	}
	d := &DuckDB{db: db, table: ident}
	if len(ident) == 2 {
		d.schema = ident[0]
	}
	return d, nil
}

func (d *DuckDB) LoadedBatchIDs(ctx context.Context) ([]int64, error) {
	q := "SELECT DISTINCT batch_id FROM " + d.table.Sanitize() + " WHERE batch_id IS NOT NULL"
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, classifySQL(fmt.Errorf("querying loaded batches: %w", err))
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning batch id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQL(fmt.Errorf("reading loaded batches: %w", err))
	}
	return ids, nil
}

// Append writes recs inside one transaction; a failure rolls back every row.
func (d *DuckDB) Append(ctx context.Context, recs []model.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return 0, classifySQL(fmt.Errorf("acquiring connection: %w", err))
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return 0, classifySQL(fmt.Errorf("begin: %w", err))
	}
	err = conn.Raw(func(dc any) error {
		c, ok := dc.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", dc)
		}
		types, err := appendTypes()
		if err != nil {
			return err
		}
		a, err := duckdb.NewQueryAppender(c, d.insertQuery(), "", types, Columns)
		if err != nil {
			return fmt.Errorf("creating appender: %w", err)
		}
		for _, r := range recs {
			if err := a.AppendRow(int64(r.BatchID), r.OrderID, r.Amount); err != nil {
				_ = a.Close()
				return fmt.Errorf("appending row for order %s: %w", r.OrderID, err)
			}
		}
		return a.Close()
	})
	if err != nil {
		_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		return 0, classifySQL(err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		return 0, classifySQL(fmt.Errorf("commit: %w", err))
	}
	return int64(len(recs)), nil
}

// insertQuery copies the appended rows into the target table by column name.
func (d *DuckDB) insertQuery() string {
	cols := strings.Join(Columns, ", ")
	return "INSERT INTO " + d.table.Sanitize() + " (" + cols + ") SELECT " + cols + " FROM appended_data"
}

func appendTypes() ([]duckdb.TypeInfo, error) {
	var types []duckdb.TypeInfo
	for _, t := range []duckdb.Type{duckdb.TYPE_BIGINT, duckdb.TYPE_VARCHAR, duckdb.TYPE_DOUBLE} {
		ti, err := duckdb.NewTypeInfo(t)
		if err != nil {
			return nil, fmt.Errorf("appender column type: %w", err)
		}
		types = append(types, ti)
	}
	return types, nil
}

func (d *DuckDB) EnsureTable(ctx context.Context) error {
	if d.schema != "" {
		if _, err := d.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{d.schema}.Sanitize()); err != nil {
			return classifySQL(fmt.Errorf("creating schema: %w", err))
		}
	}
	ddl := "CREATE TABLE IF NOT EXISTS " + d.table.Sanitize() +
		" (batch_id BIGINT NOT NULL, order_id VARCHAR NOT NULL, amount DOUBLE)"
	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return classifySQL(fmt.Errorf("creating table: %w", err))
	}
	return nil
}

func (d *DuckDB) Close() error { return d.db.Close() }

func classifySQL(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrConnLost, err)
	}
	return err
}
