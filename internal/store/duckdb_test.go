package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
)

func openTestDuckDB(t *testing.T, table string) *DuckDB {
	t.Helper()
	ctx := context.Background()
	d, err := OpenDuckDB(ctx, filepath.Join(t.TempDir(), "wh.duckdb"), table)
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.EnsureTable(ctx); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	return d
}

func TestDuckDBAppendAndLoaded(t *testing.T) {
	d := openTestDuckDB(t, "orders")
	ctx := context.Background()

	ids, err := d.LoadedBatchIDs(ctx)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty table, ids=%v err=%v", ids, err)
	}
	n, err := d.Append(ctx, []model.Record{
		{BatchID: 10, OrderID: "o-1", Amount: 1.25},
		{BatchID: 10, OrderID: "o-2", Amount: 3},
		{BatchID: 11, OrderID: "o-3", Amount: 0},
	})
	if err != nil || n != 3 {
		t.Fatalf("append: n=%d err=%v", n, err)
	}
	ids, err = d.LoadedBatchIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := model.NewBatchSet(ids...)
	if len(got) != 2 || !got.Has(10) || !got.Has(11) {
		t.Fatalf("unexpected loaded set %v", ids)
	}

	var total float64
	if err := d.db.QueryRowContext(ctx, `SELECT SUM(amount) FROM "orders"`).Scan(&total); err != nil {
		t.Fatal(err)
	}
	if total != 4.25 {
		t.Fatalf("expected sum 4.25, got %v", total)
	}
}

func TestDuckDBSchemaQualifiedTable(t *testing.T) {
	d := openTestDuckDB(t, "dev.orders")
	ctx := context.Background()
	if _, err := d.Append(ctx, []model.Record{{BatchID: 5, OrderID: "x", Amount: 1}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	ids, err := d.LoadedBatchIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != 5 {
		t.Fatalf("unexpected ids=%v err=%v", ids, err)
	}
}

func TestDuckDBMissingTableFails(t *testing.T) {
	ctx := context.Background()
	d, err := OpenDuckDB(ctx, "", "nope")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if _, err := d.LoadedBatchIDs(ctx); err == nil {
		t.Fatalf("expected error for missing table")
	}
	if _, err := d.Append(ctx, []model.Record{{BatchID: 1, OrderID: "a"}}); err == nil {
		t.Fatalf("expected error appending to missing table")
	}
}

func TestDuckDBAppendByColumnName(t *testing.T) {
	ctx := context.Background()
	d, err := OpenDuckDB(ctx, filepath.Join(t.TempDir(), "wh.duckdb"), "orders")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	ddl := `CREATE TABLE orders (order_id VARCHAR, amount DOUBLE, batch_id BIGINT, loaded_at TIMESTAMP DEFAULT current_timestamp)`
	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		t.Fatal(err)
	}
	n, err := d.Append(ctx, []model.Record{
		{BatchID: 7, OrderID: "o-1", Amount: 2.5},
		{BatchID: 7, OrderID: "o-2", Amount: 1},
	})
	if err != nil || n != 2 {
		t.Fatalf("append: n=%d err=%v", n, err)
	}
	var (
		orderID string
		amount  float64
		batchID int64
		stamped bool
	)
	row := d.db.QueryRowContext(ctx, `SELECT order_id, amount, batch_id, loaded_at IS NOT NULL FROM orders WHERE order_id = 'o-1'`)
	if err := row.Scan(&orderID, &amount, &batchID, &stamped); err != nil {
		t.Fatal(err)
	}
	if orderID != "o-1" || amount != 2.5 || batchID != 7 || !stamped {
		t.Fatalf("unexpected row %s %v %d %v", orderID, amount, batchID, stamped)
	}
}

func TestDuckDBAppendRollsBack(t *testing.T) {
	ctx := context.Background()
	d, err := OpenDuckDB(ctx, filepath.Join(t.TempDir(), "wh.duckdb"), "orders")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if _, err := d.db.ExecContext(ctx, `CREATE TABLE orders (batch_id BIGINT, order_id VARCHAR PRIMARY KEY, amount DOUBLE)`); err != nil {
		t.Fatal(err)
	}
	_, err = d.Append(ctx, []model.Record{
		{BatchID: 1, OrderID: "dup", Amount: 1},
		{BatchID: 1, OrderID: "dup", Amount: 2},
	})
	if err == nil {
		t.Fatalf("expected duplicate key error")
	}
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("failed append must leave no rows, got %d", count)
	}
	if _, err := d.Append(ctx, []model.Record{{BatchID: 2, OrderID: "ok", Amount: 1}}); err != nil {
		t.Fatalf("append after rollback: %v", err)
	}
}
