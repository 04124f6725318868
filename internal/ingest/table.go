package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Canonical column names after normalization.
const (
	ColBatchID = "BATCH_ID"
	ColOrderID = "ORDER_ID"
	ColAmount  = "AMOUNT"
)

var errEmptyPayload = errors.New("empty payload")

// NormalizeColumn maps a source header to its canonical form.
func NormalizeColumn(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// table is a parsed CSV payload with normalized headers.
type table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errEmptyPayload
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := &table{columns: make([]string, len(header)), index: make(map[string]int, len(header))}
	for i, h := range header {
		name := NormalizeColumn(h)
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q after normalization", name)
		}
		t.columns[i] = name
		t.index[name] = i
	}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(t.rows)+1, err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// column returns the position of a canonical column name.
func (t *table) column(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}
