// Package catalog resolves batch files on disk for the batch source server.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
)

// ErrNotFound is returned when a catalog file does not exist.
var ErrNotFound = errors.New("catalog file not found")

// Dir is a catalog rooted at a directory:
//
//	<root>/<listFile>     batch list, one batch_id column
//	<root>/<id>.csv       data for batch id
type Dir struct {
	root     string
	listFile string
}

// New returns a catalog for root. listFile is resolved relative to root
// unless it is absolute.
func New(root, listFile string) *Dir {
	return &Dir{root: root, listFile: listFile}
}

// ListPath returns the path of the batch list file.
func (d *Dir) ListPath() string {
	if filepath.IsAbs(d.listFile) {
		return d.listFile
	}
	return filepath.Join(d.root, d.listFile)
}

// DataPath returns the path of a batch data file.
func (d *Dir) DataPath(id model.BatchID) string {
	return filepath.Join(d.root, id.String()+".csv")
}

// BatchList opens the batch list file.
func (d *Dir) BatchList() (*os.File, error) {
	return open(d.ListPath())
}

// BatchData opens the data file of batch id.
func (d *Dir) BatchData(id model.BatchID) (*os.File, error) {
	return open(d.DataPath(id))
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory: %w", path, ErrNotFound)
	}
	return f, nil
}
