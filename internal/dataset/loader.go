// Package dataset finds and materializes the tabular datasets that describe lineage.
package dataset

import (
	"context"
	"fmt"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/parser"
	"github.com/starford/lineagemap/internal/storage"
)

// Engines that can materialize rows.
const (
	EngineNative = "native"
	EngineDuckDB = "duckdb"
)

// Source is the contract the import pipeline consumes.
type Source interface {
	// FindDatasetsByName returns every dataset called name, in a stable order.
	FindDatasetsByName(ctx context.Context, name string) ([]models.DatasetRef, error)
	// LoadRows materializes the rows of ref.
	LoadRows(ctx context.Context, ref models.DatasetRef) ([]models.Row, error)
}

var _ Source = (*Loader)(nil)

// Loader implements Source over a storage.Provider.
//
// CSV, YAML and JSON files are decoded natively. Parquet needs a DuckDB
// reader; with the duckdb engine selected, CSV goes through DuckDB as well.
type Loader struct {
	files  storage.Provider
	engine string
	duck   *DuckDB
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDuckDB routes formats DuckDB can read through d. When preferred is
// true CSV files are read by DuckDB too.
func WithDuckDB(d *DuckDB, preferred bool) LoaderOption {
	return func(l *Loader) {
		l.duck = d
		if preferred {
			l.engine = EngineDuckDB
		}
	}
}

// NewLoader creates a Loader over files.
func NewLoader(files storage.Provider, opts ...LoaderOption) *Loader {
	l := &Loader{files: files, engine: EngineNative}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// List returns every dataset under the root.
func (l *Loader) List(_ context.Context) ([]models.DatasetRef, error) {
	return l.files.List("")
}

// FindDatasetsByName returns datasets whose file stem equals name, in path order.
func (l *Loader) FindDatasetsByName(ctx context.Context, name string) ([]models.DatasetRef, error) {
	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.DatasetRef{}
	for _, ref := range all {
		if ref.Name == name {
			out = append(out, ref)
		}
	}
	return out, nil
}

// LoadRows reads and decodes ref. Every failure wraps apperr.ErrDatasetLoad.
func (l *Loader) LoadRows(ctx context.Context, ref models.DatasetRef) ([]models.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.useDuckDB(ref.Format) {
		abs, err := l.files.Abs(ref.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", apperr.ErrDatasetLoad, ref.ID, err)
		}
		rows, err := l.duck.ReadRows(ctx, abs, ref.Format)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", apperr.ErrDatasetLoad, ref.ID, err)
		}
		return rows, nil
	}

	data, err := l.files.Read(ref.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrDatasetLoad, ref.ID, err)
	}
	rows, err := parser.Parse(ref.Format, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrDatasetLoad, ref.ID, err)
	}
	return rows, nil
}

func (l *Loader) useDuckDB(format string) bool {
	if l.duck == nil {
		return false
	}
	switch format {
	case storage.FormatParquet:
		return true
	case storage.FormatCSV:
		return l.engine == EngineDuckDB
	}
	return false
}
