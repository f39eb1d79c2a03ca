package pipeline

import (
	"context"
	"fmt"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/normalize"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/snapshot"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
)

// Source yields normalized rows for a pipeline.
type Source interface {
	Rows(ctx context.Context) ([]table.Row, error)
}

// DirSource parses and normalizes a directory of raw snapshot files.
type DirSource struct {
	Dir string
}

// Rows implements Source.
func (s DirSource) Rows(ctx context.Context) ([]table.Row, error) {
	recs, _, err := snapshot.ParseDir(s.Dir)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, _ := normalize.Normalize(recs)
	return t.Rows(), nil
}

// CSVSource reads a table previously written by the watcher.
type CSVSource struct {
	Path string
}

// Rows implements Source.
func (s CSVSource) Rows(ctx context.Context) ([]table.Row, error) {
	rows, err := table.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", s.Path, err)
	}
	return rows, nil
}

// RowsSource serves rows already in memory.
type RowsSource []table.Row

// Rows implements Source.
func (s RowsSource) Rows(context.Context) ([]table.Row, error) {
	return s, nil
}
