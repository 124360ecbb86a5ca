// Package csv reads input tables from comma-separated files.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure Reader implements the interface.
var _ driven.TableReader = (*Reader)(nil)

// Reader decodes CSV with a header row.
type Reader struct {
	// Comma is the field delimiter.
	Comma rune
}

// NewReader creates a comma-delimited reader.
func NewReader() *Reader {
	return &Reader{Comma: ','}
}

// Read decodes every row. Rows may have differing field counts.
func (r *Reader) Read(ctx context.Context, src io.Reader) (*domain.Table, error) {
	cr := csv.NewReader(src)
	cr.Comma = r.Comma
	cr.FieldsPerRecord = -1

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}

	table, err := domain.NewTable(rows)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return table, nil
}
