// Package xlsx reads input tables from the first sheet of an Excel workbook.
package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure Reader implements the interface.
var _ driven.TableReader = (*Reader)(nil)

// Reader decodes .xlsx workbooks.
type Reader struct {
	// Sheet selects a sheet by name. Empty reads the first sheet.
	Sheet string
}

// NewReader creates a reader for the first sheet.
func NewReader() *Reader {
	return &Reader{}
}

// Read decodes the sheet. Cells are read unformatted, so numbers keep
// their stored value rather than the workbook's display format.
func (r *Reader) Read(ctx context.Context, src io.Reader) (*domain.Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets: %w", domain.ErrInvalidInput)
		}
		sheet = sheets[0]
	}

	iter, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	defer iter.Close()

	var rows [][]string
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := iter.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		rows = append(rows, row)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	table, err := domain.NewTable(rows)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return table, nil
}
