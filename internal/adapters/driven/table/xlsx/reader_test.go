package xlsx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

func workbook(t *testing.T, sheet string, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReader_Read(t *testing.T) {
	buf := workbook(t, "Sheet1",
		[]any{"Emp ID", "Name", "Basic Salary", "SDR Only"},
		[]any{"E101", "Asha Rao", 600000, "N/A"},
		[]any{"E102", "Ravi", 1234567.5},
	)

	table, err := NewReader().Read(context.Background(), buf)

	require.NoError(t, err)
	assert.Equal(t, []string{"Emp ID", "Name", "Basic Salary", "SDR Only"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "600000", table.Records[0].Text("Basic Salary"))
	assert.False(t, table.Records[0].Present("SDR Only"))
	assert.Equal(t, "1234567.5", table.Records[1].Text("Basic Salary"))
	assert.False(t, table.Records[1].Present("SDR Only"))
}

func TestReader_Read_NamedSheet(t *testing.T) {
	buf := workbook(t, "Appraisals",
		[]any{"Emp ID", "Name"},
		[]any{"E200", "Meera"},
	)

	r := NewReader()
	r.Sheet = "Appraisals"
	table, err := r.Read(context.Background(), buf)

	require.NoError(t, err)
	assert.Equal(t, "Meera", table.Records[0].Text("Name"))
}

func TestReader_Read_Errors(t *testing.T) {
	_, err := NewReader().Read(context.Background(), strings.NewReader("not a workbook"))
	assert.Error(t, err)

	_, err = NewReader().Read(context.Background(), workbook(t, "Sheet1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	r := NewReader()
	r.Sheet = "Missing"
	_, err = r.Read(context.Background(), workbook(t, "Sheet1", []any{"a"}))
	assert.Error(t, err)
}
