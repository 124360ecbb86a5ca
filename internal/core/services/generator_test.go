package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/layout/memory"
	store "github.com/custodia-labs/lettermerge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/table"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

func csvTable(t *testing.T, records ...domain.Record) *bytes.Buffer {
	t.Helper()
	cols := defaultColumns()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(cols))
	for _, rec := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = rec.Values[c]
		}
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return &buf
}

type generatorFixture struct {
	gen      *Generator
	settings *SettingsService
	sink     *memorySink
	outDir   string
}

func newGeneratorFixture(t *testing.T) *generatorFixture {
	t.Helper()
	f := &generatorFixture{sink: &memorySink{}, outDir: t.TempDir()}

	f.settings = NewSettingsService(store.NewConfigStore())
	s, err := f.settings.Get()
	require.NoError(t, err)
	s.Batch.Template = filepath.Join("testdata", "letter.layout")
	s.Batch.OutputDir = f.outDir
	require.NoError(t, f.settings.Save(s))

	orch := NewBatchOrchestrator(memory.NewEngine(), f.sink, store.NewBatchRunStore(), nil, nil, nil, BatchConfig{})
	f.gen = NewGenerator(table.NewDefaultRegistry(), file.NewMappingLoader(), orch, f.settings)
	return f
}

func TestGenerator_Generate(t *testing.T) {
	f := newGeneratorFixture(t)

	result, err := f.gen.Generate(context.Background(), domain.GenerateRequest{
		TableName: "staff.csv",
		Table:     csvTable(t, threeRows()...),
	})

	require.NoError(t, err)
	assert.Equal(t, f.outDir, filepath.Dir(result.ArchivePath))
	assert.Len(t, result.Entries, 3)
	assert.Contains(t, string(f.sink.last().files["E102_Ravi_Kumar.pdf"]), "Ravi Kumar")
}

func TestGenerator_RequestOverridesSettings(t *testing.T) {
	f := newGeneratorFixture(t)
	outDir := t.TempDir()

	mapping := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(mapping, []byte("recipient_column: \"\"\n"), 0600))

	result, err := f.gen.Generate(context.Background(), domain.GenerateRequest{
		TableName:   "staff.CSV",
		Table:       csvTable(t, fullRow(0, nil)),
		OutputDir:   outDir,
		MappingPath: mapping,
	})

	require.NoError(t, err)
	assert.Equal(t, outDir, filepath.Dir(result.ArchivePath))
}

func TestGenerator_Preview(t *testing.T) {
	f := newGeneratorFixture(t)

	plans, err := f.gen.Preview(context.Background(), domain.GenerateRequest{
		TableName: "staff.csv",
		Table:     csvTable(t, threeRows()...),
	})

	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "E101_Asha_Rao.pdf", plans[0].Filename)
	assert.Nil(t, f.sink.last())
}

func TestGenerator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    domain.GenerateRequest
		target error
		msg    string
	}{
		{
			name:   "legacy workbook",
			req:    domain.GenerateRequest{TableName: "staff.xls", Table: strings.NewReader("")},
			target: domain.ErrUnsupportedType,
			msg:    ".xlsx or .csv",
		},
		{
			name:   "unknown extension",
			req:    domain.GenerateRequest{TableName: "staff.json", Table: strings.NewReader("")},
			target: domain.ErrUnsupportedType,
			msg:    ".csv, .xlsx",
		},
		{
			name:   "missing table",
			req:    domain.GenerateRequest{TableName: "staff.csv"},
			target: domain.ErrInvalidInput,
		},
		{
			name: "missing template",
			req: domain.GenerateRequest{
				TableName:    "staff.csv",
				Table:        strings.NewReader("Emp ID,Name\n"),
				TemplatePath: "testdata/absent.pdf",
			},
			target: domain.ErrTemplateLoad,
			msg:    "absent.pdf",
		},
		{
			name: "missing columns",
			req: domain.GenerateRequest{
				TableName: "staff.csv",
				Table:     strings.NewReader("Emp ID,Name\nE1,Asha\n"),
			},
			target: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGeneratorFixture(t)
			_, err := f.gen.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
			assert.Nil(t, f.sink.last())
		})
	}
}
