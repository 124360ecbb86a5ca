package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

func newTestServer(t *testing.T, gen *mockGenerateService, batches *mockBatchService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Generate: gen, Batches: batches})
	require.NoError(t, err)
	return server
}

func writeTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staff.csv")
	require.NoError(t, os.WriteFile(path, []byte("Emp ID,Name\nE1,Asha\n"), 0600))
	return path
}

func TestServer_handleGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the batch", func(t *testing.T) {
		gen := &mockGenerateService{result: &domain.BatchResult{
			BatchID:           "b1",
			ArchivePath:       "out/employee_documents_20250206_093000.zip",
			Entries:           []string{"E1_Asha.pdf"},
			Failures:          []domain.RecordFailure{{Record: 2, Filename: "E3.pdf", Error: "boom"}},
			DeliveriesQueued:  1,
			DeliveriesDrained: false,
		}}
		server := newTestServer(t, gen, &mockBatchService{})
		table := writeTable(t)

		_, output, err := server.handleGenerate(ctx, nil, GenerateInput{
			TablePath:       table,
			OutputDir:       "out",
			Send:            true,
			ContinueOnError: true,
		})

		require.NoError(t, err)
		assert.Equal(t, "b1", output.BatchID)
		assert.Equal(t, []string{"E1_Asha.pdf"}, output.Entries)
		assert.Equal(t, []FailureOutput{{Record: 2, Filename: "E3.pdf", Error: "boom"}}, output.Failures)
		assert.Equal(t, 1, output.DeliveriesQueued)
		assert.False(t, output.DeliveriesDrained)

		assert.Equal(t, "staff.csv", gen.gotReq.TableName)
		assert.Equal(t, "Emp ID,Name\nE1,Asha\n", gen.gotTable)
		assert.True(t, gen.gotReq.Deliver)
		assert.True(t, gen.gotReq.ContinueOnError)
		assert.Equal(t, "out", gen.gotReq.OutputDir)
	})

	t.Run("dry run returns plans", func(t *testing.T) {
		gen := &mockGenerateService{plans: []*domain.SubstitutionPlan{
			{Record: 0, Filename: "E1_Asha.pdf", Recipient: "asha@example.com"},
		}}
		server := newTestServer(t, gen, &mockBatchService{})

		_, output, err := server.handleGenerate(ctx, nil, GenerateInput{TablePath: writeTable(t), DryRun: true})

		require.NoError(t, err)
		assert.Empty(t, output.BatchID)
		assert.Equal(t, []PlanOutput{{Record: 0, Filename: "E1_Asha.pdf", Recipient: "asha@example.com"}}, output.Planned)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		server := newTestServer(t, &mockGenerateService{}, &mockBatchService{})

		_, _, err := server.handleGenerate(ctx, nil, GenerateInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, _, err = server.handleGenerate(ctx, nil, GenerateInput{TablePath: "staff.xls"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)

		_, _, err = server.handleGenerate(ctx, nil, GenerateInput{TablePath: filepath.Join(t.TempDir(), "absent.csv")})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("propagates service error", func(t *testing.T) {
		gen := &mockGenerateService{err: &domain.ValidationError{Missing: []string{"HRA"}}}
		server := newTestServer(t, gen, &mockBatchService{})

		_, _, err := server.handleGenerate(ctx, nil, GenerateInput{TablePath: writeTable(t)})

		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestServer_handleListBatches(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2025, 2, 6, 9, 30, 0, 0, time.UTC)

	t.Run("returns runs", func(t *testing.T) {
		batches := &mockBatchService{runs: []domain.BatchRun{
			{ID: "b2", State: domain.BatchStateDone, Total: 3, Rendered: 3, StartedAt: started},
			{ID: "b1", State: domain.BatchStateFailed, Error: "validation failed", StartedAt: started},
		}}
		server := newTestServer(t, &mockGenerateService{}, batches)

		_, output, err := server.handleListBatches(ctx, nil, ListBatchesInput{})

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, defaultListLimit, batches.limit)
		assert.Equal(t, "b2", output.Batches[0].ID)
		assert.Equal(t, "done", output.Batches[0].State)
		assert.Equal(t, "2025-02-06T09:30:00Z", output.Batches[0].StartedAt)
		assert.Equal(t, "validation failed", output.Batches[1].Error)
	})

	t.Run("custom limit", func(t *testing.T) {
		batches := &mockBatchService{}
		server := newTestServer(t, &mockGenerateService{}, batches)

		_, output, err := server.handleListBatches(ctx, nil, ListBatchesInput{Limit: 5})

		require.NoError(t, err)
		assert.Equal(t, 5, batches.limit)
		assert.Equal(t, 0, output.Count)
	})

	t.Run("propagates error", func(t *testing.T) {
		batches := &mockBatchService{err: errors.New("ledger closed")}
		server := newTestServer(t, &mockGenerateService{}, batches)

		_, _, err := server.handleListBatches(ctx, nil, ListBatchesInput{})

		assert.EqualError(t, err, "ledger closed")
	})
}
