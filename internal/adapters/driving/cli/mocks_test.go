package cli

import (
	"context"
	"io"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// mockGenerate implements driving.GenerateService for testing.
type mockGenerate struct {
	result    *domain.BatchResult
	plans     []*domain.SubstitutionPlan
	err       error
	checkErr  error
	gotReq    domain.GenerateRequest
	gotTable  []byte
	previewed bool
}

func (m *mockGenerate) Generate(_ context.Context, req domain.GenerateRequest) (*domain.BatchResult, error) {
	m.gotReq = req
	m.gotTable, _ = io.ReadAll(req.Table)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockGenerate) Preview(_ context.Context, req domain.GenerateRequest) ([]*domain.SubstitutionPlan, error) {
	m.gotReq = req
	m.previewed = true
	return m.plans, m.err
}

func (m *mockGenerate) CheckTableName(string) error {
	return m.checkErr
}

// mockBatches implements driving.BatchService for testing.
type mockBatches struct {
	runs       []domain.BatchRun
	deliveries []domain.DeliveryResult
	progress   *domain.BatchProgress
	listLimit  int
}

func (m *mockBatches) Run(context.Context, domain.BatchRequest) (*domain.BatchResult, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockBatches) Plan(context.Context, domain.BatchRequest) ([]*domain.SubstitutionPlan, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockBatches) Status(string) (*domain.BatchProgress, error) {
	if m.progress == nil {
		return nil, domain.ErrNotFound
	}
	return m.progress, nil
}

func (m *mockBatches) List(_ context.Context, limit int) ([]domain.BatchRun, error) {
	m.listLimit = limit
	return m.runs, nil
}

func (m *mockBatches) Get(_ context.Context, id string) (*domain.BatchRun, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockBatches) Deliveries(context.Context, string) ([]domain.DeliveryResult, error) {
	return m.deliveries, nil
}
