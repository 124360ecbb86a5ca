package mcp

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// mockGenerateService implements driving.GenerateService for testing.
type mockGenerateService struct {
	result *domain.BatchResult
	plans  []*domain.SubstitutionPlan
	err    error

	gotReq   domain.GenerateRequest
	gotTable string
}

func (m *mockGenerateService) Generate(_ context.Context, req domain.GenerateRequest) (*domain.BatchResult, error) {
	m.capture(req)
	return m.result, m.err
}

func (m *mockGenerateService) Preview(_ context.Context, req domain.GenerateRequest) ([]*domain.SubstitutionPlan, error) {
	m.capture(req)
	return m.plans, m.err
}

func (m *mockGenerateService) CheckTableName(name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return nil
	default:
		return domain.ErrUnsupportedType
	}
}

func (m *mockGenerateService) capture(req domain.GenerateRequest) {
	m.gotReq = req
	if req.Table != nil {
		data, _ := io.ReadAll(req.Table)
		m.gotTable = string(data)
	}
}

// mockBatchService implements driving.BatchService for testing.
type mockBatchService struct {
	runs       []domain.BatchRun
	deliveries []domain.DeliveryResult
	err        error
	limit      int
}

func (m *mockBatchService) Run(context.Context, domain.BatchRequest) (*domain.BatchResult, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockBatchService) Plan(context.Context, domain.BatchRequest) ([]*domain.SubstitutionPlan, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockBatchService) Status(string) (*domain.BatchProgress, error) {
	return nil, domain.ErrNotFound
}

func (m *mockBatchService) List(_ context.Context, limit int) ([]domain.BatchRun, error) {
	m.limit = limit
	return m.runs, m.err
}

func (m *mockBatchService) Get(_ context.Context, id string) (*domain.BatchRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockBatchService) Deliveries(context.Context, string) ([]domain.DeliveryResult, error) {
	return m.deliveries, nil
}
