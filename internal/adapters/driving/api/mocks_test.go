package api

import (
	"context"
	"io"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// mockGenerate implements driving.GenerateService for testing.
type mockGenerate struct {
	GenerateFunc func(ctx context.Context, req domain.GenerateRequest) (*domain.BatchResult, error)
	CheckFunc    func(name string) error

	gotTable []byte
	gotReq   domain.GenerateRequest
}

func (m *mockGenerate) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.BatchResult, error) {
	m.gotReq = req
	if req.Table != nil {
		m.gotTable, _ = io.ReadAll(req.Table)
	}
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &domain.BatchResult{BatchID: "b1"}, nil
}

func (m *mockGenerate) Preview(context.Context, domain.GenerateRequest) ([]*domain.SubstitutionPlan, error) {
	return nil, nil
}

func (m *mockGenerate) CheckTableName(name string) error {
	if m.CheckFunc != nil {
		return m.CheckFunc(name)
	}
	return nil
}

// mockBatches implements driving.BatchService for testing.
type mockBatches struct {
	runs       map[string]*domain.BatchRun
	deliveries map[string][]domain.DeliveryResult
	progress   map[string]*domain.BatchProgress
	listLimit  int
}

func (m *mockBatches) Run(context.Context, domain.BatchRequest) (*domain.BatchResult, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockBatches) Plan(context.Context, domain.BatchRequest) ([]*domain.SubstitutionPlan, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockBatches) Status(id string) (*domain.BatchProgress, error) {
	if p, ok := m.progress[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockBatches) List(_ context.Context, limit int) ([]domain.BatchRun, error) {
	m.listLimit = limit
	out := make([]domain.BatchRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockBatches) Get(_ context.Context, id string) (*domain.BatchRun, error) {
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockBatches) Deliveries(_ context.Context, id string) ([]domain.DeliveryResult, error) {
	return m.deliveries[id], nil
}

// keyAuthorizer accepts a single key.
type keyAuthorizer struct{ key string }

func (a keyAuthorizer) Authorize(_ context.Context, credential string) error {
	switch credential {
	case "":
		return domain.ErrAuthRequired
	case a.key:
		return nil
	default:
		return domain.ErrAuthInvalid
	}
}
