package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

const testKey = "lm_test"

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	server   *Server
	generate *mockGenerate
	batches  *mockBatches
}

func newFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		generate: &mockGenerate{},
		batches: &mockBatches{
			runs:       map[string]*domain.BatchRun{},
			deliveries: map[string][]domain.DeliveryResult{},
			progress:   map[string]*domain.BatchProgress{},
		},
	}
	server, err := NewServer(&Ports{Generate: f.generate, Batches: f.batches, Auth: keyAuthorizer{key: testKey}})
	require.NoError(t, err)
	f.server = server
	return f
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile(tableField, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/batches", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestNewServer_RequiresPorts(t *testing.T) {
	_, err := NewServer(&Ports{})
	assert.ErrorIs(t, err, ErrMissingPorts)

	_, err = NewServer(&Ports{Generate: &mockGenerate{}, Batches: &mockBatches{}})
	assert.Error(t, err)
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + testKey, http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusForbidden},
		{"lowercase scheme", "bearer " + testKey, http.StatusOK},
		{"valid", "Bearer " + testKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/batches", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			f.server.Handler().ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCreateBatch(t *testing.T) {
	f := newFixture(t)
	f.generate.GenerateFunc = func(_ context.Context, _ domain.GenerateRequest) (*domain.BatchResult, error) {
		return &domain.BatchResult{
			BatchID:           "b1",
			ArchivePath:       "out/employee_documents_20250206_093000.zip",
			Entries:           []string{"E1_Asha.pdf"},
			DeliveriesQueued:  1,
			DeliveriesDrained: true,
		}, nil
	}

	w := f.do(uploadRequest(t, "staff.csv", "Emp ID,Name\n", map[string]string{"send": "true"}))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	batch := body["batch"].(map[string]any)
	assert.Equal(t, "b1", batch["id"])
	assert.Equal(t, float64(1), batch["deliveries_queued"])

	assert.Equal(t, "staff.csv", f.generate.gotReq.TableName)
	assert.True(t, f.generate.gotReq.Deliver)
	assert.False(t, f.generate.gotReq.ContinueOnError)
	assert.Equal(t, "Emp ID,Name\n", string(f.generate.gotTable))
}

func TestCreateBatch_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		check  func(string) error
		genErr error
		status int
		msg    string
	}{
		{
			name:   "no file",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "", "", nil) },
			status: http.StatusBadRequest,
			msg:    "table",
		},
		{
			name: "legacy workbook",
			req:  func(t *testing.T) *http.Request { return uploadRequest(t, "staff.xls", "x", nil) },
			check: func(string) error {
				return fmt.Errorf("legacy .xls workbooks are not supported: %w", domain.ErrUnsupportedType)
			},
			status: http.StatusUnsupportedMediaType,
			msg:    ".xls",
		},
		{
			name: "bad send flag",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "staff.csv", "x", map[string]string{"send": "perhaps"})
			},
			status: http.StatusBadRequest,
			msg:    "send",
		},
		{
			name:   "validation",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "staff.csv", "x", nil) },
			genErr: &domain.ValidationError{Missing: []string{"HRA"}},
			status: http.StatusUnprocessableEntity,
			msg:    "HRA",
		},
		{
			name:   "render failure",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "staff.csv", "x", nil) },
			genErr: &domain.RenderError{Record: 2, Filename: "E3.pdf", Err: fmt.Errorf("boom")},
			status: http.StatusInternalServerError,
			msg:    "E3.pdf",
		},
		{
			name:   "archive name taken",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "staff.csv", "x", nil) },
			genErr: fmt.Errorf("create archive: archive letters.zip: %w", domain.ErrAlreadyExists),
			status: http.StatusConflict,
			msg:    "letters.zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.generate.CheckFunc = tt.check
			if tt.genErr != nil {
				f.generate.GenerateFunc = func(context.Context, domain.GenerateRequest) (*domain.BatchResult, error) {
					return nil, tt.genErr
				}
			}

			w := f.do(tt.req(t))

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], tt.msg)
		})
	}
}

func TestListBatches(t *testing.T) {
	f := newFixture(t)
	f.batches.runs["b1"] = &domain.BatchRun{ID: "b1", State: domain.BatchStateDone, Total: 3, StartedAt: time.Now()}

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/batches?limit=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, 5, f.batches.listLimit)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/batches?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBatch(t *testing.T) {
	f := newFixture(t)
	f.batches.runs["b1"] = &domain.BatchRun{ID: "b1", State: domain.BatchStateDeliveryDraining, Total: 2}
	f.batches.deliveries["b1"] = []domain.DeliveryResult{
		{Recipient: "a@example.com", Filename: "E1.pdf", Status: domain.DeliveryStatusSent, MessageID: "m1"},
	}
	f.batches.progress["b1"] = &domain.BatchProgress{BatchID: "b1", State: domain.BatchStateDeliveryDraining, Rendered: 2, Total: 2}

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/batches/b1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "delivery_draining", body["batch"].(map[string]any)["state"])
	assert.Len(t, body["deliveries"], 1)
	assert.Equal(t, float64(1), body["progress"].(map[string]any)["fraction"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/batches/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetArchive(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "employee_documents_1.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK-archive"), 0600))
	f.batches.runs["b1"] = &domain.BatchRun{ID: "b1", State: domain.BatchStateDone, ArchivePath: path}
	f.batches.runs["b2"] = &domain.BatchRun{ID: "b2", State: domain.BatchStateFailed}
	f.batches.runs["b3"] = &domain.BatchRun{ID: "b3", State: domain.BatchStateDone, ArchivePath: path + ".gone"}

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/batches/b1/archive", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PK-archive", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "employee_documents_1.zip")

	for _, id := range []string{"b2", "b3", "b4"} {
		w = f.do(httptest.NewRequest(http.MethodGet, "/api/batches/"+id+"/archive", nil))
		assert.Equal(t, http.StatusNotFound, w.Code, id)
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("BEARER  abc "))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken("Token abc"))
}
