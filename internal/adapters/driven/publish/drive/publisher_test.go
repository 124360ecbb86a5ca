package drive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/google"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

func newTestPublisher(t *testing.T, handler http.HandlerFunc) *Publisher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := google.NewDriveService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	p, err := NewPublisher(svc, "folder-1")
	require.NoError(t, err)
	return p
}

func writeArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "employee_documents_20250206_093000.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04archive"), 0o644))
	return path
}

func TestPublisher_Publish(t *testing.T) {
	var body string
	p := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-9","webViewLink":"https://drive.example/file-9"}`))
	})

	link, err := p.Publish(context.Background(), writeArchive(t))
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example/file-9", link)
	assert.Contains(t, body, "employee_documents_20250206_093000.zip")
	assert.Contains(t, body, "folder-1")
	assert.Contains(t, body, "PK\x03\x04archive")
}

func TestPublisher_FallbackLink(t *testing.T) {
	p := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-9"}`))
	})

	link, err := p.Publish(context.Background(), writeArchive(t))
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/file/d/file-9/view", link)
}

func TestPublisher_Errors(t *testing.T) {
	_, err := NewPublisher(nil, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	p := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"folder missing"}}`))
	})

	_, err = p.Publish(context.Background(), writeArchive(t))
	assert.ErrorIs(t, err, google.ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "folder missing"))

	_, err = p.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)
}
