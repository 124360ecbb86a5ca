package cli

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/auth"
)

func TestNewAPIServer_RequiresKeys(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := newAPIServer()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lettermerge auth key")
}

func TestNewAPIServer_GatesRequests(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	key, err := auth.GenerateKey()
	require.NoError(t, err)
	hash, err := auth.HashKey(key)
	require.NoError(t, err)
	require.NoError(t, ts.settings.AddAPIKeyHash(hash))

	server, err := newAPIServer()
	require.NoError(t, err)

	unauth := httptest.NewRecorder()
	server.Handler().ServeHTTP(unauth, httptest.NewRequest(http.MethodGet, "/api/batches", nil))
	assert.Equal(t, http.StatusUnauthorized, unauth.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/batches", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	ok := httptest.NewRecorder()
	server.Handler().ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestServeCmd_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, flag)
	assert.Equal(t, ":8080", flag.DefValue)
}

func TestServeCmd_NotConfigured(t *testing.T) {
	requireNoServices(t, "serve")
}

func TestMCPServeCmd_RequiresServices(t *testing.T) {
	prevGenerate, prevBatches := generateService, batchService
	generateService, batchService = nil, nil
	defer func() { generateService, batchService = prevGenerate, prevBatches }()

	_, err := execute(t, "", "mcp", "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate service")
}
