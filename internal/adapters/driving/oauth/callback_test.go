//nolint:noctx // Test file uses http.Get for convenience; context not required in tests
package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, state string) *CallbackServer {
	t.Helper()
	server := NewCallbackServer(0, state)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func callback(t *testing.T, server *CallbackServer, params url.Values) (int, string) {
	t.Helper()
	resp, err := http.Get(server.RedirectURI() + "?" + params.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCallbackServer_Start_PicksPort(t *testing.T) {
	server := startServer(t, "s")

	assert.NotZero(t, server.Port())
	assert.Contains(t, server.RedirectURI(), "http://127.0.0.1:")
	assert.Contains(t, server.RedirectURI(), CallbackPath)
}

func TestCallbackServer_Start_PortInUse(t *testing.T) {
	first := startServer(t, "s")

	second := NewCallbackServer(first.Port(), "s")
	err := second.Start()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestCallbackServer_Success(t *testing.T) {
	server := startServer(t, "state-1")

	status, body := callback(t, server, url.Values{"state": {"state-1"}, "code": {"abc"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Authorization successful")

	code, err := server.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}

func TestCallbackServer_Failures(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
		status int
		errMsg string
	}{
		{
			name:   "state mismatch",
			params: url.Values{"state": {"other"}, "code": {"abc"}},
			status: http.StatusBadRequest,
			errMsg: "state mismatch",
		},
		{
			name:   "state is case sensitive",
			params: url.Values{"state": {"STATE-1"}, "code": {"abc"}},
			status: http.StatusBadRequest,
			errMsg: "state mismatch",
		},
		{
			name:   "missing code",
			params: url.Values{"state": {"state-1"}},
			status: http.StatusBadRequest,
			errMsg: "no authorization code",
		},
		{
			name:   "provider error",
			params: url.Values{"error": {"access_denied"}, "error_description": {"<denied>"}},
			status: http.StatusOK,
			errMsg: "access_denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, "state-1")

			status, body := callback(t, server, tt.params)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, body, "Authorization failed")
			assert.NotContains(t, body, "<denied>")

			_, err := server.Wait(waitCtx(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCallbackServer_Wait_ContextDone(t *testing.T) {
	server := startServer(t, "s")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := server.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallbackServer_OnlyFirstCodeKept(t *testing.T) {
	server := startServer(t, "s")

	callback(t, server, url.Values{"state": {"s"}, "code": {"first"}})
	callback(t, server, url.Values{"state": {"s"}, "code": {"second"}})

	code, err := server.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "first", code)
}

func TestCallbackServer_Stop(t *testing.T) {
	server := NewCallbackServer(0, "s")
	assert.NoError(t, server.Stop())

	require.NoError(t, server.Start())
	assert.NoError(t, server.Stop())
	assert.NoError(t, server.Stop())

	_, err := http.Get(server.RedirectURI())
	assert.Error(t, err)
}

func TestCallbackServer_UnknownPath(t *testing.T) {
	server := startServer(t, "s")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/other", server.Port()))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResultHTML_Escapes(t *testing.T) {
	page := resultHTML("Done", "<script>alert(1)</script>")

	assert.Contains(t, page, "<h1>Done</h1>")
	assert.Contains(t, page, "&lt;script&gt;")
	assert.NotContains(t, page, "<script>")
}
