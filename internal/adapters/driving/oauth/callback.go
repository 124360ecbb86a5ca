// Package oauth runs the browser consent flow that authorises Gmail delivery
// and Drive publication.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// CallbackPath is where the provider redirects after consent.
const CallbackPath = "/callback"

// ErrStateMismatch is returned when the callback does not carry the state
// the flow was started with.
var ErrStateMismatch = errors.New("oauth: state mismatch")

// CallbackServer receives a single authorization code on the loopback interface.
type CallbackServer struct {
	mu            sync.Mutex
	port          int
	expectedState string
	codeChan      chan string
	errChan       chan error
	server        *http.Server
}

// NewCallbackServer creates a callback server. A port of 0 picks a free port.
func NewCallbackServer(port int, expectedState string) *CallbackServer {
	return &CallbackServer{
		port:          port,
		expectedState: expectedState,
		codeChan:      make(chan string, 1),
		errChan:       make(chan error, 1),
	}
}

// Start listens on 127.0.0.1 and serves the callback in the background.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.report(err)
		}
	}()

	return nil
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if errParam := query.Get("error"); errParam != "" {
		s.report(fmt.Errorf("oauth error: %s - %s", errParam, query.Get("error_description")))
		fmt.Fprint(w, resultHTML("Authorization failed", query.Get("error_description")))
		return
	}

	if query.Get("state") != s.expectedState {
		s.report(ErrStateMismatch)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, resultHTML("Authorization failed", "The request state did not match."))
		return
	}

	code := query.Get("code")
	if code == "" {
		s.report(errors.New("oauth: no authorization code received"))
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, resultHTML("Authorization failed", "No authorization code was received."))
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}

	fmt.Fprint(w, resultHTML("Authorization successful", "You can close this window and return to lettermerge."))
}

// report keeps the first error only.
func (s *CallbackServer) report(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

// Wait blocks until a code arrives, the callback fails or ctx ends.
func (s *CallbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts the server down. It is safe to call more than once.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Port returns the listening port.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// RedirectURI returns the loopback redirect registered with the provider.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", s.Port(), CallbackPath)
}

func resultHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>lettermerge</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #FAFAFA;
               display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
        .box { background: white; padding: 40px 56px; border: 1px solid #C7C8CC; border-radius: 12px; }
        h1 { color: #333F50; font-size: 22px; margin: 0 0 8px 0; }
        p { color: #7B8088; margin: 0; }
    </style>
</head>
<body>
    <div class="box">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}

// OpenBrowser opens the default browser at url.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
