package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/mime"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/google"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

type gmailServer struct {
	mu     sync.Mutex
	raws   []string
	status int
}

func (g *gmailServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/users/me/messages/send") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if g.status != 0 {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(g.status)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"slow down"}}`))
		return
	}
	var body struct {
		Raw string `json:"raw"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g.raws = append(g.raws, body.Raw)
	_, _ = w.Write([]byte(`{"id":"msg-1"}`))
}

func newTestSender(t *testing.T, g *gmailServer) *Sender {
	t.Helper()
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)

	svc, err := google.NewGmailService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return NewSender(svc, google.NewRateLimiterWithConfig(google.RateLimitConfig{}))
}

func message() domain.Message {
	return domain.Message{
		From:    "hr@example.com",
		To:      "ravi@example.com",
		Subject: "Appraisal Letter",
		Body:    "Dear Ravi,\nPlease find attachment for your appraisal letter.",
		Attachment: domain.Attachment{
			Filename:    "E102_Ravi.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.7 test"),
		},
		Date: time.Date(2025, 2, 6, 9, 30, 0, 0, time.UTC),
	}
}

func TestSender_Send(t *testing.T) {
	g := &gmailServer{}
	s := newTestSender(t, g)
	assert.Equal(t, "gmail", s.Name())

	id, err := s.Send(context.Background(), message())
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	require.Len(t, g.raws, 1)
	raw, err := base64.URLEncoding.DecodeString(g.raws[0])
	require.NoError(t, err)
	got, _, err := mime.Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.com", got.To)
	assert.Equal(t, []byte("%PDF-1.7 test"), got.Attachment.Data)
}

func TestSender_RateLimited(t *testing.T) {
	g := &gmailServer{status: http.StatusTooManyRequests}
	s := newTestSender(t, g)

	_, err := s.Send(context.Background(), message())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.False(t, s.limiter.Allow(), "limiter backs off after a 429")
}

func TestSender_InvalidRecipient(t *testing.T) {
	g := &gmailServer{}
	s := newTestSender(t, g)

	msg := message()
	msg.To = "nobody"
	_, err := s.Send(context.Background(), msg)
	assert.Error(t, err)
	assert.Empty(t, g.raws)
}
