// Package gmail delivers messages through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/mime"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/google"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// Ensure Sender implements the interface.
var _ driven.Sender = (*Sender)(nil)

// me addresses the authorised account.
const me = "me"

// Sender submits messages as the consenting Google account.
type Sender struct {
	svc     *gmailapi.Service
	limiter *google.RateLimiter
	host    string
}

// NewSender creates a Gmail sender. A nil limiter uses the Gmail default.
func NewSender(svc *gmailapi.Service, limiter *google.RateLimiter) *Sender {
	if limiter == nil {
		limiter = google.NewRateLimiter(google.ServiceGmail)
	}
	return &Sender{svc: svc, limiter: limiter, host: "mail.gmail.com"}
}

// Name identifies the transport.
func (s *Sender) Name() string { return "gmail" }

// Send uploads the message and returns Gmail's message ID.
func (s *Sender) Send(ctx context.Context, msg domain.Message) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	raw, err := mime.Build(msg, mime.NewMessageID(s.host))
	if err != nil {
		return "", fmt.Errorf("build message: %w", err)
	}

	sent, err := s.svc.Users.Messages.
		Send(me, &gmailapi.Message{Raw: base64.URLEncoding.EncodeToString(raw)}).
		Context(ctx).
		Do()
	if err != nil {
		if google.IsRateLimited(err) {
			retry := google.RetryAfter(err)
			logger.Warn("gmail: rate limited, backing off (retry-after %ds)", retry)
			s.limiter.RecordRateLimitError(retry)
		}
		return "", google.WrapError(err)
	}
	logger.Debug("gmail: sent %s to %s as %s", msg.Attachment.Filename, msg.To, sent.Id)
	return sent.Id, nil
}
