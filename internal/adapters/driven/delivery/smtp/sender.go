// Package smtp delivers messages through an SMTP relay.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strconv"
	"time"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/mime"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// Ensure Sender implements the interface.
var _ driven.Sender = (*Sender)(nil)

// dialTimeout bounds connecting to the relay when ctx has no deadline.
const dialTimeout = 30 * time.Second

// Sender opens one connection per message. STARTTLS is used when the
// relay offers it; credentials are only sent over TLS.
type Sender struct {
	settings  domain.SMTPSettings
	tlsConfig *tls.Config
}

// NewSender creates an SMTP sender.
func NewSender(settings domain.SMTPSettings) (*Sender, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: smtp host and port are required", domain.ErrInvalidInput)
	}
	return &Sender{
		settings:  settings,
		tlsConfig: &tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12},
	}, nil
}

// Name identifies the transport.
func (s *Sender) Name() string { return "smtp" }

// Send delivers one message and returns its Message-ID.
func (s *Sender) Send(ctx context.Context, msg domain.Message) (string, error) {
	from, err := envelopeAddress(msg.From)
	if err != nil {
		return "", fmt.Errorf("sender: %w", err)
	}
	to, err := envelopeAddress(msg.To)
	if err != nil {
		return "", fmt.Errorf("recipient: %w", err)
	}

	id := mime.NewMessageID(s.settings.Host)
	raw, err := mime.Build(msg, id)
	if err != nil {
		return "", fmt.Errorf("build message: %w", err)
	}

	addr := net.JoinHostPort(s.settings.Host, strconv.Itoa(s.settings.Port))
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	client, err := gosmtp.NewClient(conn, s.settings.Host)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := s.transmit(client, from, to, raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.Join(ctxErr, err)
		}
		return "", err
	}
	logger.Debug("smtp: sent %s to %s via %s", msg.Attachment.Filename, msg.To, addr)
	return id, nil
}

func (s *Sender) transmit(client *gosmtp.Client, from, to string, raw []byte) error {
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(s.tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.settings.Username != "" {
		if _, isTLS := client.TLSConnectionState(); !isTLS {
			return errors.New("smtp: refusing to authenticate without TLS")
		}
		auth := gosmtp.PlainAuth("", s.settings.Username, s.settings.Password, s.settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("end data: %w", err)
	}
	return client.Quit()
}

// envelopeAddress returns the bare address of a header value.
func envelopeAddress(header string) (string, error) {
	if header == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}
