// Package mime builds and reads RFC 5322 messages carrying one attachment.
package mime

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// lineLength is the base64 line width.
const lineLength = 76

// NewMessageID returns a globally unique Message-ID for host.
func NewMessageID(host string) string {
	if host == "" {
		host = "lettermerge.local"
	}
	return "<" + uuid.NewString() + "@" + host + ">"
}

// Build renders msg as a multipart/mixed message with a text body and
// the attachment. The boundary is derived from the message ID, so the
// output depends only on its inputs.
func Build(msg domain.Message, messageID string) ([]byte, error) {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", msg.To, err)
	}
	if msg.From != "" {
		if _, err := mail.ParseAddress(msg.From); err != nil {
			return nil, fmt.Errorf("sender %q: %w", msg.From, err)
		}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(boundary(messageID)); err != nil {
		return nil, err
	}

	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	if msg.From != "" {
		header("From", msg.From)
	}
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	if !msg.Date.IsZero() {
		header("Date", msg.Date.Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	}
	if messageID != "" {
		header("Message-ID", messageID)
	}
	header("MIME-Version", "1.0")
	header("Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()}))
	buf.WriteString("\r\n")

	body, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, err
	}
	qp := quotedprintable.NewWriter(body)
	if _, err := io.WriteString(qp, strings.ReplaceAll(msg.Body, "\n", "\r\n")); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}

	if att := msg.Attachment; att.Filename != "" {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": att.Filename})},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, att.Data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse reads a message produced by Build.
func Parse(r io.Reader) (domain.Message, string, error) {
	m, err := mail.ReadMessage(r)
	if err != nil {
		return domain.Message{}, "", fmt.Errorf("read message: %w", err)
	}

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(m.Header.Get("Subject"))
	if err != nil {
		subject = m.Header.Get("Subject")
	}
	msg := domain.Message{
		From:    m.Header.Get("From"),
		To:      m.Header.Get("To"),
		Subject: subject,
	}
	if date, err := m.Header.Date(); err == nil {
		msg.Date = date
	}

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return domain.Message{}, "", errors.New("message is not multipart")
	}

	mr := multipart.NewReader(m.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Message{}, "", fmt.Errorf("read part: %w", err)
		}
		// NextPart already undoes quoted-printable.
		data, err := io.ReadAll(part)
		if err != nil {
			return domain.Message{}, "", fmt.Errorf("read part: %w", err)
		}

		if part.FileName() == "" {
			msg.Body = strings.ReplaceAll(string(data), "\r\n", "\n")
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.Map(dropSpace, string(data)))
		if err != nil {
			return domain.Message{}, "", fmt.Errorf("decode attachment: %w", err)
		}
		contentType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		msg.Attachment = domain.Attachment{
			Filename:    part.FileName(),
			ContentType: contentType,
			Data:        decoded,
		}
	}
	return msg, m.Header.Get("Message-ID"), nil
}

func boundary(messageID string) string {
	sum := sha256.Sum256([]byte("lettermerge:" + messageID))
	return "lm-" + hex.EncodeToString(sum[:12])
}

func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := min(lineLength, len(encoded))
		if _, err := io.WriteString(w, encoded[:n]+"\r\n"); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

func dropSpace(r rune) rune {
	switch r {
	case '\r', '\n', ' ', '\t':
		return -1
	}
	return r
}
