package services

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// pdfContentType is the attachment type of rendered letters.
const pdfContentType = "application/pdf"

// MessageComposer turns delivery tasks into messages.
type MessageComposer struct {
	from    string
	subject string
	body    *template.Template
}

// NewMessageComposer parses the body template. The template sees {{.Name}}
// (the display name) and {{.Filename}}.
func NewMessageComposer(from, subject, body string) (*MessageComposer, error) {
	if subject == "" {
		subject = domain.DefaultSubject
	}
	if body == "" {
		body = domain.DefaultBody
	}
	tmpl, err := template.New("body").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse message body: %w", err)
	}
	return &MessageComposer{from: from, subject: subject, body: tmpl}, nil
}

// Compose builds the message for one task.
func (c *MessageComposer) Compose(task domain.DeliveryTask, now time.Time) (domain.Message, error) {
	var body bytes.Buffer
	data := struct{ Name, Filename string }{Name: task.DisplayName, Filename: task.Filename}
	if err := c.body.Execute(&body, data); err != nil {
		return domain.Message{}, fmt.Errorf("render message body: %w", err)
	}

	contentType := pdfContentType
	if len(task.Document) == 0 || !bytes.HasPrefix(task.Document, []byte("%PDF-")) {
		contentType = "application/octet-stream"
	}

	return domain.Message{
		From:    c.from,
		To:      task.Recipient,
		Subject: c.subject,
		Body:    body.String(),
		Attachment: domain.Attachment{
			Filename:    task.Filename,
			ContentType: contentType,
			Data:        task.Document,
		},
		Date: now,
	}, nil
}
