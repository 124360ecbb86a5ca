package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

func TestMessageComposer_Defaults(t *testing.T) {
	c, err := NewMessageComposer("hr@example.com", "", "")
	require.NoError(t, err)

	now := time.Date(2025, 2, 6, 10, 0, 0, 0, time.UTC)
	msg, err := c.Compose(domain.DeliveryTask{
		Recipient:   "asha@example.com",
		DisplayName: "Asha Rao",
		Filename:    "E101_Asha_Rao.pdf",
		Document:    []byte("%PDF-1.4\n"),
	}, now)

	require.NoError(t, err)
	assert.Equal(t, "hr@example.com", msg.From)
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, domain.DefaultSubject, msg.Subject)
	assert.Equal(t, "Dear Asha Rao,\nPlease find attachment for your appraisal letter.", msg.Body)
	assert.Equal(t, "E101_Asha_Rao.pdf", msg.Attachment.Filename)
	assert.Equal(t, "application/pdf", msg.Attachment.ContentType)
	assert.Equal(t, now, msg.Date)
}

func TestMessageComposer_CustomTemplate(t *testing.T) {
	c, err := NewMessageComposer("", "Your letter", "Hi {{.Name}}, see {{.Filename}}")
	require.NoError(t, err)

	msg, err := c.Compose(domain.DeliveryTask{DisplayName: "Ravi", Filename: "x.layout", Document: []byte("text")}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, "Your letter", msg.Subject)
	assert.Equal(t, "Hi Ravi, see x.layout", msg.Body)
	assert.Equal(t, "application/octet-stream", msg.Attachment.ContentType)
}

func TestNewMessageComposer_BadTemplate(t *testing.T) {
	_, err := NewMessageComposer("", "", "Dear {{.Name")
	assert.Error(t, err)
}

func TestMessageComposer_UnknownField(t *testing.T) {
	c, err := NewMessageComposer("", "", "Dear {{.Salary}}")
	require.NoError(t, err)

	_, err = c.Compose(domain.DeliveryTask{DisplayName: "Asha"}, time.Now())
	assert.Error(t, err)
}
