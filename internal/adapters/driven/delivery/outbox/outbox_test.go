package outbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/mime"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

func message() domain.Message {
	return domain.Message{
		To:      "ravi@example.com",
		Subject: "Appraisal Letter",
		Body:    "Dear Ravi,",
		Attachment: domain.Attachment{
			Filename:    "E102_Ravi Kumar.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.7"),
		},
	}
}

func TestOutbox_Send(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	o, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "outbox", o.Name())
	assert.Equal(t, dir, o.Dir())

	id, err := o.Send(context.Background(), message())
	require.NoError(t, err)
	_, err = o.Send(context.Background(), message())
	require.NoError(t, err)

	names, err := o.List()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"E102_Ravi_Kumar_ravi@example.com.eml",
		"E102_Ravi_Kumar_ravi@example.com_2.eml",
	}, names)

	f, err := os.Open(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	defer f.Close()
	got, gotID, err := mime.Parse(f)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, []byte("%PDF-1.7"), got.Attachment.Data)
}

func TestOutbox_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	o, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Send(ctx, message())
	assert.ErrorIs(t, err, context.Canceled)

	msg := message()
	msg.To = ""
	_, err = o.Send(context.Background(), msg)
	assert.Error(t, err)

	names, err := o.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
