package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/outbox"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/throttle"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/google"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

func TestNewSender(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		s := domain.DefaultAppSettings()
		sender, err := newSender(ctx, &s)
		require.NoError(t, err)
		assert.Nil(t, sender)
	})

	t.Run("outbox", func(t *testing.T) {
		s := domain.DefaultAppSettings()
		s.Delivery.Provider = domain.DeliveryProviderOutbox
		s.Outbox = filepath.Join(t.TempDir(), "outbox")
		sender, err := newSender(ctx, &s)
		require.NoError(t, err)
		assert.IsType(t, &outbox.Outbox{}, sender)
	})

	t.Run("smtp throttled", func(t *testing.T) {
		s := domain.DefaultAppSettings()
		s.Delivery.Provider = domain.DeliveryProviderSMTP
		s.SMTP.Host = "mail.example.com"
		s.Delivery.RatePerSecond = 2
		sender, err := newSender(ctx, &s)
		require.NoError(t, err)
		assert.IsType(t, &throttle.Sender{}, sender)
	})

	t.Run("smtp without host", func(t *testing.T) {
		s := domain.DefaultAppSettings()
		s.Delivery.Provider = domain.DeliveryProviderSMTP
		_, err := newSender(ctx, &s)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("gmail without consent", func(t *testing.T) {
		s := domain.DefaultAppSettings()
		s.Delivery.Provider = domain.DeliveryProviderGmail
		_, err := newSender(ctx, &s)
		assert.ErrorIs(t, err, google.ErrNotConfigured)
	})

	t.Run("unknown", func(t *testing.T) {
		s := domain.DefaultAppSettings()
		s.Delivery.Provider = "pigeon"
		_, err := newSender(ctx, &s)
		assert.Error(t, err)
	})
}

func TestNewPublisher(t *testing.T) {
	s := domain.DefaultAppSettings()

	p, err := newPublisher(context.Background(), &s)
	require.NoError(t, err)
	assert.Nil(t, p)

	s.Publish.DriveFolderID = "folder"
	p, err = newPublisher(context.Background(), &s)
	assert.ErrorIs(t, err, google.ErrNotConfigured)
	assert.Nil(t, p)
}

func TestWire(t *testing.T) {
	dir := t.TempDir()
	outboxDir := filepath.Join(dir, "mail")
	config := "[delivery]\nprovider = \"outbox\"\nsender = \"hr@example.com\"\n\n[outbox]\ndir = \"" +
		filepath.ToSlash(outboxDir) + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0600))

	a, err := wire(context.Background(), dir)
	require.NoError(t, err)

	assert.NotNil(t, a.generator)
	assert.NotNil(t, a.queue)
	assert.DirExists(t, outboxDir)

	runs, err := a.batches.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, a.Close(context.Background()))
}

func TestWire_DeliveryOff(t *testing.T) {
	a, err := wire(context.Background(), t.TempDir())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close(context.Background())) }()

	assert.Nil(t, a.queue)
}

func TestConfigDir_Env(t *testing.T) {
	t.Setenv("LETTERMERGE_HOME", "/tmp/lm-home")

	dir, err := configDir()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/lm-home", dir)
}
