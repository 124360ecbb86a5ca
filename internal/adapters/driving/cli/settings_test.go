package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

func TestSettingsShowCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Batch]")
	assert.Contains(t, out, "Concurrency: 4")
	assert.Contains(t, out, "Provider: None (archive only)")
	assert.Contains(t, out, "not connected")
	assert.Contains(t, out, "Status: ready")
}

func TestSettingsCmd_DefaultsToShow(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Current Settings")
}

func TestSettingsShowCmd_MasksSecrets(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, ts.settings.Set("delivery.provider", "smtp"))
	require.NoError(t, ts.settings.Set("smtp.host", "mail.example.com"))
	require.NoError(t, ts.settings.Set("smtp.username", "hr"))
	require.NoError(t, ts.settings.Set("smtp.password", "correct-horse-battery"))

	out, err := execute(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "SMTP: mail.example.com:587")
	assert.Contains(t, out, "corr...tery")
	assert.NotContains(t, out, "correct-horse-battery")
	assert.Contains(t, out, "Warning:")
}

func TestSettingsShowCmd_Mapping(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "show", "--mapping")

	require.NoError(t, err)
	assert.Contains(t, out, "id_column:")
	assert.Contains(t, out, "bindings:")
}

func TestSettingsSetCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "set", "batch.concurrency", "8")

	require.NoError(t, err)
	assert.Contains(t, out, "batch.concurrency updated")
	s, err := ts.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 8, s.Batch.Concurrency)
}

func TestSettingsSetCmd_UnknownKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "settings", "set", "batch.colour", "blue")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "valid keys:")
	assert.Contains(t, err.Error(), "delivery.provider")
}

func TestSettingsSetCmd_RequiresTwoArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "settings", "set", "batch.concurrency")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestSettingsKeysCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "keys")

	require.NoError(t, err)
	assert.Contains(t, out, "smtp.host\n")
	assert.NotContains(t, out, "server.api_key_hashes")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "abcd...wxyz", maskSecret("abcdefghijklmnopqrstuvwxyz"))
}

func TestSettingsCmd_NotConfigured(t *testing.T) {
	requireNoServices(t, "settings", "show")
	requireNoServices(t, "settings", "set", "a", "b")
	requireNoServices(t, "settings", "keys")
}
