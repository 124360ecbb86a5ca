package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lettermerge/internal/core/services"
)

type testServices struct {
	generate *mockGenerate
	batches  *mockBatches
	settings *services.SettingsService
}

// setupTestServices installs test doubles and resets flag state.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		generate: &mockGenerate{},
		batches:  &mockBatches{},
		settings: services.NewSettingsService(memory.NewConfigStore()),
	}

	prevGenerate, prevBatches, prevSettings := generateService, batchService, settingsService
	SetGenerateService(ts.generate)
	SetBatchService(ts.batches)
	SetSettingsService(ts.settings)

	runTemplate, runMapping, runOutput = "", "", ""
	runSend, runDryRun, runContinueOnError, runJSON, runPlain = false, false, false, false, false
	batchesLimit, batchesJSON = 20, false
	settingsShowMapping = false
	authClientID, authClientSecret, authPort = "", "", 0

	return ts, func() {
		generateService, batchService, settingsService = prevGenerate, prevBatches, prevSettings
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func requireNoServices(t *testing.T, args ...string) {
	t.Helper()
	prevGenerate, prevBatches, prevSettings := generateService, batchService, settingsService
	generateService, batchService, settingsService = nil, nil, nil
	defer func() {
		generateService, batchService, settingsService = prevGenerate, prevBatches, prevSettings
	}()

	_, err := execute(t, "", args...)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not configured")
}
