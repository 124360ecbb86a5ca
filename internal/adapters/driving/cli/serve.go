package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/auth"
	"github.com/custodia-labs/lettermerge/internal/adapters/driving/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP upload API",
	Long: `Serves the batch API:

  POST /api/batches              upload a table (multipart field "table")
  GET  /api/batches              list runs
  GET  /api/batches/:id          run details and deliveries
  GET  /api/batches/:id/archive  download the zip

Every request needs 'Authorization: Bearer <key>'. Create keys with
'lettermerge auth key'.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	server, err := newAPIServer()
	if err != nil {
		return err
	}
	cmd.Printf("API listening on %s\n", serveAddr)
	return server.Run(cmd.Context(), serveAddr)
}

func newAPIServer() (*api.Server, error) {
	if generateService == nil || batchService == nil || settingsService == nil {
		return nil, errors.New("services not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if len(settings.Server.APIKeyHashes) == 0 {
		return nil, errors.New("no API keys configured; run 'lettermerge auth key' first")
	}
	authorizer, err := auth.NewAPIKeyAuthorizer(settings.Server.APIKeyHashes)
	if err != nil {
		return nil, err
	}

	return api.NewServer(&api.Ports{
		Generate: generateService,
		Batches:  batchService,
		Auth:     authorizer,
	})
}
