// Package cli implements the lettermerge command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lettermerge/internal/core/ports/driving"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

var verbose bool

// Services used by the commands. main injects them before Execute.
var (
	generateService driving.GenerateService
	batchService    driving.BatchService
	settingsService driving.SettingsService
)

var rootCmd = &cobra.Command{
	Use:   "lettermerge",
	Short: "Generate and deliver appraisal letters from a spreadsheet",
	Long: `lettermerge fills a PDF letter template once per spreadsheet row,
packages the letters into a zip archive and optionally emails each
employee their letter.

Start with 'lettermerge run staff.xlsx --template letter.pdf'.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetGenerateService sets the service behind run, serve and mcp.
func SetGenerateService(s driving.GenerateService) {
	generateService = s
}

// SetBatchService sets the service behind the batches commands.
func SetBatchService(s driving.BatchService) {
	batchService = s
}

// SetSettingsService sets the service behind settings and auth.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
