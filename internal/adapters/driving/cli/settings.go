package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

var settingsShowMapping bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change batch defaults, delivery transport and publication.

Settings live in ~/.lettermerge/config.toml and are changed one key at a
time with 'lettermerge settings set <key> <value>'.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Change one setting by its dot-notation key.

Examples:
  lettermerge settings set delivery.provider smtp
  lettermerge settings set smtp.host mail.example.com
  lettermerge settings set batch.concurrency 8

Run 'lettermerge settings keys' for the full list.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys accepted by set",
	RunE:  runSettingsKeys,
}

func init() {
	settingsShowCmd.Flags().BoolVar(&settingsShowMapping, "mapping", false, "print the effective field mapping as YAML")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if settingsShowMapping {
		m, err := file.LoadMapping(settings.Batch.MappingFile)
		if err != nil {
			return err
		}
		data, err := file.MarshalMapping(m)
		if err != nil {
			return fmt.Errorf("failed to render mapping: %w", err)
		}
		cmd.Print(string(data))
		return nil
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Batch]")
	cmd.Printf("  Template: %s\n", orNotSet(settings.Batch.Template))
	cmd.Printf("  Mapping: %s\n", orDefault(settings.Batch.MappingFile))
	cmd.Printf("  Output: %s\n", settings.Batch.OutputDir)
	cmd.Printf("  Concurrency: %d\n", settings.Batch.Concurrency)
	cmd.Printf("  Continue on error: %t\n", settings.Batch.ContinueOnError)
	cmd.Println()

	cmd.Println("[Delivery]")
	cmd.Printf("  Provider: %s\n", settings.Delivery.Provider.Description())
	cmd.Printf("  Sender: %s\n", orNotSet(settings.Delivery.Sender))
	cmd.Printf("  Workers: %d\n", settings.Delivery.Workers)
	cmd.Printf("  Drain timeout: %s\n", settings.Delivery.DrainTimeout)
	if settings.Delivery.RatePerSecond > 0 {
		cmd.Printf("  Rate: %.1f/s\n", settings.Delivery.RatePerSecond)
	}
	cmd.Printf("  Subject: %s\n", settings.Delivery.Subject)
	switch settings.Delivery.Provider {
	case domain.DeliveryProviderSMTP:
		cmd.Printf("  SMTP: %s:%d\n", orNotSet(settings.SMTP.Host), settings.SMTP.Port)
		if settings.SMTP.Username != "" {
			cmd.Printf("  SMTP user: %s\n", settings.SMTP.Username)
			cmd.Printf("  SMTP password: %s\n", maskSecret(settings.SMTP.Password))
		}
	case domain.DeliveryProviderOutbox:
		cmd.Printf("  Outbox: %s\n", settings.Outbox)
	}
	cmd.Println()

	cmd.Println("[Google]")
	if settings.Google.IsConfigured() {
		cmd.Printf("  Client ID: %s\n", settings.Google.ClientID)
		cmd.Printf("  Refresh token: %s\n", maskSecret(settings.Google.RefreshToken))
	} else {
		cmd.Println("  Status: not connected (run 'lettermerge auth google')")
	}
	cmd.Printf("  Drive folder: %s\n", orNotSet(settings.Publish.DriveFolderID))
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  API keys: %d\n", len(settings.Server.APIKeyHashes))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Status: ready")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("%w\nvalid keys: %s", err, strings.Join(settingsService.Keys(), ", "))
		}
		return err
	}
	cmd.Printf("%s updated\n", args[0])

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func orDefault(s string) string {
	if s == "" {
		return "(built-in)"
	}
	return s
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
