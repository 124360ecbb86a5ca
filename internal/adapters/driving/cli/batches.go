package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

var (
	batchesLimit int
	batchesJSON  bool
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Inspect recorded batch runs",
	Long:  `List past batch runs and show their archives and delivery outcomes.`,
}

var batchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent batch runs",
	RunE:  runBatchesList,
}

var batchesShowCmd = &cobra.Command{
	Use:   "show [batch-id]",
	Short: "Show one batch run",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatchesShow,
}

var batchesDeliveriesCmd = &cobra.Command{
	Use:   "deliveries [batch-id]",
	Short: "List delivery outcomes for a batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatchesDeliveries,
}

func init() {
	batchesListCmd.Flags().IntVarP(&batchesLimit, "limit", "n", 20, "maximum number of runs")
	for _, c := range []*cobra.Command{batchesListCmd, batchesShowCmd, batchesDeliveriesCmd} {
		c.Flags().BoolVar(&batchesJSON, "json", false, "output as JSON")
		batchesCmd.AddCommand(c)
	}
	rootCmd.AddCommand(batchesCmd)
}

func runBatchesList(cmd *cobra.Command, _ []string) error {
	if batchService == nil {
		return errors.New("batch service not configured")
	}

	runs, err := batchService.List(cmd.Context(), batchesLimit)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}
	if batchesJSON {
		return outputJSON(cmd, runs)
	}

	if len(runs) == 0 {
		cmd.Println("No batches recorded.")
		return nil
	}
	cmd.Printf("%-36s  %-17s  %-16s  %s\n", "ID", "STATE", "STARTED", "LETTERS")
	for i := range runs {
		r := &runs[i]
		cmd.Printf("%-36s  %-17s  %-16s  %d/%d\n",
			r.ID, r.State, formatStarted(r.StartedAt), r.Rendered, r.Total)
	}
	return nil
}

func runBatchesShow(cmd *cobra.Command, args []string) error {
	if batchService == nil {
		return errors.New("batch service not configured")
	}

	run, err := batchService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get batch: %w", err)
	}
	if batchesJSON {
		return outputJSON(cmd, run)
	}

	cmd.Printf("Batch: %s\n", run.ID)
	cmd.Printf("  State:    %s\n", run.State)
	cmd.Printf("  Template: %s\n", run.TemplateName)
	cmd.Printf("  Started:  %s\n", formatStarted(run.StartedAt))
	if !run.FinishedAt.IsZero() {
		cmd.Printf("  Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	cmd.Printf("  Letters:  %d of %d (%d failed)\n", run.Rendered, run.Total, run.Failed)
	if run.ArchivePath != "" {
		cmd.Printf("  Archive:  %s\n", run.ArchivePath)
	}
	if run.PublishedURL != "" {
		cmd.Printf("  Shared:   %s\n", run.PublishedURL)
	}
	if run.Queued > 0 {
		cmd.Printf("  Emails:   %d queued\n", run.Queued)
	}
	if run.Error != "" {
		cmd.Printf("  Error:    %s\n", run.Error)
	}

	if !run.State.IsTerminal() {
		if p, err := batchService.Status(run.ID); err == nil {
			cmd.Printf("  Progress: %.0f%%\n", p.Fraction()*100)
		}
	}
	return nil
}

func runBatchesDeliveries(cmd *cobra.Command, args []string) error {
	if batchService == nil {
		return errors.New("batch service not configured")
	}

	results, err := batchService.Deliveries(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list deliveries: %w", err)
	}
	if batchesJSON {
		return outputJSON(cmd, results)
	}

	if len(results) == 0 {
		cmd.Println("No deliveries recorded.")
		return nil
	}
	sent := 0
	for i := range results {
		d := &results[i]
		detail := d.MessageID
		if d.Status == domain.DeliveryStatusSent {
			sent++
		} else {
			detail = d.Error
		}
		cmd.Printf("%-6s  %-32s  %-40s  %s\n", d.Status, d.Recipient, d.Filename, detail)
	}
	cmd.Printf("\n%d of %d sent\n", sent, len(results))
	return nil
}

func formatStarted(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
