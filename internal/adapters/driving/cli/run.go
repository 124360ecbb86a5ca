package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lettermerge/internal/adapters/driving/tui"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

var (
	runTemplate        string
	runMapping         string
	runOutput          string
	runSend            bool
	runDryRun          bool
	runContinueOnError bool
	runJSON            bool
	runPlain           bool
)

var runCmd = &cobra.Command{
	Use:   "run [table]",
	Short: "Generate letters from a spreadsheet",
	Long: `Reads an .xlsx or .csv table, renders one letter per row from the
template and writes them to a zip archive in the output directory.

With --send each letter is emailed to the address in the recipient column
using the configured delivery provider. Deliveries that have not finished
when the drain bound expires continue in the background until the command
exits.

Examples:
  lettermerge run staff.xlsx --template letter.pdf
  lettermerge run staff.csv --dry-run
  lettermerge run staff.xlsx --send --continue-on-error`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runTemplate, "template", "t", "", "template path (default from settings)")
	runCmd.Flags().StringVarP(&runMapping, "mapping", "m", "", "YAML field mapping (default from settings)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "archive directory (default from settings)")
	runCmd.Flags().BoolVar(&runSend, "send", false, "email each letter to its recipient")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "validate and print the plan without rendering")
	runCmd.Flags().BoolVar(&runContinueOnError, "continue-on-error", false, "skip failing records instead of aborting")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "output the result as JSON")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "disable the progress view")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if generateService == nil {
		return errors.New("generate service not configured")
	}

	path := args[0]
	if err := generateService.CheckTableName(path); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	req := domain.GenerateRequest{
		TableName:       path,
		Table:           f,
		TemplatePath:    runTemplate,
		MappingPath:     runMapping,
		OutputDir:       runOutput,
		Deliver:         runSend,
		ContinueOnError: runContinueOnError,
	}

	if runDryRun {
		plans, err := generateService.Preview(cmd.Context(), req)
		if err != nil {
			return err
		}
		if runJSON {
			return outputJSON(cmd, plans)
		}
		outputPlans(cmd, plans)
		return nil
	}

	var result *domain.BatchResult
	if !runJSON && !runPlain && isTerminal(cmd.OutOrStdout()) {
		app, err := tui.New(tui.NewPorts(generateService))
		if err != nil {
			return err
		}
		result, err = app.Generate(cmd.Context(), req, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	} else {
		result, err = generateService.Generate(cmd.Context(), req)
		if err != nil {
			return err
		}
	}

	if runJSON {
		return outputJSON(cmd, result)
	}
	outputResult(cmd, result)
	return nil
}

func outputPlans(cmd *cobra.Command, plans []*domain.SubstitutionPlan) {
	cmd.Printf("%d letters would be generated:\n\n", len(plans))
	for _, p := range plans {
		recipient := p.Recipient
		if recipient == "" {
			recipient = "-"
		}
		cmd.Printf("  [%d] %-40s %s\n", p.Record, p.Filename, recipient)
	}
}

func outputResult(cmd *cobra.Command, r *domain.BatchResult) {
	cmd.Printf("Batch %s\n", r.BatchID)
	cmd.Printf("  Archive: %s\n", r.ArchivePath)
	cmd.Printf("  Letters: %d\n", len(r.Entries))
	if len(r.Failures) > 0 {
		cmd.Printf("  Skipped: %d\n", len(r.Failures))
		for _, failure := range r.Failures {
			cmd.Printf("    record %d: %s\n", failure.Record, failure.Error)
		}
	}
	if r.PublishedURL != "" {
		cmd.Printf("  Shared:  %s\n", r.PublishedURL)
	}
	if r.DeliveriesQueued > 0 {
		cmd.Printf("  Emails:  %d queued\n", r.DeliveriesQueued)
		if !r.DeliveriesDrained {
			cmd.Println("Emails are still sending and will continue in the background.")
		}
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
