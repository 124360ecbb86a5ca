package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// defaultListLimit applies when list_batches gets no limit.
const defaultListLimit = 20

// GenerateInput is the input schema for the generate_documents tool.
type GenerateInput struct {
	TablePath       string `json:"table_path" jsonschema:"path to the .xlsx or .csv employee table"`
	TemplatePath    string `json:"template_path,omitempty" jsonschema:"template PDF; defaults to the configured template"`
	MappingPath     string `json:"mapping_path,omitempty" jsonschema:"YAML field mapping; defaults to the built-in mapping"`
	OutputDir       string `json:"output_dir,omitempty" jsonschema:"directory that receives the archive"`
	Send            bool   `json:"send,omitempty" jsonschema:"email each letter to its recipient"`
	ContinueOnError bool   `json:"continue_on_error,omitempty" jsonschema:"skip records that fail to render instead of failing the batch"`
	DryRun          bool   `json:"dry_run,omitempty" jsonschema:"validate and plan only, without rendering"`
}

// GenerateOutput is the output schema for the generate_documents tool.
type GenerateOutput struct {
	BatchID           string          `json:"batch_id,omitempty"`
	ArchivePath       string          `json:"archive_path,omitempty"`
	Entries           []string        `json:"entries,omitempty"`
	Failures          []FailureOutput `json:"failures,omitempty"`
	DeliveriesQueued  int             `json:"deliveries_queued"`
	DeliveriesDrained bool            `json:"deliveries_drained"`
	PublishedURL      string          `json:"published_url,omitempty"`
	Planned           []PlanOutput    `json:"planned,omitempty"`
}

// FailureOutput is one record skipped under continue_on_error.
type FailureOutput struct {
	Record   int    `json:"record"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// PlanOutput summarises one planned letter in a dry run.
type PlanOutput struct {
	Record    int    `json:"record"`
	Filename  string `json:"filename"`
	Recipient string `json:"recipient,omitempty"`
}

// ListBatchesInput is the input schema for the list_batches tool.
type ListBatchesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 20)"`
}

// ListBatchesOutput is the output schema for the list_batches tool.
type ListBatchesOutput struct {
	Batches []BatchOutput `json:"batches"`
	Count   int           `json:"count"`
}

// BatchOutput is one recorded run.
type BatchOutput struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	Template    string `json:"template,omitempty"`
	ArchivePath string `json:"archive_path,omitempty"`
	Total       int    `json:"total"`
	Rendered    int    `json:"rendered"`
	Failed      int    `json:"failed"`
	Queued      int    `json:"queued"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_documents",
		Description: "Render one appraisal letter per table row into a zip archive, optionally emailing each letter",
	}, s.handleGenerate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_batches",
		Description: "List recent letter batches, most recent first",
	}, s.handleListBatches)
}

// handleGenerate handles the generate_documents tool invocation.
func (s *Server) handleGenerate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateInput,
) (*mcp.CallToolResult, GenerateOutput, error) {
	if input.TablePath == "" {
		return nil, GenerateOutput{}, fmt.Errorf("table_path is required: %w", domain.ErrInvalidInput)
	}
	if err := s.ports.Generate.CheckTableName(input.TablePath); err != nil {
		return nil, GenerateOutput{}, err
	}

	f, err := os.Open(input.TablePath)
	if err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	req := domain.GenerateRequest{
		TableName:       filepath.Base(input.TablePath),
		Table:           f,
		TemplatePath:    input.TemplatePath,
		MappingPath:     input.MappingPath,
		OutputDir:       input.OutputDir,
		Deliver:         input.Send,
		ContinueOnError: input.ContinueOnError,
	}

	if input.DryRun {
		plans, err := s.ports.Generate.Preview(ctx, req)
		if err != nil {
			return nil, GenerateOutput{}, err
		}
		output := GenerateOutput{DeliveriesDrained: true, Planned: make([]PlanOutput, len(plans))}
		for i, p := range plans {
			output.Planned[i] = PlanOutput{Record: p.Record, Filename: p.Filename, Recipient: p.Recipient}
		}
		return nil, output, nil
	}

	result, err := s.ports.Generate.Generate(ctx, req)
	if err != nil {
		return nil, GenerateOutput{}, err
	}

	output := GenerateOutput{
		BatchID:           result.BatchID,
		ArchivePath:       result.ArchivePath,
		Entries:           result.Entries,
		DeliveriesQueued:  result.DeliveriesQueued,
		DeliveriesDrained: result.DeliveriesDrained,
		PublishedURL:      result.PublishedURL,
	}
	for _, failure := range result.Failures {
		output.Failures = append(output.Failures, FailureOutput{
			Record:   failure.Record,
			Filename: failure.Filename,
			Error:    failure.Error,
		})
	}

	return nil, output, nil
}

// handleListBatches handles the list_batches tool invocation.
func (s *Server) handleListBatches(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListBatchesInput,
) (*mcp.CallToolResult, ListBatchesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	runs, err := s.ports.Batches.List(ctx, limit)
	if err != nil {
		return nil, ListBatchesOutput{}, err
	}

	output := ListBatchesOutput{
		Batches: make([]BatchOutput, len(runs)),
		Count:   len(runs),
	}
	for i := range runs {
		output.Batches[i] = batchOutput(&runs[i])
	}

	return nil, output, nil
}

func batchOutput(r *domain.BatchRun) BatchOutput {
	return BatchOutput{
		ID:          r.ID,
		State:       r.State.String(),
		Template:    r.TemplateName,
		ArchivePath: r.ArchivePath,
		Total:       r.Total,
		Rendered:    r.Rendered,
		Failed:      r.Failed,
		Queued:      r.Queued,
		Error:       r.Error,
		StartedAt:   r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
