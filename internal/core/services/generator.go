package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driving"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// Ensure Generator implements the interface.
var _ driving.GenerateService = (*Generator)(nil)

// ErrLegacyWorkbook is returned for .xls uploads.
var ErrLegacyWorkbook = fmt.Errorf(
	"legacy .xls workbooks are not supported, save the sheet as .xlsx or .csv: %w",
	domain.ErrUnsupportedType)

// Generator resolves a GenerateRequest into a BatchRequest and runs it.
type Generator struct {
	tables   driven.TableReaderRegistry
	mappings driven.MappingLoader
	batches  driving.BatchService
	settings driving.SettingsService
	readFile func(string) ([]byte, error)
}

// NewGenerator creates a generator. The settings service is optional.
func NewGenerator(
	tables driven.TableReaderRegistry,
	mappings driven.MappingLoader,
	batches driving.BatchService,
	settings driving.SettingsService,
) *Generator {
	return &Generator{
		tables:   tables,
		mappings: mappings,
		batches:  batches,
		settings: settings,
		readFile: os.ReadFile,
	}
}

// CheckTableName rejects file names no registered reader can decode.
func (g *Generator) CheckTableName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".xls" {
		return ErrLegacyWorkbook
	}
	if _, err := g.tables.ForFile(name); err != nil {
		return fmt.Errorf("%s: expected one of %s: %w",
			name, strings.Join(g.tables.Extensions(), ", "), err)
	}
	return nil
}

// Generate runs a batch built from the request.
func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.BatchResult, error) {
	batch, err := g.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return g.batches.Run(ctx, batch)
}

// Preview validates the request and returns every record's plan.
func (g *Generator) Preview(ctx context.Context, req domain.GenerateRequest) ([]*domain.SubstitutionPlan, error) {
	batch, err := g.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return g.batches.Plan(ctx, batch)
}

func (g *Generator) prepare(ctx context.Context, req domain.GenerateRequest) (domain.BatchRequest, error) {
	settings := domain.DefaultAppSettings()
	if g.settings != nil {
		s, err := g.settings.Get()
		if err != nil {
			return domain.BatchRequest{}, fmt.Errorf("load settings: %w", err)
		}
		settings = *s
	}

	if req.Table == nil {
		return domain.BatchRequest{}, fmt.Errorf("no input table: %w", domain.ErrInvalidInput)
	}
	if err := g.CheckTableName(req.TableName); err != nil {
		return domain.BatchRequest{}, err
	}
	reader, err := g.tables.ForFile(req.TableName)
	if err != nil {
		return domain.BatchRequest{}, err
	}
	table, err := reader.Read(ctx, req.Table)
	if err != nil {
		return domain.BatchRequest{}, fmt.Errorf("read %s: %w", req.TableName, err)
	}

	templatePath := firstNonEmpty(req.TemplatePath, settings.Batch.Template)
	if templatePath == "" {
		return domain.BatchRequest{}, fmt.Errorf("no template configured: %w", domain.ErrInvalidInput)
	}
	template, err := g.readFile(templatePath)
	if err != nil {
		loadErr := &domain.TemplateLoadError{Template: filepath.Base(templatePath), Err: err}
		if errors.Is(err, os.ErrNotExist) {
			loadErr.Err = fmt.Errorf("template not found at %s", templatePath)
		}
		return domain.BatchRequest{}, loadErr
	}

	mapping, err := g.mappings.Load(firstNonEmpty(req.MappingPath, settings.Batch.MappingFile))
	if err != nil {
		return domain.BatchRequest{}, err
	}

	logger.Debug("Batch inputs: table=%s template=%s records=%d", req.TableName, templatePath, len(table.Records))

	return domain.BatchRequest{
		Table:           table,
		Template:        template,
		TemplateName:    filepath.Base(templatePath),
		Mapping:         mapping,
		OutputDir:       firstNonEmpty(req.OutputDir, settings.Batch.OutputDir),
		Deliver:         req.Deliver,
		ContinueOnError: req.ContinueOnError || settings.Batch.ContinueOnError,
		Progress:        req.Progress,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
