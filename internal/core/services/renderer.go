package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// blockLeading is the line advance for multi-line block text, as a
// multiple of the font size.
const blockLeading = 1.2

// Renderer applies substitution plans to a fixed-layout template.
// It holds no per-render state and is safe for concurrent use.
type Renderer struct {
	engine driven.LayoutEngine
	opts   domain.RenderOptions
}

// NewRenderer creates a renderer over a layout engine.
func NewRenderer(engine driven.LayoutEngine, opts domain.RenderOptions) *Renderer {
	if opts.FontSize <= 0 {
		opts.FontSize = domain.DefaultRenderOptions().FontSize
	}
	return &Renderer{engine: engine, opts: opts}
}

// Check opens the template once and reports whether the engine can read it.
func (r *Renderer) Check(template []byte) error {
	if _, err := r.engine.Open(template); err != nil {
		return &domain.TemplateLoadError{Err: err}
	}
	return nil
}

// Render opens a private copy of the template, applies the plan and
// returns the saved document.
//
// Each page gets a token pass followed by a block pass. Every occurrence
// is blanked, then the replacement is drawn from the occurrence's left
// edge. Tokens without occurrences are ignored.
func (r *Renderer) Render(ctx context.Context, template []byte, plan *domain.SubstitutionPlan) ([]byte, error) {
	doc, err := r.engine.Open(template)
	if err != nil {
		return nil, &domain.TemplateLoadError{Err: err}
	}

	fail := func(err error) error {
		return &domain.RenderError{Record: plan.Record, Filename: plan.Filename, Err: err}
	}

	for page := 0; page < doc.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, f := range plan.Fields {
			style := r.opts.StyleFor(f.Target)
			for _, region := range doc.Find(page, f.Target) {
				if err := doc.Blank(region); err != nil {
					return nil, fail(fmt.Errorf("blank %s on page %d: %w", f.Target, page+1, err))
				}
				if f.Text == "" {
					continue
				}
				at := domain.Point{X: region.Rect.X0, Y: region.Rect.Y0 + style.Offset}
				ts := domain.TextStyle{Size: r.opts.FontSize, Bold: style.Bold}
				if err := doc.InsertText(page, at, f.Text, ts); err != nil {
					return nil, fail(fmt.Errorf("insert %s on page %d: %w", f.Target, page+1, err))
				}
			}
		}

		for _, b := range plan.Blocks {
			for _, region := range doc.FindBlock(page, b.Target) {
				if err := doc.Blank(region); err != nil {
					return nil, fail(fmt.Errorf("blank block on page %d: %w", page+1, err))
				}
				if b.Text == "" {
					continue
				}
				if err := r.insertLines(doc, region, b.Text); err != nil {
					return nil, fail(fmt.Errorf("insert block on page %d: %w", page+1, err))
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fail(fmt.Errorf("save: %w", err))
	}

	logger.Debug("rendered %s (%d bytes)", plan.Filename, buf.Len())
	return buf.Bytes(), nil
}

// insertLines draws block text from the block's first baseline, one line per "\n".
func (r *Renderer) insertLines(doc driven.LayoutDocument, region domain.Region, text string) error {
	ts := domain.TextStyle{Size: r.opts.FontSize}
	y := region.Baseline
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			if err := doc.InsertText(region.Page, domain.Point{X: region.Rect.X0, Y: y}, line, ts); err != nil {
				return err
			}
		}
		y -= r.opts.FontSize * blockLeading
	}
	return nil
}
