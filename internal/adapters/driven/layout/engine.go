// Package layout selects a layout engine from the template's content.
package layout

import (
	"bytes"
	"fmt"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// pdfMagic starts every PDF file.
var pdfMagic = []byte("%PDF-")

// Ensure Engine implements the interface.
var _ driven.LayoutEngine = (*Engine)(nil)

// Engine opens PDF templates with one engine and everything else with a
// fallback, typically the text-grid engine used for `.layout` templates.
type Engine struct {
	pdf      driven.LayoutEngine
	fallback driven.LayoutEngine
}

// NewEngine creates a sniffing engine. The fallback may be nil, in which case
// only PDF templates open.
func NewEngine(pdf, fallback driven.LayoutEngine) *Engine {
	return &Engine{pdf: pdf, fallback: fallback}
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	if e.fallback == nil {
		return e.pdf.Name()
	}
	return e.pdf.Name() + "+" + e.fallback.Name()
}

// Open dispatches on the PDF header, allowing leading whitespace.
func (e *Engine) Open(data []byte) (driven.LayoutDocument, error) {
	if IsPDF(data) {
		return e.pdf.Open(data)
	}
	if e.fallback == nil {
		return nil, fmt.Errorf("template is not a PDF: %w", domain.ErrUnsupportedType)
	}
	return e.fallback.Open(data)
}

// IsPDF reports whether data looks like a PDF file.
func IsPDF(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n\x00"), pdfMagic)
}
