package driven

import (
	"io"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// LayoutEngine opens fixed-layout templates.
type LayoutEngine interface {
	// Open parses a private copy of the template.
	// The returned document never shares mutable state with other opens.
	Open(data []byte) (LayoutDocument, error)

	// Name identifies the engine in logs and errors.
	Name() string
}

// LayoutDocument edits a fixed-layout document in place without reflowing it.
//
// Text inserted with InsertText is not visible to Find or FindBlock on the
// same open document.
type LayoutDocument interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Find returns every occurrence of text on a page, in reading order.
	Find(page int, text string) []domain.Region

	// FindBlock returns every paragraph whose whole text equals text,
	// after collapsing runs of whitespace.
	FindBlock(page int, text string) []domain.Region

	// Blank removes the glyphs inside a region and paints it white.
	// Surrounding content does not move.
	Blank(region domain.Region) error

	// InsertText draws text with its baseline starting at the point.
	InsertText(page int, at domain.Point, text string, style domain.TextStyle) error

	// Save writes the document.
	Save(w io.Writer) error
}
