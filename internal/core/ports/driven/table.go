package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// TableReader decodes an input spreadsheet.
// The first row is the header; every later row becomes a record.
type TableReader interface {
	Read(ctx context.Context, r io.Reader) (*domain.Table, error)
}

// TableReaderRegistry selects a reader from a file name.
type TableReaderRegistry interface {
	// Register associates a reader with an extension such as ".csv".
	Register(ext string, reader TableReader)

	// ForFile returns the reader for a file name's extension.
	// Returns domain.ErrUnsupportedType for unknown extensions.
	ForFile(name string) (TableReader, error)

	// Extensions lists registered extensions, sorted.
	Extensions() []string
}
