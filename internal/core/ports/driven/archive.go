package driven

import (
	"context"
	"io"
)

// ArchiveSink creates archives.
type ArchiveSink interface {
	// Create reserves path and starts an archive that fills it once
	// committed. Returns domain.ErrAlreadyExists if path is taken, including
	// by an archive still being written.
	Create(ctx context.Context, path string) (ArchiveWriter, error)
}

// ArchiveWriter accumulates named entries.
// Implementations are not safe for concurrent use.
type ArchiveWriter interface {
	// Add writes one entry. Returns domain.ErrAlreadyExists on a duplicate name.
	Add(name string, r io.Reader) error

	// Commit finalises the archive at its path.
	Commit() error

	// Abort discards everything written so far and releases the path.
	Abort() error

	// Entries returns entry names in write order.
	Entries() []string

	// Path returns the final archive path.
	Path() string
}
