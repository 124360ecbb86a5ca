// Package zip provides a zip archive sink.
//
// Create reserves the target path with an exclusive create, so two
// archives can never share a name. Entries are written to a hidden
// temporary file next to the target and renamed over the reservation on
// Commit; Abort removes both.
package zip

import (
	gozip "archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.ArchiveSink = (*Sink)(nil)

// Sink creates zip archives on the local filesystem.
type Sink struct {
	now func() time.Time
}

// NewSink creates a zip sink.
func NewSink() *Sink {
	return &Sink{now: time.Now}
}

// Create reserves path and starts an archive that fills it on Commit.
// A path that already exists yields domain.ErrAlreadyExists.
func (s *Sink) Create(ctx context.Context, path string) (driven.ArchiveWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("archive path: %w", domain.ErrInvalidInput)
	}

	reserved, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("archive %s: %w", path, domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("reserve archive: %w", err)
	}
	if err := reserved.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("reserve archive: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".partial-*.zip")
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("create archive: %w", err)
	}

	return &Writer{
		path:     path,
		tmp:      f,
		zw:       gozip.NewWriter(f),
		modified: s.now(),
		names:    make(map[string]struct{}),
	}, nil
}

// Writer is an open zip archive.
type Writer struct {
	path     string
	tmp      *os.File
	zw       *gozip.Writer
	modified time.Time
	names    map[string]struct{}
	entries  []string
	done     bool
}

// Ensure Writer implements the interface.
var _ driven.ArchiveWriter = (*Writer)(nil)

// Add writes one deflated entry.
func (w *Writer) Add(name string, r io.Reader) error {
	if w.done {
		return errors.New("archive already closed")
	}
	if name == "" {
		return fmt.Errorf("entry name: %w", domain.ErrInvalidInput)
	}
	if _, ok := w.names[name]; ok {
		return fmt.Errorf("entry %s: %w", name, domain.ErrAlreadyExists)
	}

	hdr := &gozip.FileHeader{Name: name, Method: gozip.Deflate, Modified: w.modified}
	dst, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}

	w.names[name] = struct{}{}
	w.entries = append(w.entries, name)
	return nil
}

// Commit closes the archive and moves it to its final path.
func (w *Writer) Commit() error {
	if w.done {
		return errors.New("archive already closed")
	}
	w.done = true

	if err := w.zw.Close(); err != nil {
		w.discard()
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("sync archive: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		w.discard()
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		w.discard()
		return fmt.Errorf("move archive into place: %w", err)
	}
	return nil
}

// Abort discards the archive. It is safe to call after Commit failed.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.discard()
}

// discard removes the temporary file and releases the reserved path.
func (w *Writer) discard() error {
	_ = w.zw.Close()
	_ = w.tmp.Close()
	var errs []error
	for _, name := range []string{w.tmp.Name(), w.path} {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Entries returns entry names in write order.
func (w *Writer) Entries() []string {
	return append([]string(nil), w.entries...)
}

// Path returns the final archive path.
func (w *Writer) Path() string {
	return w.path
}
