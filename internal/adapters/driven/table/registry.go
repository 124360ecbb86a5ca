// Package table selects spreadsheet readers by file extension.
package table

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/table/csv"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/table/xlsx"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.TableReaderRegistry = (*Registry)(nil)

// Registry maps file extensions to readers.
type Registry struct {
	readers map[string]driven.TableReader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[string]driven.TableReader),
	}
}

// NewDefaultRegistry creates a registry with the .xlsx and .csv readers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".xlsx", xlsx.NewReader())
	r.Register(".csv", csv.NewReader())
	return r
}

// Register adds a reader. The extension is matched case-insensitively.
func (r *Registry) Register(ext string, reader driven.TableReader) {
	r.readers[normaliseExt(ext)] = reader
}

// ForFile returns the reader for a file name's extension.
func (r *Registry) ForFile(name string) (driven.TableReader, error) {
	ext := normaliseExt(filepath.Ext(name))
	if reader, ok := r.readers[ext]; ok {
		return reader, nil
	}
	if ext == ".xls" {
		return nil, fmt.Errorf("legacy .xls workbooks are not supported, save %s as .xlsx: %w",
			filepath.Base(name), domain.ErrUnsupportedType)
	}
	return nil, fmt.Errorf("%s (accepted: %s): %w",
		filepath.Base(name), strings.Join(r.Extensions(), ", "), domain.ErrUnsupportedType)
}

// Extensions lists registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normaliseExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
