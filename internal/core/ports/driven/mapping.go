package driven

import "github.com/custodia-labs/lettermerge/internal/core/domain"

// MappingLoader reads field mappings from storage.
type MappingLoader interface {
	// Load returns the mapping stored at path, or the default mapping for "".
	Load(path string) (domain.FieldMapping, error)
}
