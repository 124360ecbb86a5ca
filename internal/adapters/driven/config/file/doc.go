// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based settings storage (~/.lettermerge/config.toml)
//   - LoadMapping / ParseMapping: YAML field mappings layered over the default mapping
package file
