// Package mcp provides an MCP (Model Context Protocol) server adapter for lettermerge.
// It lets AI assistants generate letter batches and inspect past runs.
package mcp

import "errors"

// ErrMissingGenerateService is returned when the generate service is not provided.
var ErrMissingGenerateService = errors.New("mcp: generate service is required")

// ErrMissingBatchService is returned when the batch service is not provided.
var ErrMissingBatchService = errors.New("mcp: batch service is required")
