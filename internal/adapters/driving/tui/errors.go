package tui

import "errors"

// ErrMissingGenerateService is returned when the generate service is not provided.
var ErrMissingGenerateService = errors.New("tui: generate service is required")
