package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown table, template or delivery type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrBatchInProgress indicates a batch with the same ID is already running.
	ErrBatchInProgress = errors.New("batch in progress")

	// Batch Errors.

	// ErrValidation indicates the input table does not satisfy the field mapping.
	// The batch never starts.
	ErrValidation = errors.New("validation failed")

	// ErrTemplateLoad indicates the template document could not be opened.
	ErrTemplateLoad = errors.New("template load failed")

	// ErrRender indicates a record could not be formatted or placed on the template.
	ErrRender = errors.New("render failed")

	// Delivery Errors.

	// ErrDeliverySend indicates a single delivery attempt failed.
	// Recorded against the batch, never propagated to the caller.
	ErrDeliverySend = errors.New("delivery send failed")

	// ErrQueueClosed indicates a task was offered to a closed delivery queue.
	ErrQueueClosed = errors.New("delivery queue closed")

	// ErrDeliveryUnavailable indicates no delivery sink is configured.
	ErrDeliveryUnavailable = errors.New("delivery unavailable")

	// Authentication Errors.

	// ErrAuthRequired indicates the caller supplied no credential.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the supplied credential was rejected.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError lists the columns the field mapping needs but the table lacks.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("input table is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Unwrap lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TemplateLoadError wraps the engine failure raised while opening a template.
type TemplateLoadError struct {
	Template string
	Err      error
}

func (e *TemplateLoadError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("open template: %v", e.Err)
	}
	return fmt.Sprintf("open template %s: %v", e.Template, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *TemplateLoadError) Unwrap() []error {
	return []error{ErrTemplateLoad, e.Err}
}

// RenderError reports the record whose plan could not be applied.
type RenderError struct {
	Record   int
	Filename string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render record %d (%s): %v", e.Record, e.Filename, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *RenderError) Unwrap() []error {
	return []error{ErrRender, e.Err}
}

// DeliverySendError reports one failed delivery.
type DeliverySendError struct {
	Recipient string
	Filename  string
	Err       error
}

func (e *DeliverySendError) Error() string {
	return fmt.Sprintf("send %s to %s: %v", e.Filename, e.Recipient, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *DeliverySendError) Unwrap() []error {
	return []error{ErrDeliverySend, e.Err}
}
