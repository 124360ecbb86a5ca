package domain

import (
	"io"
	"time"
)

// BatchState is the lifecycle position of a batch run.
type BatchState string

// Batch states, in the order a successful run visits them.
const (
	BatchStateValidating       BatchState = "validating"
	BatchStateRendering        BatchState = "rendering"
	BatchStatePackaging        BatchState = "packaging"
	BatchStateDeliveryDraining BatchState = "delivery_draining"
	BatchStateDone             BatchState = "done"
	BatchStateFailed           BatchState = "failed"
)

// IsValid returns true if the state is recognised.
func (s BatchState) IsValid() bool {
	switch s {
	case BatchStateValidating, BatchStateRendering, BatchStatePackaging,
		BatchStateDeliveryDraining, BatchStateDone, BatchStateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once the run can no longer change state.
func (s BatchState) IsTerminal() bool {
	return s == BatchStateDone || s == BatchStateFailed
}

// String returns the string representation.
func (s BatchState) String() string {
	return string(s)
}

// BatchProgress is a point-in-time view of a running batch.
type BatchProgress struct {
	BatchID  string
	State    BatchState
	Rendered int
	Failed   int
	Total    int
}

// Fraction returns completed work in [0,1].
func (p BatchProgress) Fraction() float64 {
	if p.Total == 0 {
		if p.State.IsTerminal() {
			return 1
		}
		return 0
	}
	return float64(p.Rendered+p.Failed) / float64(p.Total)
}

// BatchRequest is the input to one run of the generator.
type BatchRequest struct {
	// ID identifies the run. Generated when empty.
	ID string

	// Table is the decoded input.
	Table *Table

	// Template is the raw template document.
	Template []byte

	// TemplateName is used in errors and the ledger.
	TemplateName string

	// Mapping describes how the table populates the template.
	Mapping FieldMapping

	// OutputDir receives the archive.
	OutputDir string

	// ArchiveName overrides the default employee_documents_<timestamp>.zip.
	ArchiveName string

	// Deliver queues a delivery for every record with a recipient.
	Deliver bool

	// ContinueOnError isolates per-record render failures instead of failing the batch.
	ContinueOnError bool

	// Now fixes the run date. Defaults to the current time.
	Now time.Time

	// Progress is called on every state change and rendered record.
	// It is called from rendering goroutines and must be safe for concurrent use.
	Progress func(BatchProgress)
}

// RecordFailure describes one record excluded under ContinueOnError.
type RecordFailure struct {
	Record   int
	Filename string
	Error    string
}

// BatchResult is returned by a successful run.
type BatchResult struct {
	BatchID     string
	ArchivePath string

	// Entries are archive entry names in completion order.
	Entries []string

	// Failures lists records skipped under ContinueOnError.
	Failures []RecordFailure

	// DeliveriesQueued counts tasks handed to the delivery queue.
	DeliveriesQueued int

	// DeliveriesDrained is true when the queue emptied within the drain bound.
	DeliveriesDrained bool

	// PublishedURL is set when the archive was published.
	PublishedURL string
}

// BatchRun is the ledger record of one run.
type BatchRun struct {
	ID           string
	State        BatchState
	TemplateName string
	ArchivePath  string
	PublishedURL string
	Total        int
	Rendered     int
	Failed       int
	Queued       int
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the run took, or zero while it is running.
func (r *BatchRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// GenerateRequest names the files behind a batch. Empty paths fall back to
// the configured defaults.
type GenerateRequest struct {
	// TableName selects the reader by extension.
	TableName string

	// Table is the spreadsheet content.
	Table io.Reader

	TemplatePath string
	MappingPath  string
	OutputDir    string

	Deliver         bool
	ContinueOnError bool

	// Progress is passed through to the batch request.
	Progress func(BatchProgress)
}
