package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// ==================== Batch Run Store ====================

// batchRunStore implements driven.BatchRunStore.
type batchRunStore struct {
	store *Store
}

var _ driven.BatchRunStore = (*batchRunStore)(nil)

const batchRunColumns = `id, state, template_name, archive_path, published_url,
	total, rendered, failed, queued, error, started_at, finished_at`

// Save stores or updates a run.
func (s *batchRunStore) Save(ctx context.Context, run domain.BatchRun) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO batch_runs (`+batchRunColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			template_name = excluded.template_name,
			archive_path = excluded.archive_path,
			published_url = excluded.published_url,
			total = excluded.total,
			rendered = excluded.rendered,
			failed = excluded.failed,
			queued = excluded.queued,
			error = excluded.error,
			finished_at = excluded.finished_at
	`, run.ID, run.State.String(), nullString(run.TemplateName),
		nullString(run.ArchivePath), nullString(run.PublishedURL),
		run.Total, run.Rendered, run.Failed, run.Queued, nullString(run.Error),
		formatTime(run.StartedAt), formatNullableTime(run.FinishedAt))

	if err != nil {
		return fmt.Errorf("saving batch run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *batchRunStore) Get(ctx context.Context, id string) (*domain.BatchRun, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+batchRunColumns+`
		FROM batch_runs WHERE id = ?
	`, id)

	run, err := scanBatchRun(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning batch run: %w", err)
	}
	return run, nil
}

// List returns runs newest first. A limit of 0 returns all.
func (s *batchRunStore) List(ctx context.Context, limit int) ([]domain.BatchRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+batchRunColumns+`
		FROM batch_runs
		ORDER BY started_at DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying batch runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.BatchRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanBatchRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning batch run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch runs: %w", err)
	}

	return runs, nil
}

// ==================== Delivery Ledger ====================

// deliveryLedger implements driven.DeliveryLedger.
type deliveryLedger struct {
	store *Store
}

var _ driven.DeliveryLedger = (*deliveryLedger)(nil)

// Record stores one delivery outcome.
func (l *deliveryLedger) Record(ctx context.Context, result domain.DeliveryResult) error {
	if result.ID == "" || result.BatchID == "" {
		return domain.ErrInvalidInput
	}

	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, batch_id, recipient, filename, status, message_id, error, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, result.ID, result.BatchID, result.Recipient, result.Filename, result.Status.String(),
		nullString(result.MessageID), nullString(result.Error), formatTime(result.At))

	if err != nil {
		return fmt.Errorf("recording delivery: %w", err)
	}
	return nil
}

// ListByBatch returns a batch's outcomes in recording order.
func (l *deliveryLedger) ListByBatch(ctx context.Context, batchID string) ([]domain.DeliveryResult, error) {
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, batch_id, recipient, filename, status, message_id, error, delivered_at
		FROM deliveries
		WHERE batch_id = ?
		ORDER BY seq ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var results []domain.DeliveryResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.DeliveryResult
		var status, at string
		var messageID, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.BatchID, &r.Recipient, &r.Filename,
			&status, &messageID, &errMsg, &at); err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}
		r.Status = domain.DeliveryStatus(status)
		r.MessageID = messageID.String
		r.Error = errMsg.String
		r.At = parseTime(at)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deliveries: %w", err)
	}

	return results, nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanBatchRun scans a single batch run row.
func scanBatchRun(row scanner) (*domain.BatchRun, error) {
	var run domain.BatchRun
	var state, startedAt string
	var templateName, archivePath, publishedURL, errMsg, finishedAt sql.NullString

	if err := row.Scan(&run.ID, &state, &templateName, &archivePath, &publishedURL,
		&run.Total, &run.Rendered, &run.Failed, &run.Queued, &errMsg,
		&startedAt, &finishedAt); err != nil {
		return nil, err
	}

	run.State = domain.BatchState(state)
	run.TemplateName = templateName.String
	run.ArchivePath = archivePath.String
	run.PublishedURL = publishedURL.String
	run.Error = errMsg.String
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}

	return &run, nil
}

// timeLayout is RFC3339 with fixed-width nanoseconds, so lexical order
// matches chronological order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime formats a time in UTC with timeLayout.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// formatNullableTime formats a time, or returns nil for zero time.
func formatNullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseTime parses an RFC3339 string. Returns zero time if invalid.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
