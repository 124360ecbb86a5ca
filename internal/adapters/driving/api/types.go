package api

import (
	"time"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

type failureJSON struct {
	Record   int    `json:"record"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type resultJSON struct {
	ID                string        `json:"id"`
	ArchivePath       string        `json:"archive_path"`
	Entries           []string      `json:"entries"`
	Failures          []failureJSON `json:"failures,omitempty"`
	DeliveriesQueued  int           `json:"deliveries_queued"`
	DeliveriesDrained bool          `json:"deliveries_drained"`
	PublishedURL      string        `json:"published_url,omitempty"`
}

func newResultJSON(r *domain.BatchResult) resultJSON {
	out := resultJSON{
		ID:                r.BatchID,
		ArchivePath:       r.ArchivePath,
		Entries:           r.Entries,
		DeliveriesQueued:  r.DeliveriesQueued,
		DeliveriesDrained: r.DeliveriesDrained,
		PublishedURL:      r.PublishedURL,
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, failureJSON{Record: f.Record, Filename: f.Filename, Error: f.Error})
	}
	return out
}

type runJSON struct {
	ID           string     `json:"id"`
	State        string     `json:"state"`
	Template     string     `json:"template,omitempty"`
	ArchivePath  string     `json:"archive_path,omitempty"`
	PublishedURL string     `json:"published_url,omitempty"`
	Total        int        `json:"total"`
	Rendered     int        `json:"rendered"`
	Failed       int        `json:"failed"`
	Queued       int        `json:"queued"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func newRunJSON(r *domain.BatchRun) runJSON {
	out := runJSON{
		ID:           r.ID,
		State:        r.State.String(),
		Template:     r.TemplateName,
		ArchivePath:  r.ArchivePath,
		PublishedURL: r.PublishedURL,
		Total:        r.Total,
		Rendered:     r.Rendered,
		Failed:       r.Failed,
		Queued:       r.Queued,
		Error:        r.Error,
		StartedAt:    r.StartedAt,
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}

type deliveryJSON struct {
	Recipient string    `json:"recipient"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

func newDeliveriesJSON(results []domain.DeliveryResult) []deliveryJSON {
	out := make([]deliveryJSON, 0, len(results))
	for _, d := range results {
		out = append(out, deliveryJSON{
			Recipient: d.Recipient,
			Filename:  d.Filename,
			Status:    d.Status.String(),
			MessageID: d.MessageID,
			Error:     d.Error,
			At:        d.At,
		})
	}
	return out
}

type progressJSON struct {
	State    string  `json:"state"`
	Rendered int     `json:"rendered"`
	Failed   int     `json:"failed"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
}

func newProgressJSON(p *domain.BatchProgress) progressJSON {
	return progressJSON{
		State:    p.State.String(),
		Rendered: p.Rendered,
		Failed:   p.Failed,
		Total:    p.Total,
		Fraction: p.Fraction(),
	}
}
