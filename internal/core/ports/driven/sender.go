package driven

import (
	"context"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// Sender submits one message with one attachment to one recipient.
type Sender interface {
	// Send delivers the message and returns a transport message ID.
	Send(ctx context.Context, msg domain.Message) (string, error)

	// Name identifies the transport in logs and the ledger.
	Name() string
}

// ArchivePublisher makes a packaged archive available elsewhere.
type ArchivePublisher interface {
	// Publish uploads the archive and returns a link to it.
	Publish(ctx context.Context, path string) (string, error)
}
