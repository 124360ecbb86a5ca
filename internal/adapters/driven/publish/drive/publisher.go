// Package drive publishes packaged archives to a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	driveapi "google.golang.org/api/drive/v3"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/google"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// Ensure Publisher implements the interface.
var _ driven.ArchivePublisher = (*Publisher)(nil)

const zipMIMEType = "application/zip"

// Publisher uploads archives into one folder.
type Publisher struct {
	svc      *driveapi.Service
	folderID string
	limiter  *google.RateLimiter
}

// NewPublisher creates a publisher for folderID.
func NewPublisher(svc *driveapi.Service, folderID string) (*Publisher, error) {
	if folderID == "" {
		return nil, fmt.Errorf("%w: drive folder id is required", domain.ErrInvalidInput)
	}
	return &Publisher{
		svc:      svc,
		folderID: folderID,
		limiter:  google.NewRateLimiter(google.ServiceDrive),
	}, nil
}

// Publish uploads the archive and returns its web link.
func (p *Publisher) Publish(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	meta := &driveapi.File{
		Name:     filepath.Base(path),
		MimeType: zipMIMEType,
		Parents:  []string{p.folderID},
	}
	created, err := p.svc.Files.Create(meta).
		Media(f).
		Fields("id", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		if google.IsRateLimited(err) {
			p.limiter.RecordRateLimitError(google.RetryAfter(err))
		}
		return "", fmt.Errorf("upload %s: %w", meta.Name, google.WrapError(err))
	}

	link := created.WebViewLink
	if link == "" {
		link = "https://drive.google.com/file/d/" + created.Id + "/view"
	}
	logger.Info("Published %s to Drive: %s", meta.Name, link)
	return link, nil
}
