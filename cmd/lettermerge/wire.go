package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/archive/zip"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/gmail"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/outbox"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/smtp"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/throttle"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/google"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/layout"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/layout/memory"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/layout/pdf"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/publish/drive"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lettermerge/internal/adapters/driven/table"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driving"
	"github.com/custodia-labs/lettermerge/internal/core/services"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// app holds the wired services and what must be released at exit.
type app struct {
	settings  *services.SettingsService
	batches   *services.BatchOrchestrator
	generator *services.Generator

	store *sqlite.Store
	queue *services.DeliveryQueue
}

func wire(ctx context.Context, dir string) (*app, error) {
	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	a := &app{settings: settingsService, store: store}

	// Delivery and publication fail soft: the archive is still produced.
	sender, err := newSender(ctx, settings)
	if err != nil {
		logger.Warn("delivery disabled: %v", err)
	}
	var deliveries driving.DeliveryQueue
	if sender != nil {
		composer, err := services.NewMessageComposer(
			settings.Delivery.Sender, settings.Delivery.Subject, settings.Delivery.Body)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("delivery message: %w", err)
		}
		a.queue = services.NewDeliveryQueue(sender, composer, store.DeliveryLedger(), services.DeliveryQueueConfig{
			Workers:     settings.Delivery.Workers,
			IdleTimeout: settings.Delivery.IdleTimeout,
		})
		deliveries = a.queue
	}

	publisher, err := newPublisher(ctx, settings)
	if err != nil {
		logger.Warn("publication disabled: %v", err)
	}

	render := domain.DefaultRenderOptions()
	render.FontSize = settings.Render.FontSize
	render.DefaultOffset = settings.Render.DefaultOffset

	cfg := services.BatchConfig{
		Concurrency:  settings.Batch.Concurrency,
		DrainTimeout: settings.Delivery.DrainTimeout,
		Render:       render,
	}
	engine := layout.NewEngine(pdf.NewEngine(), memory.NewEngine())

	a.batches = services.NewBatchOrchestrator(
		engine, zip.NewSink(), store.BatchRunStore(), store.DeliveryLedger(), deliveries, publisher, cfg)

	a.generator = services.NewGenerator(
		table.NewDefaultRegistry(), file.NewMappingLoader(), a.batches, settingsService)
	return a, nil
}

// newSender builds the configured transport. It returns nil, nil when
// delivery is off.
func newSender(ctx context.Context, s *domain.AppSettings) (driven.Sender, error) {
	switch s.Delivery.Provider {
	case domain.DeliveryProviderNone, "":
		return nil, nil

	case domain.DeliveryProviderGmail:
		opts, err := google.ClientOptions(ctx, s.Google)
		if err != nil {
			return nil, err
		}
		svc, err := google.NewGmailService(ctx, opts...)
		if err != nil {
			return nil, err
		}
		var limiter *google.RateLimiter
		if s.Delivery.RatePerSecond > 0 {
			limiter = google.NewRateLimiterWithConfig(google.RateLimitConfig{
				RequestsPerSecond: s.Delivery.RatePerSecond,
				BurstSize:         1,
			})
		}
		return gmail.NewSender(svc, limiter), nil

	case domain.DeliveryProviderSMTP:
		sender, err := smtp.NewSender(s.SMTP)
		if err != nil {
			return nil, err
		}
		return throttle.Wrap(sender, s.Delivery.RatePerSecond), nil

	case domain.DeliveryProviderOutbox:
		box, err := outbox.New(s.Outbox)
		if err != nil {
			return nil, err
		}
		return box, nil

	default:
		return nil, fmt.Errorf("unknown delivery provider %q", s.Delivery.Provider)
	}
}

// newPublisher returns nil, nil when no Drive folder is configured.
func newPublisher(ctx context.Context, s *domain.AppSettings) (driven.ArchivePublisher, error) {
	if s.Publish.DriveFolderID == "" {
		return nil, nil
	}
	opts, err := google.ClientOptions(ctx, s.Google)
	if err != nil {
		return nil, err
	}
	svc, err := google.NewDriveService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	publisher, err := drive.NewPublisher(svc, s.Publish.DriveFolderID)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

// Close waits for background deliveries, then closes the ledger.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.queue != nil {
		if stats := a.queue.Stats(); stats.Pending > 0 {
			logger.Info("Waiting for %d emails to finish sending...", stats.Pending)
		}
		if err := a.queue.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
