package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driving"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// Ensure BatchOrchestrator implements the interface.
var _ driving.BatchService = (*BatchOrchestrator)(nil)

// Orchestrator defaults.
const (
	DefaultConcurrency  = 4
	DefaultDrainTimeout = 25 * time.Second

	// progressLogEvery is how many records pass between progress log lines.
	progressLogEvery = 50

	archiveTimestamp = "20060102_150405"

	// maxArchiveSuffix bounds the _2, _3, ... tries for a default archive name.
	maxArchiveSuffix = 100
)

// BatchConfig tunes the orchestrator.
type BatchConfig struct {
	// Concurrency bounds records rendered in parallel.
	Concurrency int

	// DrainTimeout bounds the wait for queued deliveries.
	DrainTimeout time.Duration

	// Render places replacement text.
	Render domain.RenderOptions
}

// BatchOrchestrator validates, renders, packages and delivers batches.
type BatchOrchestrator struct {
	engine    driven.LayoutEngine
	sink      driven.ArchiveSink
	runs      driven.BatchRunStore
	ledger    driven.DeliveryLedger
	queue     driving.DeliveryQueue
	publisher driven.ArchivePublisher
	cfg       BatchConfig
	now       func() time.Time

	// Status tracking
	mu     sync.RWMutex
	active map[string]*domain.BatchProgress
}

// NewBatchOrchestrator creates a batch orchestrator.
// The run store, ledger, queue and publisher are optional: a nil queue
// disables delivery and a nil publisher disables publication.
func NewBatchOrchestrator(
	engine driven.LayoutEngine,
	sink driven.ArchiveSink,
	runs driven.BatchRunStore,
	ledger driven.DeliveryLedger,
	queue driving.DeliveryQueue,
	publisher driven.ArchivePublisher,
	cfg BatchConfig,
) *BatchOrchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if cfg.Render.FontSize <= 0 {
		cfg.Render = domain.DefaultRenderOptions()
	}
	return &BatchOrchestrator{
		engine:    engine,
		sink:      sink,
		runs:      runs,
		ledger:    ledger,
		queue:     queue,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		active:    make(map[string]*domain.BatchProgress),
	}
}

// batchRun carries the mutable state of one Run call.
type batchRun struct {
	req      domain.BatchRequest
	run      domain.BatchRun
	progress domain.BatchProgress

	mu       sync.Mutex
	writer   driven.ArchiveWriter
	tasks    []domain.DeliveryTask
	failures []domain.RecordFailure
}

// Run executes one batch.
//
// Fail-fast unless ContinueOnError is set: the first record error cancels
// the remaining work, aborts the archive and removes the working directory.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *BatchOrchestrator) Run(ctx context.Context, req domain.BatchRequest) (*domain.BatchResult, error) {
	// 1. Fill defaults and register the run
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Now.IsZero() {
		req.Now = o.now()
	}
	defaultName := req.ArchiveName == ""
	if defaultName {
		req.ArchiveName = domain.ArchivePrefix + req.Now.Format(archiveTimestamp) + ".zip"
	}
	if req.OutputDir == "" {
		req.OutputDir = "."
	}

	b := &batchRun{
		req: req,
		run: domain.BatchRun{
			ID:           req.ID,
			State:        domain.BatchStateValidating,
			TemplateName: req.TemplateName,
			StartedAt:    o.now(),
		},
		progress: domain.BatchProgress{BatchID: req.ID, State: domain.BatchStateValidating},
	}
	if err := o.register(b); err != nil {
		return nil, err
	}
	defer o.unregister(req.ID)

	logger.Section("Batch " + req.ID)
	o.transition(ctx, b, domain.BatchStateValidating)

	// 2. Validate columns and template before touching the filesystem
	plans, err := NewPlanner(req.Mapping).PlanTable(req.Table, req.Now)
	if err != nil {
		return nil, o.fail(ctx, b, err)
	}
	renderer := NewRenderer(o.engine, o.cfg.Render)
	if err := renderer.Check(req.Template); err != nil {
		var loadErr *domain.TemplateLoadError
		if errors.As(err, &loadErr) {
			loadErr.Template = req.TemplateName
		}
		return nil, o.fail(ctx, b, err)
	}

	b.mu.Lock()
	b.progress.Total = len(plans)
	b.run.Total = len(plans)
	b.mu.Unlock()

	// 3. Open the working directory and the archive
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return nil, o.fail(ctx, b, fmt.Errorf("create output directory: %w", err))
	}
	workdir, err := os.MkdirTemp("", "lettermerge-"+req.ID+"-")
	if err != nil {
		return nil, o.fail(ctx, b, fmt.Errorf("create working directory: %w", err))
	}
	defer os.RemoveAll(workdir)

	writer, err := o.createArchive(ctx, req.OutputDir, req.ArchiveName, defaultName)
	if err != nil {
		return nil, o.fail(ctx, b, fmt.Errorf("create archive: %w", err))
	}
	b.writer = writer

	// 4. Render records in parallel, appending to the archive one at a time
	o.transition(ctx, b, domain.BatchStateRendering)
	logger.Info("Rendering %d records with %s", len(plans), o.engine.Name())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for _, plan := range plans {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return o.renderOne(gctx, b, renderer, workdir, plan)
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if abortErr := writer.Abort(); abortErr != nil {
			logger.Warn("abort archive %s: %v", writer.Path(), abortErr)
		}
		return nil, o.fail(ctx, b, err)
	}

	// 5. Package
	o.transition(ctx, b, domain.BatchStatePackaging)
	if err := writer.Commit(); err != nil {
		_ = writer.Abort()
		return nil, o.fail(ctx, b, fmt.Errorf("commit archive: %w", err))
	}

	result := &domain.BatchResult{
		BatchID:     req.ID,
		ArchivePath: writer.Path(),
		Entries:     writer.Entries(),
		Failures:    b.failures,
	}
	b.run.ArchivePath = result.ArchivePath
	logger.Info("Archive %s written with %d documents", result.ArchivePath, len(result.Entries))

	// 6. Publish, best effort
	if o.publisher != nil {
		url, err := o.publisher.Publish(ctx, result.ArchivePath)
		if err != nil {
			logger.Warn("publish %s: %v", result.ArchivePath, err)
		} else {
			result.PublishedURL = url
			b.run.PublishedURL = url
		}
	}

	// 7. Hand deliveries to the queue and wait a bounded time
	result.DeliveriesDrained = true
	if req.Deliver {
		result.DeliveriesQueued, result.DeliveriesDrained = o.deliver(ctx, b)
	}

	o.transition(ctx, b, domain.BatchStateDone)
	return result, nil
}

// createArchive opens the archive. A default name that is already taken
// gets the first free _2, _3, ... suffix; an explicit name is never changed.
func (o *BatchOrchestrator) createArchive(
	ctx context.Context,
	dir, name string,
	suffixed bool,
) (driven.ArchiveWriter, error) {
	writer, err := o.sink.Create(ctx, filepath.Join(dir, name))
	if !suffixed {
		return writer, err
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; errors.Is(err, domain.ErrAlreadyExists) && n <= maxArchiveSuffix; n++ {
		writer, err = o.sink.Create(ctx, filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, ext)))
	}
	return writer, err
}

// renderOne renders, stages and archives one plan.
func (o *BatchOrchestrator) renderOne(
	ctx context.Context,
	b *batchRun,
	renderer *Renderer,
	workdir string,
	plan *domain.SubstitutionPlan,
) error {
	data, err := renderer.Render(ctx, b.req.Template, plan)
	if err == nil {
		err = o.archive(b, workdir, plan, data)
	}
	if err != nil {
		if !b.req.ContinueOnError || ctx.Err() != nil {
			return err
		}
		logger.Warn("skipping record %d: %v", plan.Record, err)
		b.mu.Lock()
		b.failures = append(b.failures, domain.RecordFailure{
			Record:   plan.Record,
			Filename: plan.Filename,
			Error:    err.Error(),
		})
		b.progress.Failed++
		b.run.Failed++
		b.mu.Unlock()
		o.notify(b)
		return nil
	}

	logger.Info("Processed employee ID: %s", plan.EmployeeID)

	b.mu.Lock()
	if b.req.Deliver && plan.Recipient != "" {
		b.tasks = append(b.tasks, domain.DeliveryTask{
			BatchID:     b.req.ID,
			Recipient:   plan.Recipient,
			DisplayName: plan.DisplayName,
			Filename:    plan.Filename,
			Document:    data,
		})
	}
	b.progress.Rendered++
	b.run.Rendered++
	done := b.progress.Rendered
	b.mu.Unlock()

	if done%progressLogEvery == 0 {
		logger.Info("Processed batch of %d records (%d/%d)", progressLogEvery, done, b.progress.Total)
	}
	o.notify(b)
	return nil
}

// archive stages the document in the working directory, then appends it
// to the archive under the batch lock and removes the staged copy.
func (o *BatchOrchestrator) archive(b *batchRun, workdir string, plan *domain.SubstitutionPlan, data []byte) error {
	staged := filepath.Join(workdir, plan.Filename)
	if err := os.WriteFile(staged, data, 0600); err != nil {
		return fmt.Errorf("stage %s: %w", plan.Filename, err)
	}
	defer os.Remove(staged)

	f, err := os.Open(staged)
	if err != nil {
		return fmt.Errorf("stage %s: %w", plan.Filename, err)
	}
	defer f.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writer.Add(plan.Filename, f); err != nil {
		return fmt.Errorf("add %s to archive: %w", plan.Filename, err)
	}
	return nil
}

// deliver enqueues the collected tasks and waits up to DrainTimeout.
func (o *BatchOrchestrator) deliver(ctx context.Context, b *batchRun) (int, bool) {
	if len(b.tasks) == 0 {
		return 0, true
	}
	if o.queue == nil {
		logger.Warn("delivery requested but no delivery provider is configured; %d emails not sent", len(b.tasks))
		return 0, true
	}

	o.transition(ctx, b, domain.BatchStateDeliveryDraining)

	queued := 0
	for _, task := range b.tasks {
		if err := o.queue.Enqueue(task); err != nil {
			logger.Warn("queue delivery to %s: %v", task.Recipient, err)
			continue
		}
		queued++
	}
	b.run.Queued = queued
	b.tasks = nil

	drained := o.queue.DrainBatch(b.req.ID, o.cfg.DrainTimeout)
	if !drained {
		logger.Warn("Email sending will continue in the background")
	}
	return queued, drained
}

// Plan validates a request and returns every record's plan without rendering.
func (o *BatchOrchestrator) Plan(_ context.Context, req domain.BatchRequest) ([]*domain.SubstitutionPlan, error) {
	if req.Now.IsZero() {
		req.Now = o.now()
	}
	plans, err := NewPlanner(req.Mapping).PlanTable(req.Table, req.Now)
	if err != nil {
		return nil, err
	}
	if req.Template != nil {
		if err := NewRenderer(o.engine, o.cfg.Render).Check(req.Template); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

// Status returns live progress, or the final state of a recorded run.
func (o *BatchOrchestrator) Status(batchID string) (*domain.BatchProgress, error) {
	o.mu.RLock()
	progress, ok := o.active[batchID]
	if ok {
		p := *progress
		o.mu.RUnlock()
		return &p, nil
	}
	o.mu.RUnlock()

	run, err := o.Get(context.Background(), batchID)
	if err != nil {
		return nil, err
	}
	return &domain.BatchProgress{
		BatchID:  run.ID,
		State:    run.State,
		Rendered: run.Rendered,
		Failed:   run.Failed,
		Total:    run.Total,
	}, nil
}

// List returns recorded runs, most recent first.
func (o *BatchOrchestrator) List(ctx context.Context, limit int) ([]domain.BatchRun, error) {
	if o.runs == nil {
		return nil, nil
	}
	return o.runs.List(ctx, limit)
}

// Get returns one recorded run.
func (o *BatchOrchestrator) Get(ctx context.Context, batchID string) (*domain.BatchRun, error) {
	if o.runs == nil {
		return nil, domain.ErrNotFound
	}
	return o.runs.Get(ctx, batchID)
}

// Deliveries returns the delivery outcomes recorded for a batch.
func (o *BatchOrchestrator) Deliveries(ctx context.Context, batchID string) ([]domain.DeliveryResult, error) {
	if o.ledger == nil {
		return nil, nil
	}
	return o.ledger.ListByBatch(ctx, batchID)
}

func (o *BatchOrchestrator) register(b *batchRun) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.active[b.req.ID]; ok {
		return fmt.Errorf("batch %s: %w", b.req.ID, domain.ErrBatchInProgress)
	}
	p := b.progress
	o.active[b.req.ID] = &p
	return nil
}

func (o *BatchOrchestrator) unregister(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, id)
}

// transition moves the run to a new state, persists it and notifies.
func (o *BatchOrchestrator) transition(ctx context.Context, b *batchRun, state domain.BatchState) {
	b.mu.Lock()
	b.progress.State = state
	b.run.State = state
	if state.IsTerminal() {
		b.run.FinishedAt = o.now()
	}
	run := b.run
	b.mu.Unlock()

	logger.Debug("batch %s: %s", run.ID, state)
	o.save(ctx, run)
	o.notify(b)
}

// fail records the error against the run and returns it.
func (o *BatchOrchestrator) fail(ctx context.Context, b *batchRun, err error) error {
	b.mu.Lock()
	b.run.Error = err.Error()
	b.mu.Unlock()

	logger.Error("batch %s failed: %v", b.req.ID, err)
	o.transition(ctx, b, domain.BatchStateFailed)
	return err
}

// notify publishes the current progress to Status and the request callback.
func (o *BatchOrchestrator) notify(b *batchRun) {
	b.mu.Lock()
	p := b.progress
	b.mu.Unlock()

	o.mu.Lock()
	if cur, ok := o.active[p.BatchID]; ok {
		*cur = p
	}
	o.mu.Unlock()

	if b.req.Progress != nil {
		b.req.Progress(p)
	}
}

// save persists the run. The ledger outlives cancellation of the batch.
func (o *BatchOrchestrator) save(ctx context.Context, run domain.BatchRun) {
	if o.runs == nil {
		return
	}
	if err := o.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("save batch %s: %v", run.ID, err)
	}
}
