package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driving"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// Ensure DeliveryQueue implements the interface.
var _ driving.DeliveryQueue = (*DeliveryQueue)(nil)

// Delivery queue defaults.
const (
	DefaultDeliveryWorkers = 5
	DefaultIdleTimeout     = time.Second
	DefaultSendTimeout     = time.Minute
)

// DeliveryQueueConfig tunes the worker pool.
type DeliveryQueueConfig struct {
	// Workers bounds concurrent sends.
	Workers int

	// IdleTimeout is how long a worker waits on an empty queue before exiting.
	IdleTimeout time.Duration

	// SendTimeout bounds a single Send call.
	SendTimeout time.Duration
}

// DeliveryQueue is an unbounded FIFO drained by a bounded pool of workers.
//
// Workers start on demand and exit after IdleTimeout without work or once
// the queue is closed and empty. Sends run on a context detached from any
// batch, so cancelling a batch never aborts a message already handed over.
// Failed sends are recorded and never retried.
type DeliveryQueue struct {
	sender   driven.Sender
	composer *MessageComposer
	ledger   driven.DeliveryLedger
	cfg      DeliveryQueueConfig
	now      func() time.Time

	mu      sync.Mutex
	tasks   []domain.DeliveryTask
	closed  bool
	running int
	pending int
	drained chan struct{}
	batches map[string]*batchPending
	stats   domain.DeliveryStats

	notify chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// batchPending counts one batch's unfinished tasks. done closes when the
// count reaches zero.
type batchPending struct {
	n    int
	done chan struct{}
}

// NewDeliveryQueue creates a queue. The ledger is optional.
func NewDeliveryQueue(
	sender driven.Sender,
	composer *MessageComposer,
	ledger driven.DeliveryLedger,
	cfg DeliveryQueueConfig,
) *DeliveryQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultDeliveryWorkers
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if composer == nil {
		composer, _ = NewMessageComposer("", "", "")
	}

	drained := make(chan struct{})
	close(drained)

	return &DeliveryQueue{
		sender:   sender,
		composer: composer,
		ledger:   ledger,
		cfg:      cfg,
		now:      time.Now,
		drained:  drained,
		batches:  make(map[string]*batchPending),
		notify:   make(chan struct{}, cfg.Workers),
		stopCh:   make(chan struct{}),
	}
}

// Enqueue appends a task and makes sure a worker will pick it up.
func (q *DeliveryQueue) Enqueue(task domain.DeliveryTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.ErrQueueClosed
	}

	q.tasks = append(q.tasks, task)
	q.stats.Queued++
	if q.pending == 0 {
		q.drained = make(chan struct{})
	}
	q.pending++
	bp, ok := q.batches[task.BatchID]
	if !ok {
		bp = &batchPending{done: make(chan struct{})}
		q.batches[task.BatchID] = bp
	}
	bp.n++

	if q.running < q.cfg.Workers {
		q.running++
		q.wg.Add(1)
		go q.work()
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Drain waits up to timeout for every queued task to finish.
func (q *DeliveryQueue) Drain(timeout time.Duration) bool {
	q.mu.Lock()
	if q.pending == 0 {
		q.mu.Unlock()
		return true
	}
	drained := q.drained
	q.mu.Unlock()

	return waitClosed(drained, timeout)
}

// DrainBatch waits up to timeout for one batch's tasks to finish. Tasks
// of other batches do not hold it up.
func (q *DeliveryQueue) DrainBatch(batchID string, timeout time.Duration) bool {
	q.mu.Lock()
	bp, ok := q.batches[batchID]
	q.mu.Unlock()
	if !ok {
		return true
	}
	return waitClosed(bp.done, timeout)
}

func waitClosed(ch <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}

// Close stops accepting tasks. Queued tasks are still sent.
func (q *DeliveryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.stopCh)
}

// Shutdown closes the queue and waits for the workers to exit.
func (q *DeliveryQueue) Shutdown(ctx context.Context) error {
	q.Close()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns lifetime counters.
func (q *DeliveryQueue) Stats() domain.DeliveryStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.stats
	stats.Pending = q.pending
	return stats
}

// work is one worker goroutine.
func (q *DeliveryQueue) work() {
	defer q.wg.Done()

	for {
		task, ok := q.next()
		if !ok {
			return
		}
		q.deliver(task)
	}
}

// next dequeues a task, waiting at most IdleTimeout for one to arrive.
// It returns false once the worker should exit; the running count is
// released under the same lock that observed the empty queue.
func (q *DeliveryQueue) next() (domain.DeliveryTask, bool) {
	idle := time.NewTimer(q.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		q.mu.Lock()
		if len(q.tasks) > 0 {
			task := q.tasks[0]
			q.tasks[0] = domain.DeliveryTask{}
			q.tasks = q.tasks[1:]
			q.mu.Unlock()
			return task, true
		}
		if q.closed {
			q.running--
			q.mu.Unlock()
			return domain.DeliveryTask{}, false
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-q.stopCh:
		case <-idle.C:
			q.mu.Lock()
			if len(q.tasks) > 0 {
				q.mu.Unlock()
				idle.Reset(q.cfg.IdleTimeout)
				continue
			}
			q.running--
			q.mu.Unlock()
			return domain.DeliveryTask{}, false
		}
	}
}

// deliver sends one task and records the outcome.
func (q *DeliveryQueue) deliver(task domain.DeliveryTask) {
	result := domain.DeliveryResult{
		ID:        uuid.NewString(),
		BatchID:   task.BatchID,
		Recipient: task.Recipient,
		Filename:  task.Filename,
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.SendTimeout)
	defer cancel()

	messageID, err := q.send(ctx, task)
	result.At = q.now()
	if err != nil {
		sendErr := &domain.DeliverySendError{Recipient: task.Recipient, Filename: task.Filename, Err: err}
		result.Status = domain.DeliveryStatusFailed
		result.Error = sendErr.Error()
		logger.Warn("delivery: %v", sendErr)
	} else {
		result.Status = domain.DeliveryStatusSent
		result.MessageID = messageID
		logger.Info("Email sent successfully to %s (%s)", task.Recipient, task.Filename)
	}

	if q.ledger != nil {
		if recErr := q.ledger.Record(context.Background(), result); recErr != nil {
			logger.Warn("delivery: record outcome for %s: %v", task.Recipient, recErr)
		}
	}

	q.mu.Lock()
	if err != nil {
		q.stats.Failed++
	} else {
		q.stats.Sent++
	}
	q.pending--
	if q.pending == 0 {
		close(q.drained)
	}
	if bp, ok := q.batches[task.BatchID]; ok {
		bp.n--
		if bp.n == 0 {
			close(bp.done)
			delete(q.batches, task.BatchID)
		}
	}
	q.mu.Unlock()
}

func (q *DeliveryQueue) send(ctx context.Context, task domain.DeliveryTask) (string, error) {
	if q.sender == nil {
		return "", domain.ErrDeliveryUnavailable
	}
	if task.Recipient == "" {
		return "", errors.New("empty recipient")
	}
	msg, err := q.composer.Compose(task, q.now())
	if err != nil {
		return "", err
	}
	return q.sender.Send(ctx, msg)
}
