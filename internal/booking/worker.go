package booking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/booklinehq/bookline/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// Submitter runs one booking submission against the remote page.
type Submitter interface {
	Submit(ctx context.Context, req Request) error
}

// Worker consumes submission jobs from the queue and invokes the driver.
// The pool size bounds concurrent automation sessions: the remote browser is
// a constrained resource, so at most cfg.workers submissions run at once.
type Worker struct {
	submitter Submitter
	queue     queueClient
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the queue long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// NewWorker creates a submission worker pool.
func NewWorker(submitter Submitter, queue queueClient, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if submitter == nil {
		panic("booking: submitter cannot be nil")
	}
	if queue == nil {
		panic("booking: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		submitter: submitter,
		queue:     queue,
		logger:    logger.Component("booking_worker"),
		cfg:       cfg,
	}
}

// Start launches the consumer goroutines. They exit when ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.consume(ctx, i)
	}
	w.logger.Info("booking workers started", "count", w.cfg.workers)
}

// Wait blocks until all consumer goroutines have finished.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) consume(ctx context.Context, id int) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue receive failed", "worker", id, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range messages {
			w.process(ctx, id, msg)
		}
	}
}

func (w *Worker) process(ctx context.Context, id int, msg queueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("dropping undecodable job", "worker", id, "message_id", msg.ID, "error", err)
		w.delete(msg)
		return
	}

	if payload.Kind != jobTypeSubmit {
		w.logger.Warn("dropping job of unknown kind", "worker", id, "kind", string(payload.Kind))
		w.delete(msg)
		return
	}

	w.logger.Info("processing submission",
		"worker", id,
		"job_id", payload.ID,
		"chat_id", payload.ChatID,
		"service_id", payload.Request.ServiceID,
	)

	// The chat was already told the booking completed (the confirmation
	// callback replies optimistically), so failures here are logged but
	// never surfaced back to the conversation.
	// Shutdown drains rather than abandons: a submission that has started
	// runs to completion even if the pool's context is canceled mid-flight.
	// The driver's own wait gates still bound its duration.
	if err := w.submitter.Submit(context.WithoutCancel(ctx), payload.Request); err != nil {
		w.logger.Error("submission job failed", "worker", id, "job_id", payload.ID, "error", err)
	}

	w.delete(msg)
}

func (w *Worker) delete(msg queueMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeoutSeconds*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("failed to delete queue message", "message_id", msg.ID, "error", err)
	}
}
