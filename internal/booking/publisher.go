package booking

import (
	"context"
	"fmt"

	"github.com/booklinehq/bookline/pkg/logging"
)

// Publisher enqueues booking submissions for asynchronous processing.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("booking: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger.Component("booking"),
	}
}

// EnqueueSubmit publishes a submission job for the given chat.
func (p *Publisher) EnqueueSubmit(ctx context.Context, chatID int64, req Request) error {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, body, err := encodePayload(queuePayload{
		Kind:    jobTypeSubmit,
		ChatID:  chatID,
		Request: req,
	})
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("booking: failed to enqueue submission: %w", err)
	}

	p.logger.Debug("submission enqueued", "job_id", payload.ID, "chat_id", chatID, "service_id", req.ServiceID)
	return nil
}
