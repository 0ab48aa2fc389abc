package conversation

import (
	"context"
	"fmt"

	"github.com/leadflow-ai/leadflow/pkg/logging"
)

// Publisher enqueues inbound events for asynchronous processing.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher wraps a queue client.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// EnqueueInbound publishes one inbound event. The job id defaults to the
// provider message id so redeliveries are traceable in logs.
func (p *Publisher) EnqueueInbound(ctx context.Context, event InboundEvent) error {
	payload, body, err := encodePayload(queuePayload{
		ID:    event.ProviderMessageID(),
		Event: event,
	})
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue inbound event: %w", err)
	}

	p.logger.Debug("inbound event enqueued",
		"job_id", payload.ID,
		"channel", string(event.Channel),
		"sender", event.Sender,
	)
	return nil
}
