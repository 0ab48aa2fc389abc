package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/leadflow-ai/leadflow/internal/observability/metrics"
	"github.com/leadflow-ai/leadflow/pkg/logging"
)

const (
	defaultWorkerCount  = 2
	defaultWaitSeconds  = 2
	defaultBatchSize    = 5
	maxWaitSeconds      = 20
	maxReceiveBatchSize = 10
	deleteTimeoutSecs   = 5
)

type processor interface {
	ProcessIncomingMessage(ctx context.Context, event InboundEvent) (*Result, error)
}

// Worker consumes inbound events from the queue, runs the pipeline, and
// delivers the reply over the event's channel.
type Worker struct {
	processor processor
	queue     queueClient
	messenger ReplyMessenger
	metrics   *metrics.PipelineMetrics
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	metrics          *metrics.PipelineMetrics
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumers.
func WithWorkerCount(n int) WorkerOption {
	return func(c *workerConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithReceiveWait sets the long-poll wait in seconds.
func WithReceiveWait(seconds int) WorkerOption {
	return func(c *workerConfig) {
		if seconds > 0 && seconds <= maxWaitSeconds {
			c.receiveWaitSecs = seconds
		}
	}
}

// WithPipelineMetrics attaches Prometheus observations to each job.
func WithPipelineMetrics(m *metrics.PipelineMetrics) WorkerOption {
	return func(c *workerConfig) {
		c.metrics = m
	}
}

// NewWorker wires a queue consumer around the pipeline processor.
func NewWorker(proc processor, queue queueClient, messenger ReplyMessenger, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if proc == nil {
		panic("conversation: processor cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if messenger == nil {
		panic("conversation: messenger cannot be nil")
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
	if cfg.receiveBatchSize > maxReceiveBatchSize {
		cfg.receiveBatchSize = maxReceiveBatchSize
	}

	return &Worker{
		processor: proc,
		queue:     queue,
		messenger: messenger,
		metrics:   cfg.metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run consumes the queue until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.consume(ctx, id)
		}(i)
	}
	w.wg.Wait()
}

func (w *Worker) consume(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("queue receive failed", "error", err, "worker", id)
			continue
		}

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	// The provider has already been acked; a poison message must not loop forever.
	defer w.deleteMessage(msg.ReceiptHandle)

	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode queue payload", "error", err, "message_id", msg.ID)
		return
	}
	event := payload.Event

	start := time.Now()
	result, err := w.processor.ProcessIncomingMessage(ctx, event)
	switch {
	case errors.Is(err, ErrDuplicateDelivery):
		w.observe(event.Channel, "duplicate", start)
		return
	case err != nil:
		w.observe(event.Channel, "error", start)
		w.logger.Error("pipeline failed", "error", err, "job_id", payload.ID, "sender", event.Sender)
		return
	}

	if err := w.messenger.SendReply(ctx, OutboundReply{
		To:      event.Sender,
		Body:    result.ReplyText,
		Channel: event.Channel,
	}); err != nil {
		w.observe(event.Channel, "send_failed", start)
		w.logger.Error("failed to send reply", "error", err,
			"lead_id", result.LeadID,
			"conversation_id", result.ConversationID,
		)
		return
	}

	w.observe(event.Channel, "ok", start)
}

func (w *Worker) deleteMessage(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeoutSecs*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Warn("failed to delete queue message", "error", err)
	}
}

func (w *Worker) observe(channel Channel, outcome string, start time.Time) {
	if w.metrics == nil {
		return
	}
	w.metrics.ObservePipeline(string(channel), outcome, time.Since(start).Seconds())
}
