package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/internal/queue"
	"github.com/meterline/billing/pkg/logger"
	"github.com/meterline/billing/pkg/prom"
)

// Deliverer posts a notification to the configured webhook receivers.
type Deliverer interface {
	Deliver(ctx context.Context, n *Notification) error
}

// WebhookProcessor turns billing events into webhook notifications with
// idempotency guarantees.
type WebhookProcessor struct {
	client      Deliverer
	idempotency *IdempotencyService
}

func NewWebhookProcessor(client Deliverer, idempotency *IdempotencyService) *WebhookProcessor {
	return &WebhookProcessor{
		client:      client,
		idempotency: idempotency,
	}
}

func (p *WebhookProcessor) GetType() string {
	return "webhook"
}

// Process delivers one billing event to the webhook receivers. Returning
// nil acks the event; returning an error leaves it pending for retry.
func (p *WebhookProcessor) Process(ctx context.Context, ev *queue.Event) error {
	// Step 1: Identify the event type
	eventType := ev.Metadata["type"]
	switch eventType {
	case model.EventBillGenerated, model.EventPaymentRecorded:
	default:
		// Unknown type will not succeed on retry - ack and drop
		logger.Warn("Unknown billing event type, dropping", "event_id", ev.ID, "type", eventType)
		return nil
	}

	if !json.Valid(ev.Data) {
		logger.Error("Malformed billing event payload, dropping", "event_id", ev.ID, "type", eventType)
		return nil
	}

	// Step 2: Acquire delivery lock and check idempotency
	delCtx, err := p.idempotency.AcquireDeliveryLock(ctx, ev.ID)
	if err != nil {
		if errors.Is(err, ErrAlreadyDelivered) {
			// Already delivered - ack to remove from the stream
			logger.Info("Event already delivered, skipping", "event_id", ev.ID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			// Exhausted retries - ack so the queue moves it to the dead letter stream
			logger.Error("Delivery retries exhausted", "event_id", ev.ID, "type", eventType)
			return nil
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			// Another consumer is delivering - nack to retry later
			logger.Info("Lock held by another consumer, will retry", "event_id", ev.ID)
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire delivery lock", "event_id", ev.ID, "error", err)
		return err
	}

	// Release the lock on exit unless already marked delivered or failed
	defer func() {
		if delCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, delCtx)
		}
	}()

	logger.Info("Delivering billing event",
		"event_id", ev.ID,
		"type", eventType,
		"retry_count", delCtx.RetryCount,
		"is_retry", delCtx.IsRetry)

	// Step 3: Post the notification
	notification := &Notification{
		EventID:    ev.ID,
		Event:      eventType,
		OccurredAt: ev.Timestamp,
		Payload:    json.RawMessage(ev.Data),
	}

	if err := p.client.Deliver(ctx, notification); err != nil {
		logger.Error("Failed to deliver notification", "event_id", ev.ID, "type", eventType, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, delCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "event_id", ev.ID, "error", markErr)
		}
		return err // nack to retry from the stream
	}

	// Step 4: Record lag from publish to delivery and set the delivered marker
	prom.AddNotifyDuration(time.Since(ev.Timestamp).Seconds(), eventType)

	if markErr := p.idempotency.MarkDelivered(ctx, delCtx); markErr != nil {
		logger.Error("Failed to mark delivered", "event_id", ev.ID, "error", markErr)
		// Continue - notification was posted successfully
	}

	return nil
}
