package services

import (
	"context"
	"time"

	"github.com/meterline/billing/pkg/logger"
)

type NowFunc func() time.Time

func defaultNow() time.Time { return time.Now() }

// publishEvent runs after commit and is best effort: a stream outage must
// not undo committed billing work.
func publishEvent(ctx context.Context, events EventPublisher, eventType string, payload interface{}) {
	if events == nil {
		return
	}
	if _, err := events.PublishJSON(ctx, payload, map[string]string{"type": eventType}); err != nil {
		logger.Warn("failed to publish billing event", "type", eventType, "error", err)
	}
}
