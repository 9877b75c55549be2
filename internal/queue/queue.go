package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/meterline/billing/pkg/redis"
)

// Event is one entry read off a billing stream. Handlers normally rely on
// auto-ack; Ack and Nack exist for handlers that decide mid-flight.
type Event struct {
	ID        string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
	Attempts  int
	acked     bool
	nacked    bool
	queue     *Queue
}

func (e *Event) Ack() error {
	if e.acked {
		return fmt.Errorf("event already acknowledged")
	}
	if e.nacked {
		return fmt.Errorf("event already rejected")
	}

	e.acked = true
	return e.queue.ackEvent(e.ID)
}

// Nack leaves the event pending so it gets reclaimed and retried.
func (e *Event) Nack() error {
	if e.acked {
		return fmt.Errorf("event already acknowledged")
	}
	if e.nacked {
		return fmt.Errorf("event already rejected")
	}

	e.nacked = true
	return nil
}

// EventHandler processes one event. Returning nil acks it; returning an
// error leaves it pending for retry.
type EventHandler func(ctx context.Context, ev *Event) error

type QueueConfig struct {
	Name              string
	ConsumerGroup     string
	ConsumerName      string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	EnableDLQ         bool
}

// Queue is a redis-stream event bus with a consumer group, visibility-based
// reclaim of stuck events and an optional dead letter stream for events that
// exhaust their retries.
type Queue struct {
	adapter    redis.Adapter
	config     QueueConfig
	handler    EventHandler
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	processing map[string]*Event
}

type QueueStats struct {
	TotalEvents   int64
	PendingEvents int64
	ConsumerCount int64
}

func NewQueue(adapter redis.Adapter, config QueueConfig) (*Queue, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "billing-group"
	}
	if config.ConsumerName == "" {
		config.ConsumerName = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.VisibilityTimeout == 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		adapter:    adapter,
		config:     config,
		ctx:        ctx,
		cancel:     cancel,
		processing: make(map[string]*Event),
	}

	// group might already exist, which is fine
	_ = q.adapter.XGroupCreateMkStream(q.config.Name, q.config.ConsumerGroup, "0")

	return q, nil
}

func (q *Queue) Publish(ctx context.Context, data []byte, metadata map[string]string) (string, error) {
	values := map[string]interface{}{
		"data":      string(data),
		"timestamp": time.Now().Unix(),
		"attempts":  0,
	}
	for k, v := range metadata {
		values["meta_"+k] = v
	}

	id, err := q.adapter.XAdd(q.config.Name, values)
	if err != nil {
		return "", fmt.Errorf("failed to publish event: %w", err)
	}

	if q.config.MaxLen > 0 {
		_ = q.adapter.XTrimApprox(q.config.Name, q.config.MaxLen)
	}

	return id, nil
}

func (q *Queue) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return q.Publish(ctx, jsonData, metadata)
}

// Consume starts the polling loop. Events whose handler returns nil are
// acked; failed events stay pending until the visibility timeout and are
// then reclaimed with a bumped attempt count.
func (q *Queue) Consume(handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("event handler is required")
	}

	q.handler = handler
	q.wg.Add(1)

	go q.consumeLoop()

	return nil
}

func (q *Queue) consumeLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processNewEvents()
			q.claimStuckEvents()
		}
	}
}

func (q *Queue) processNewEvents() {
	messages, err := q.adapter.XReadGroup(
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.Name,
		">",
		q.config.BatchSize,
	)
	if err != nil {
		return
	}

	for _, streamMsg := range messages {
		ev := q.toEvent(streamMsg)
		q.handleEvent(ev)
	}
}

func (q *Queue) claimStuckEvents() {
	pending, err := q.adapter.XPending(q.config.Name, q.config.ConsumerGroup)
	if err != nil || pending == nil || pending.Count == 0 {
		return
	}

	pendingExt, err := q.adapter.XPendingExt(q.config.Name, q.config.ConsumerGroup, "-", "+", 100)
	if err != nil || len(pendingExt) == 0 {
		return
	}

	var idsToReclaim []string
	for _, msg := range pendingExt {
		if msg.Idle >= q.config.VisibilityTimeout {
			idsToReclaim = append(idsToReclaim, msg.ID)
		}
	}
	if len(idsToReclaim) == 0 {
		return
	}

	messages, err := q.adapter.XClaim(
		q.config.Name,
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.VisibilityTimeout,
		idsToReclaim...,
	)
	if err != nil {
		return
	}

	for _, streamMsg := range messages {
		ev := q.toEvent(streamMsg)
		ev.Attempts++
		q.handleEvent(ev)
	}
}

func (q *Queue) handleEvent(ev *Event) {
	q.mu.Lock()
	q.processing[ev.ID] = ev
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.processing, ev.ID)
		q.mu.Unlock()
	}()

	if ev.Attempts >= q.config.MaxRetries {
		q.moveToDeadLetter(ev)
		_ = q.ackEvent(ev.ID)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.config.VisibilityTimeout)
	defer cancel()

	if err := q.handler(ctx, ev); err != nil {
		// not acked, stays pending for reclaim
		return
	}
	_ = q.ackEvent(ev.ID)
}

func (q *Queue) ackEvent(eventID string) error {
	return q.adapter.XAck(q.config.Name, q.config.ConsumerGroup, eventID)
}

func (q *Queue) moveToDeadLetter(ev *Event) {
	if !q.config.EnableDLQ {
		return
	}

	values := map[string]interface{}{
		"data":            string(ev.Data),
		"original_id":     ev.ID,
		"attempts":        ev.Attempts,
		"failed_at":       time.Now().Unix(),
		"original_stream": q.config.Name,
	}
	for k, v := range ev.Metadata {
		values["meta_"+k] = v
	}

	_, _ = q.adapter.XAdd(q.config.Name+":dlq", values)
}

func (q *Queue) toEvent(streamMsg redis.StreamMessage) *Event {
	ev := &Event{
		ID:       streamMsg.ID,
		Metadata: make(map[string]string),
		queue:    q,
	}

	for k, v := range streamMsg.Values {
		switch k {
		case "data":
			if data, ok := v.(string); ok {
				ev.Data = []byte(data)
			}
		case "timestamp":
			if ts, ok := v.(string); ok {
				if unix, err := strconv.ParseInt(ts, 10, 64); err == nil {
					ev.Timestamp = time.Unix(unix, 0)
				}
			}
		case "attempts":
			if attempts, ok := v.(string); ok {
				if n, err := strconv.Atoi(attempts); err == nil {
					ev.Attempts = n
				}
			}
		default:
			if len(k) > 5 && k[:5] == "meta_" {
				if val, ok := v.(string); ok {
					ev.Metadata[k[5:]] = val
				}
			}
		}
	}

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	return ev
}

func (q *Queue) Stop(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for queue to stop")
	}
}

func (q *Queue) GetStats() (*QueueStats, error) {
	total, err := q.adapter.XLen(q.config.Name)
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{TotalEvents: total}

	pending, err := q.adapter.XPending(q.config.Name, q.config.ConsumerGroup)
	if err == nil && pending != nil {
		stats.PendingEvents = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}

	return stats, nil
}
