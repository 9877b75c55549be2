package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meterline/billing/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrNoAvailableEndpoints = errors.New("no available webhook endpoints")
)

// Notification is the JSON body posted to webhook receivers.
type Notification struct {
	EventID    string          `json:"event_id"`
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type AckResponse struct {
	Status     string `json:"status"`
	ReceivedAt string `json:"received_at,omitempty"`
}

type EndpointMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64
}

func (m *EndpointMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())
}

func (m *EndpointMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *EndpointMetrics) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *EndpointMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

// Endpoint is one webhook receiver. Endpoints are tried in the order they
// were configured; a tripped circuit takes an endpoint out of rotation until
// the breaker timeout elapses.
type Endpoint struct {
	name             string
	url              string
	client           *fasthttp.Client
	metrics          *EndpointMetrics
	circuitOpenUntil atomic.Int64
}

func NewEndpoint(name, url string, client *fasthttp.Client) *Endpoint {
	return &Endpoint{
		name:    name,
		url:     url,
		client:  client,
		metrics: &EndpointMetrics{},
	}
}

func (e *Endpoint) Name() string { return e.name }

func (e *Endpoint) Metrics() *EndpointMetrics { return e.metrics }

func (e *Endpoint) IsAvailable() bool {
	openUntil := e.circuitOpenUntil.Load()
	if openUntil == 0 {
		return true
	}
	if time.Now().Unix() > openUntil {
		e.circuitOpenUntil.Store(0)
		e.metrics.ConsecutiveFails.Store(0)
		return true
	}
	return false
}

func (e *Endpoint) openCircuit(timeout time.Duration) {
	e.circuitOpenUntil.Store(time.Now().Add(timeout).Unix())
}

type EndpointConfig struct {
	Name string
	URL  string
}

type Config struct {
	Endpoints               []EndpointConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	ReadBufferSize          int
	WriteBufferSize         int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// Client posts billing notifications to the configured webhook endpoints.
// The first configured endpoint is preferred; later ones only see traffic
// while earlier circuits are open.
type Client struct {
	config    *Config
	endpoints []*Endpoint
	mu        sync.RWMutex
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(config.Endpoints) == 0 {
		return nil, errors.New("at least one webhook endpoint is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.CircuitBreakerThreshold == 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout == 0 {
		config.CircuitBreakerTimeout = 60 * time.Second
	}

	client := &Client{
		config:    config,
		endpoints: make([]*Endpoint, 0, len(config.Endpoints)),
	}

	for _, ec := range config.Endpoints {
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			ReadBufferSize:      config.ReadBufferSize,
			WriteBufferSize:     config.WriteBufferSize,
		}
		endpoint := NewEndpoint(ec.Name, ec.URL, httpClient)
		client.endpoints = append(client.endpoints, endpoint)

		logger.Info("Webhook endpoint initialized", "name", ec.Name, "url", ec.URL)
	}

	logger.Info("Webhook client initialized", "endpoints", len(client.endpoints), "timeout", config.Timeout)

	return client, nil
}

// SelectEndpoint returns the first configured endpoint whose circuit is
// closed.
func (c *Client) SelectEndpoint() (*Endpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, endpoint := range c.endpoints {
		if endpoint.IsAvailable() {
			return endpoint, nil
		}
	}
	return nil, ErrNoAvailableEndpoints
}

// Deliver posts the notification, failing over between endpoints across
// retries. Any 2xx response counts as accepted.
func (c *Client) Deliver(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		endpoint, err := c.SelectEndpoint()
		if err != nil {
			lastErr = err
			break
		}

		start := time.Now()
		err = c.post(endpoint, body)
		latency := time.Since(start).Milliseconds()

		if err == nil {
			endpoint.metrics.RecordSuccess(latency)
			logger.Info("Notification delivered",
				"event_id", n.EventID,
				"event", n.Event,
				"endpoint", endpoint.name,
				"latency_ms", latency,
				"attempt", attempt+1)
			return nil
		}

		endpoint.metrics.RecordFailure()
		if int(endpoint.metrics.ConsecutiveFails.Load()) >= c.config.CircuitBreakerThreshold {
			endpoint.openCircuit(c.config.CircuitBreakerTimeout)
			logger.Warn("Webhook circuit opened",
				"endpoint", endpoint.name,
				"timeout", c.config.CircuitBreakerTimeout)
		}

		lastErr = err
		logger.Warn("Notification delivery failed",
			"event_id", n.EventID,
			"endpoint", endpoint.name,
			"attempt", attempt+1,
			"error", err)

		if c.config.RetryDelay > 0 && attempt < c.config.MaxRetries-1 {
			select {
			case <-time.After(c.config.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("delivery failed after %d attempts: %w", c.config.MaxRetries, lastErr)
}

func (c *Client) post(endpoint *Endpoint, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := endpoint.client.DoTimeout(req, resp, c.config.Timeout); err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint.name, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return fmt.Errorf("endpoint %s returned status %d", endpoint.name, status)
	}
	return nil
}

// Stats reports per-endpoint delivery counters for the metrics reporter.
func (c *Client) Stats() map[string]map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]interface{}, len(c.endpoints))
	for _, e := range c.endpoints {
		out[e.name] = map[string]interface{}{
			"total":          e.metrics.TotalRequests.Load(),
			"success":        e.metrics.SuccessfulReqs.Load(),
			"failed":         e.metrics.FailedReqs.Load(),
			"avg_latency_ms": e.metrics.AvgLatencyMs(),
			"success_rate":   e.metrics.SuccessRate(),
			"available":      e.IsAvailable(),
		}
	}
	return out
}
