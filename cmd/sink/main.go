package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notification is the body the billing worker posts for each event.
type Notification struct {
	EventID    string          `json:"event_id" binding:"required"`
	Event      string          `json:"event" binding:"required"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// AckResponse is returned for every accepted notification
type AckResponse struct {
	Status     string    `json:"status"`
	SinkID     string    `json:"sink_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status     string    `json:"status"`
	SinkID     string    `json:"sink_id"`
	Timestamp  time.Time `json:"timestamp"`
	AcceptRate float64   `json:"accept_rate"`
	Received   int       `json:"received"`
}

// MockSink simulates a downstream receipt/notification service. It keeps
// the notifications it accepted in memory so dev runs can inspect what the
// worker actually delivered.
type MockSink struct {
	acceptRate float64
	minDelay   time.Duration
	maxDelay   time.Duration
	sinkID     string
	rng        *rand.Rand

	mu       sync.RWMutex
	received []Notification
}

func NewMockSink(acceptRate float64, minDelay, maxDelay time.Duration) *MockSink {
	return &MockSink{
		acceptRate: acceptRate,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		sinkID:     "MOCK_SINK_" + uuid.New().String()[:8],
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		received:   make([]Notification, 0, 256),
	}
}

func (m *MockSink) randomDelay() time.Duration {
	if m.maxDelay <= m.minDelay {
		return m.minDelay
	}
	delta := m.maxDelay - m.minDelay
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockSink) shouldAccept() bool {
	return m.rng.Float64() < m.acceptRate
}

func (m *MockSink) store(n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, n)
}

func (m *MockSink) find(eventID string) (Notification, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.received {
		if n.EventID == eventID {
			return n, true
		}
	}
	return Notification{}, false
}

func (m *MockSink) recent(limit int) []Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.received) <= limit {
		out := make([]Notification, len(m.received))
		copy(out, m.received)
		return out
	}
	out := make([]Notification, limit)
	copy(out, m.received[len(m.received)-limit:])
	return out
}

func (m *MockSink) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.received)
}

// Handler struct holds the mock sink and routes
type Handler struct {
	sink *MockSink
}

func NewHandler(sink *MockSink) *Handler {
	return &Handler{sink: sink}
}

// Receive handles webhook notifications from the billing worker
func (h *Handler) Receive(c *gin.Context) {
	var n Notification

	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid notification",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("event_id", n.EventID).
		Str("event", n.Event).
		Msg("Received notification")

	// Simulate processing delay
	time.Sleep(h.sink.randomDelay())

	if !h.sink.shouldAccept() {
		log.Warn().
			Str("event_id", n.EventID).
			Str("event", n.Event).
			Msg("Simulated rejection")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Sink temporarily unavailable",
		})
		return
	}

	h.sink.store(n)

	c.JSON(http.StatusOK, AckResponse{
		Status:     "accepted",
		SinkID:     h.sink.sinkID,
		ReceivedAt: time.Now(),
	})
}

// List returns the most recently accepted notifications
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sink_id":       h.sink.sinkID,
		"notifications": h.sink.recent(100),
	})
}

// Get returns one accepted notification by event id
func (h *Handler) Get(c *gin.Context) {
	eventID := c.Param("event_id")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "event_id is required",
		})
		return
	}

	n, ok := h.sink.find(eventID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "notification not found",
		})
		return
	}

	c.JSON(http.StatusOK, n)
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		SinkID:     h.sink.sinkID,
		Timestamp:  time.Now(),
		AcceptRate: h.sink.acceptRate,
		Received:   h.sink.count(),
	})
}

// UpdateConfig allows changing sink behaviour at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		AcceptRate *float64 `json:"accept_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.AcceptRate != nil {
		if *config.AcceptRate >= 0 && *config.AcceptRate <= 1.0 {
			h.sink.acceptRate = *config.AcceptRate
			log.Info().Float64("rate", *config.AcceptRate).Msg("Updated accept rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Configuration updated",
		"accept_rate": h.sink.acceptRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/hooks", handler.Receive)
		v1.GET("/hooks", handler.List)
		v1.GET("/hooks/:event_id", handler.Get)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "9200")
	acceptRate := getEnvFloat("ACCEPT_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 10*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 100*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("accept_rate", acceptRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Webhook Sink")

	// Create mock sink
	sink := NewMockSink(acceptRate, minDelay, maxDelay)
	handler := NewHandler(sink)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
