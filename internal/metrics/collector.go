package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived  EventType = "request_received"
	EventProviderSelected EventType = "provider_selected"
	EventCallCompleted    EventType = "call_completed"
	EventBreakerState     EventType = "breaker_state"
)

type MetricEvent struct {
	Type         EventType
	Timestamp    time.Time
	Operation    string
	Provider     string
	Duration     time.Duration
	Success      bool
	BreakerState string
	FailureRate  float64
}

// Collector consumes metric events off a buffered channel so the request
// path never blocks on bookkeeping.
type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Operation)

	case EventProviderSelected:
		c.metrics.RecordProviderSelection(event.Provider)

	case EventCallCompleted:
		c.metrics.RecordCall(event.Provider, event.Duration, event.Success)

	case EventBreakerState:
		c.metrics.UpdateBreakerState(event.Provider, event.BreakerState, event.FailureRate)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
