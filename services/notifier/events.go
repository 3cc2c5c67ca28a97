package notifier

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// Critical events
	EventExtractionCircuitOpen EventType = "extraction_circuit_open"

	// Warning events
	EventExtractionFailureRate EventType = "extraction_failure_rate"

	// Info events
	EventExtractionRecovered EventType = "extraction_recovered"
	EventServerStarted       EventType = "server_started"
	EventCacheCleared        EventType = "cache_cleared"
)

// Severity represents the severity level of an event
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Event represents a system event
type Event struct {
	Type      EventType
	Severity  Severity
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, severity Severity, message string) *Event {
	return &Event{
		Type:      eventType,
		Severity:  severity,
		Message:   message,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// WithData adds data to the event (chainable)
func (e *Event) WithData(key string, value interface{}) *Event {
	e.Data[key] = value
	return e
}

// EventHandler is a function that handles events
type EventHandler func(event *Event)

// EventBus fans events out to subscribers. Handlers run on their own goroutines.
type EventBus struct {
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
	mu          sync.RWMutex
}

// NewEventBus returns an empty bus
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[EventType][]EventHandler)}
}

var (
	globalBus *EventBus
	busOnce   sync.Once
)

// GetEventBus returns the process-wide event bus
func GetEventBus() *EventBus {
	busOnce.Do(func() {
		globalBus = NewEventBus()
	})
	return globalBus
}

// Subscribe adds a handler for a specific event type
func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll adds a handler that receives all events
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

// Publish sends an event to all subscribed handlers
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.handlers[event.Type] {
		go handler(event)
	}
	for _, handler := range b.allHandlers {
		go handler(event)
	}
}

// PublishExtractionCircuitOpen reports that yt-dlp calls are paused
func PublishExtractionCircuitOpen(name string, failures int, cooldown time.Duration) {
	GetEventBus().Publish(NewEvent(EventExtractionCircuitOpen, SeverityCritical,
		"Extraction paused after consecutive yt-dlp failures").
		WithData("name", name).
		WithData("failures", failures).
		WithData("cooldown", cooldown.String()))
}

// PublishExtractionRecovered reports that a trial extraction succeeded
func PublishExtractionRecovered(name string) {
	GetEventBus().Publish(NewEvent(EventExtractionRecovered, SeverityInfo,
		"Extraction recovered").
		WithData("name", name))
}

// PublishExtractionFailureRate warns that the breaker is close to tripping
func PublishExtractionFailureRate(name string, failures, threshold int) {
	GetEventBus().Publish(NewEvent(EventExtractionFailureRate, SeverityWarning,
		"High extraction failure rate").
		WithData("name", name).
		WithData("failures", failures).
		WithData("threshold", threshold))
}

// PublishServerStarted reports a successful start
func PublishServerStarted(port string, workers int) {
	GetEventBus().Publish(NewEvent(EventServerStarted, SeverityInfo,
		"Server started").
		WithData("port", port).
		WithData("workers", workers))
}

// PublishCacheCleared reports an administrative cache reset
func PublishCacheCleared(metadata, audio int) {
	GetEventBus().Publish(NewEvent(EventCacheCleared, SeverityInfo,
		"Cache cleared").
		WithData("metadata", metadata).
		WithData("audio", audio))
}
