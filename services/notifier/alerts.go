package notifier

import (
	"context"
	"fmt"
	"learntube-api-go/logcolors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// Default cooldown between alerts of the same type
	DefaultAlertCooldown = 15 * time.Minute

	sendTimeout = 15 * time.Second
)

// AlertHandler turns events into operator notifications, at most one per
// event type per cooldown window.
type AlertHandler struct {
	notifiers        []Notifier
	cooldowns        map[EventType]time.Time
	cooldownDuration time.Duration
	mu               sync.Mutex
}

// AlertConfig holds configuration for the alert handler
type AlertConfig struct {
	Notifiers        []Notifier
	CooldownDuration time.Duration
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(cfg AlertConfig) *AlertHandler {
	cooldown := cfg.CooldownDuration
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}

	return &AlertHandler{
		notifiers:        cfg.Notifiers,
		cooldowns:        make(map[EventType]time.Time),
		cooldownDuration: cooldown,
	}
}

// Start subscribes the handler to bus
func (h *AlertHandler) Start(bus *EventBus) {
	bus.SubscribeAll(h.HandleEvent)
	log.Infof("%s Alert handler started (cooldown: %v, notifiers: %d)",
		logcolors.LogNotifier, h.cooldownDuration, len(h.notifiers))
}

// HandleEvent formats and sends the alert for event unless its type is cooling down
func (h *AlertHandler) HandleEvent(event *Event) {
	subject, message := formatAlert(event)
	if subject == "" {
		return
	}

	if !h.shouldAlert(event.Type) {
		log.Debugf("%s Skipping alert for %s (cooldown active)", logcolors.LogNotifier, event.Type)
		return
	}

	h.sendAlert(subject, message)
}

func (h *AlertHandler) shouldAlert(eventType EventType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	lastAlert, exists := h.cooldowns[eventType]
	if !exists || time.Since(lastAlert) >= h.cooldownDuration {
		h.cooldowns[eventType] = time.Now()
		return true
	}
	return false
}

// formatAlert renders an event; unknown types yield an empty subject
func formatAlert(event *Event) (subject, message string) {
	switch event.Type {
	case EventExtractionCircuitOpen:
		subject = "Extraction Circuit OPEN"
		message = fmt.Sprintf(
			"The %v circuit breaker tripped after %v consecutive failures.\n\n"+
				"Uncached video requests will fail for %v.\n\n"+
				"Action: Check yt-dlp version, proxy and upstream reachability.",
			event.Data["name"], event.Data["failures"], event.Data["cooldown"])

	case EventExtractionFailureRate:
		subject = "High Extraction Failure Rate"
		message = fmt.Sprintf(
			"The %v circuit breaker has recorded %v/%v consecutive failures.\n\n"+
				"If failures continue, extraction will be paused.",
			event.Data["name"], event.Data["failures"], event.Data["threshold"])

	case EventExtractionRecovered:
		subject = "Extraction Recovered"
		message = fmt.Sprintf("The %v circuit breaker has recovered and extraction is running again.", event.Data["name"])

	case EventServerStarted:
		subject = "Server Started"
		message = fmt.Sprintf("Server started on port %v with %v extraction worker(s).", event.Data["port"], event.Data["workers"])

	case EventCacheCleared:
		subject = "Cache Cleared"
		message = fmt.Sprintf("Cache cleared: %v metadata and %v audio entries dropped.", event.Data["metadata"], event.Data["audio"])

	default:
		return "", ""
	}

	switch event.Severity {
	case SeverityCritical:
		subject = "🚨 " + subject
	case SeverityWarning:
		subject = "⚠️ " + subject
	case SeverityInfo:
		subject = "ℹ️ " + subject
	}

	return subject, message
}

func (h *AlertHandler) sendAlert(subject, message string) {
	if len(h.notifiers) == 0 {
		log.Debugf("%s No notifiers configured, skipping alert: %s", logcolors.LogNotifier, subject)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	log.Infof("%s Sending alert: %s", logcolors.LogNotifier, subject)

	sent := 0
	for _, n := range h.notifiers {
		if err := n.Send(ctx, subject, message); err != nil {
			log.Errorf("%s Failed to send alert via notifier: %v", logcolors.LogNotifier, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		log.Infof("%s Alert sent via %d/%d notifiers", logcolors.LogNotifier, sent, len(h.notifiers))
	}
}

// ResetCooldown manually resets the cooldown for a specific event type
func (h *AlertHandler) ResetCooldown(eventType EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cooldowns, eventType)
}
