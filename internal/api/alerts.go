package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/events"
)

// Alert severity levels
const (
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Alert event types
const (
	AlertBrokerDisconnected = "mqtt_disconnected"
	AlertEngineFailed       = "engine_failed"
)

// AlertPayload is the JSON structure sent to the webhook.
type AlertPayload struct {
	Service   string                 `json:"service"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Alerter posts a webhook when the story engine fails to load, when the
// broker stays disconnected longer than the configured delay, and once more
// when the broker recovers.
type Alerter struct {
	webhookURL string
	delay      time.Duration
	client     *http.Client
	log        *zap.Logger

	mu                sync.Mutex
	disconnectedSince time.Time
	alertSent         bool
	wg                sync.WaitGroup
}

func NewAlerter(webhookURL string, delay time.Duration, log *zap.Logger) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	if webhookURL != "" {
		log.Info("alerts enabled", zap.Duration("mqtt_delay", delay))
	}
	return &Alerter{
		webhookURL: webhookURL,
		delay:      delay,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// CheckBroker records broker connectivity. It matches the mqtt monitor's
// listener signature.
func (a *Alerter) CheckBroker(connected bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if connected {
		if a.alertSent {
			a.send(AlertBrokerDisconnected, SeverityInfo, "MQTT connection restored", map[string]interface{}{
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		a.disconnectedSince = time.Time{}
		a.alertSent = false
		return
	}

	if a.disconnectedSince.IsZero() {
		a.disconnectedSince = now
	}
	down := now.Sub(a.disconnectedSince)
	if !a.alertSent && down >= a.delay {
		a.alertSent = true
		a.send(AlertBrokerDisconnected, SeverityWarning, "MQTT broker disconnected", map[string]interface{}{
			"disconnected_since":   a.disconnectedSince.UTC().Format(time.RFC3339),
			"disconnected_seconds": int(down.Seconds()),
		})
	}
}

// EngineFailed reports a story engine that could not be loaded.
func (a *Alerter) EngineFailed(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.send(AlertEngineFailed, SeverityWarning, "story engine failed to load", map[string]interface{}{
		"error": err.Error(),
	})
}

// send delivers asynchronously; without a webhook the alert is only logged.
func (a *Alerter) send(event, severity, message string, details map[string]interface{}) {
	events.Emit("warn", "alert.sent", message, map[string]interface{}{
		"alert":    event,
		"severity": severity,
	})
	if a.webhookURL == "" {
		a.log.Warn("alert", zap.String("severity", severity), zap.String("message", message), zap.Any("details", details))
		return
	}

	payload := AlertPayload{
		Service:   "storyloom",
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Severity:  severity,
		Message:   message,
		Details:   details,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.post(payload)
	}()
}

func (a *Alerter) post(payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		a.log.Error("alert: failed to marshal payload", zap.Error(err))
		return
	}
	resp, err := a.client.Post(a.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		a.log.Warn("alert: webhook POST failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		a.log.Warn("alert: webhook returned error status", zap.Int("status", resp.StatusCode))
	}
}

// Wait blocks until in-flight webhook posts finish.
func (a *Alerter) Wait() {
	a.wg.Wait()
}
