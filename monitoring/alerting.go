package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType represents the type of alert
type AlertType string

const (
	AlertTypeFeedFailure   AlertType = "feed_failure"
	AlertTypeQueueFull     AlertType = "queue_full"
	AlertTypeStoreError    AlertType = "store_error"
	AlertTypeHighErrorRate AlertType = "high_error_rate"
)

// Alert represents an alert
type Alert struct {
	ID          string                 `json:"id"`
	Type        AlertType              `json:"type"`
	Severity    AlertSeverity          `json:"severity"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Timestamp   time.Time              `json:"timestamp"`
	Labels      map[string]string      `json:"labels"`
	Annotations map[string]interface{} `json:"annotations"`
	Resolved    bool                   `json:"resolved"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
}

// AlertManager manages alerts and notifications
type AlertManager struct {
	alerts    map[string]*Alert
	mutex     sync.RWMutex
	logger    *logrus.Logger
	rules     []AlertRule
	notifiers []Notifier
	ctx       context.Context
	cancel    context.CancelFunc
}

// AlertRule defines a rule for generating alerts
type AlertRule struct {
	Name        string
	Type        AlertType
	Severity    AlertSeverity
	Condition   func() bool
	Title       string
	Description string
	Labels      map[string]string
	Enabled     bool
}

// Notifier interface for sending alert notifications
type Notifier interface {
	Send(alert *Alert) error
	Name() string
}

// LogNotifier sends alerts to the log
type LogNotifier struct {
	logger *logrus.Logger
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Send(alert *Alert) error {
	level := logrus.InfoLevel
	switch alert.Severity {
	case SeverityHigh:
		level = logrus.WarnLevel
	case SeverityCritical:
		level = logrus.ErrorLevel
	}

	n.logger.WithFields(logrus.Fields{
		"alert_id":    alert.ID,
		"alert_type":  alert.Type,
		"severity":    alert.Severity,
		"labels":      alert.Labels,
		"annotations": alert.Annotations,
	}).Log(level, fmt.Sprintf("ALERT: %s - %s", alert.Title, alert.Description))

	return nil
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NewAlertManager creates an alert manager and starts evaluating its rules every interval.
// A zero interval disables rule evaluation; feed failure alerts still work.
func NewAlertManager(logger *logrus.Logger, interval time.Duration) *AlertManager {
	ctx, cancel := context.WithCancel(context.Background())

	am := &AlertManager{
		alerts:    make(map[string]*Alert),
		logger:    logger,
		rules:     getDefaultAlertRules(),
		notifiers: []Notifier{NewLogNotifier(logger)},
		ctx:       ctx,
		cancel:    cancel,
	}

	if interval > 0 {
		go am.evaluateRules(interval)
	}

	return am
}

// getDefaultAlertRules returns the threshold rules evaluated on every tick
func getDefaultAlertRules() []AlertRule {
	return []AlertRule{
		{
			Name:        "High Feed Failure Rate",
			Type:        AlertTypeHighErrorRate,
			Severity:    SeverityHigh,
			Condition:   func() bool { return GetFeedFailureRate() > 0.5 },
			Title:       "High feed sync failure rate detected",
			Description: "More than half of feed syncs have failed",
			Labels:      map[string]string{"service": "job-feed-sync"},
			Enabled:     true,
		},
		{
			Name:        "Async Queue Full",
			Type:        AlertTypeQueueFull,
			Severity:    SeverityMedium,
			Condition:   func() bool { return GetAsyncQueueUtilization() >= 1 },
			Title:       "Async sync queue is full",
			Description: "The async sync queue has reached capacity",
			Labels:      map[string]string{"service": "job-feed-sync"},
			Enabled:     true,
		},
		{
			Name:        "Store Errors",
			Type:        AlertTypeStoreError,
			Severity:    SeverityHigh,
			Condition:   func() bool { return GetStoreErrorRate() > 0.1 },
			Title:       "Job store operation failures detected",
			Description: "More than 10% of job store operations have failed",
			Labels:      map[string]string{"service": "job-feed-sync"},
			Enabled:     true,
		},
	}
}

// evaluateRules runs the alert evaluation loop
func (am *AlertManager) evaluateRules(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-am.ctx.Done():
			return
		case <-ticker.C:
			am.evaluateAllRules()
		}
	}
}

// evaluateAllRules evaluates all enabled alert rules
func (am *AlertManager) evaluateAllRules() {
	am.mutex.RLock()
	rules := make([]AlertRule, len(am.rules))
	copy(rules, am.rules)
	am.mutex.RUnlock()

	for _, rule := range rules {
		if rule.Enabled && rule.Condition() {
			am.raise(rule.Type, rule.Severity, rule.Title, rule.Description, rule.Labels, nil, "")
		}
	}
}

// raise stores and sends an alert unless an unresolved alert with the same dedupe key exists.
// An empty dedupeKey falls back to the alert type.
func (am *AlertManager) raise(alertType AlertType, severity AlertSeverity, title, description string,
	labels map[string]string, annotations map[string]interface{}, dedupeKey string) *Alert {
	if dedupeKey == "" {
		dedupeKey = string(alertType)
	}
	if annotations == nil {
		annotations = make(map[string]interface{})
	}
	annotations["dedupe_key"] = dedupeKey

	alert := &Alert{
		ID:          fmt.Sprintf("%s-%s", alertType, uuid.NewString()[:8]),
		Type:        alertType,
		Severity:    severity,
		Title:       title,
		Description: description,
		Timestamp:   time.Now(),
		Labels:      labels,
		Annotations: annotations,
	}

	am.mutex.Lock()
	for _, existing := range am.alerts {
		if !existing.Resolved && existing.Annotations["dedupe_key"] == dedupeKey {
			am.mutex.Unlock()
			return existing
		}
	}
	am.alerts[alert.ID] = alert
	am.mutex.Unlock()

	am.sendNotifications(alert)
	return alert
}

// sendNotifications sends the alert to all notifiers
func (am *AlertManager) sendNotifications(alert *Alert) {
	am.mutex.RLock()
	notifiers := append([]Notifier(nil), am.notifiers...)
	am.mutex.RUnlock()

	for _, notifier := range notifiers {
		if err := notifier.Send(alert); err != nil {
			am.logger.WithError(err).WithField("notifier", notifier.Name()).Error("Failed to send alert notification")
		}
	}
}

func feedDedupeKey(feedID string) string {
	return string(AlertTypeFeedFailure) + ":" + feedID
}

// RaiseFeedFailure alerts that a feed failed to sync. Repeated failures of the same
// feed do not re-notify until the alert is resolved.
func (am *AlertManager) RaiseFeedFailure(feedID, feedName, reason string) *Alert {
	return am.raise(
		AlertTypeFeedFailure,
		SeverityHigh,
		fmt.Sprintf("Feed %q failed to sync", feedName),
		reason,
		map[string]string{"service": "job-feed-sync", "feed_id": feedID},
		map[string]interface{}{"feed_name": feedName},
		feedDedupeKey(feedID),
	)
}

// ResolveFeedFailure resolves the open failure alert for feedID, if any
func (am *AlertManager) ResolveFeedFailure(feedID string) {
	key := feedDedupeKey(feedID)

	am.mutex.RLock()
	var alertID string
	for id, alert := range am.alerts {
		if !alert.Resolved && alert.Annotations["dedupe_key"] == key {
			alertID = id
			break
		}
	}
	am.mutex.RUnlock()

	if alertID != "" {
		am.ResolveAlert(alertID)
	}
}

// TriggerManualAlert manually triggers an alert
func (am *AlertManager) TriggerManualAlert(alertType AlertType, severity AlertSeverity, title, description string, labels map[string]string) {
	am.raise(alertType, severity, title, description, labels, nil, uuid.NewString())
}

// ResolveAlert resolves an alert
func (am *AlertManager) ResolveAlert(alertID string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	if alert, exists := am.alerts[alertID]; exists && !alert.Resolved {
		now := time.Now()
		alert.Resolved = true
		alert.ResolvedAt = &now

		am.logger.WithFields(logrus.Fields{
			"alert_id": alertID,
			"type":     alert.Type,
		}).Info("Alert resolved")
	}
}

// GetActiveAlerts returns all active (unresolved) alerts
func (am *AlertManager) GetActiveAlerts() []*Alert {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	var activeAlerts []*Alert
	for _, alert := range am.alerts {
		if !alert.Resolved {
			activeAlerts = append(activeAlerts, alert)
		}
	}

	return activeAlerts
}

// AddNotifier adds a new notifier
func (am *AlertManager) AddNotifier(notifier Notifier) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	am.notifiers = append(am.notifiers, notifier)
}

// UpdateRuleCondition updates the condition function for a rule
func (am *AlertManager) UpdateRuleCondition(ruleName string, condition func() bool) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	for i, rule := range am.rules {
		if rule.Name == ruleName {
			am.rules[i].Condition = condition
			break
		}
	}
}

// Stop stops the alert manager
func (am *AlertManager) Stop() {
	am.cancel()
}
