package monitoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*Alert
	err    error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Send(alert *Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func newTestAlertManager(t *testing.T, interval time.Duration) (*AlertManager, *recordingNotifier) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	am := NewAlertManager(logger, interval)
	t.Cleanup(am.Stop)
	notifier := &recordingNotifier{}
	am.AddNotifier(notifier)
	return am, notifier
}

func TestRaiseFeedFailureDeduplicates(t *testing.T) {
	am, notifier := newTestAlertManager(t, 0)

	first := am.RaiseFeedFailure("feed-1", "Acme", "HTTP 500: Internal Server Error")
	second := am.RaiseFeedFailure("feed-1", "Acme", "HTTP 502: Bad Gateway")
	other := am.RaiseFeedFailure("feed-2", "Globex", "timeout")

	assert.Same(t, first, second)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, 2, notifier.count())
	assert.Equal(t, "feed-1", first.Labels["feed_id"])
	assert.Equal(t, SeverityHigh, first.Severity)
	assert.Len(t, am.GetActiveAlerts(), 2)
}

func TestResolveFeedFailure(t *testing.T) {
	am, notifier := newTestAlertManager(t, 0)

	alert := am.RaiseFeedFailure("feed-1", "Acme", "boom")
	am.ResolveFeedFailure("feed-1")

	assert.True(t, alert.Resolved)
	require.NotNil(t, alert.ResolvedAt)
	assert.Empty(t, am.GetActiveAlerts())

	// Resolving a feed without an open alert is a no-op.
	am.ResolveFeedFailure("feed-unknown")

	// A new failure after resolution notifies again.
	again := am.RaiseFeedFailure("feed-1", "Acme", "boom")
	assert.NotEqual(t, alert.ID, again.ID)
	assert.Equal(t, 2, notifier.count())
}

func TestTriggerManualAlertNeverDeduplicates(t *testing.T) {
	am, notifier := newTestAlertManager(t, 0)

	am.TriggerManualAlert(AlertTypeStoreError, SeverityLow, "manual", "first", nil)
	am.TriggerManualAlert(AlertTypeStoreError, SeverityLow, "manual", "second", nil)

	assert.Equal(t, 2, notifier.count())
	assert.Len(t, am.GetActiveAlerts(), 2)
}

func TestNotifierErrorDoesNotStopDelivery(t *testing.T) {
	am, first := newTestAlertManager(t, 0)
	first.err = errors.New("webhook down")
	second := &recordingNotifier{}
	am.AddNotifier(second)

	am.RaiseFeedFailure("feed-1", "Acme", "boom")

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}

func TestRuleEvaluation(t *testing.T) {
	am, notifier := newTestAlertManager(t, 5*time.Millisecond)

	var mu sync.Mutex
	firing := false
	am.UpdateRuleCondition("Store Errors", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firing
	})
	am.UpdateRuleCondition("High Feed Failure Rate", func() bool { return false })
	am.UpdateRuleCondition("Async Queue Full", func() bool { return false })

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, notifier.count())

	mu.Lock()
	firing = true
	mu.Unlock()

	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)

	// The open alert suppresses further notifications while the rule keeps firing.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, notifier.count())
	active := am.GetActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, AlertTypeStoreError, active[0].Type)
}

func TestStopEndsEvaluation(t *testing.T) {
	am, notifier := newTestAlertManager(t, 5*time.Millisecond)
	am.UpdateRuleCondition("Store Errors", func() bool { return true })
	am.UpdateRuleCondition("High Feed Failure Rate", func() bool { return false })
	am.UpdateRuleCondition("Async Queue Full", func() bool { return false })

	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)
	am.Stop()
	assert.ErrorIs(t, am.ctx.Err(), context.Canceled)
}

func TestRatio(t *testing.T) {
	assert.Zero(t, ratio(3, 0))
	assert.Equal(t, 0.5, ratio(1, 2))
}
