package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weathertogether.app/config"
)

type countingNotifier struct {
	mu          sync.Mutex
	alertTicks  int
	reportTicks int
}

func (c *countingNotifier) RunAlertTick(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alertTicks++
}

func (c *countingNotifier) RunReportTick(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportTicks++
}

func (c *countingNotifier) CrowdCast(_ context.Context, _ int64, _, _, _ string) {}

func (c *countingNotifier) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alertTicks, c.reportTicks
}

func testSchedulerConfig() *config.SchedulerConfig {
	return &config.SchedulerConfig{
		PollInterval:     30 * time.Second,
		AlertInterval:    60 * time.Second,
		OperationTimeout: 5 * time.Second,
	}
}

func TestScheduler_AlertTickRunsAtStartup(t *testing.T) {
	notifier := &countingNotifier{}
	clock := clockwork.NewFakeClock()
	s := NewScheduler(notifier, testSchedulerConfig(), clock)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		alerts, _ := notifier.counts()
		return alerts == 1
	}, time.Second, time.Millisecond, "startup alert sweep did not run")

	_, reports := notifier.counts()
	assert.Equal(t, 0, reports)
}

func TestScheduler_ReportTickEveryPoll(t *testing.T) {
	notifier := &countingNotifier{}
	clock := clockwork.NewFakeClock()
	s := NewScheduler(notifier, testSchedulerConfig(), clock)

	s.Start()
	defer s.Stop()

	// Wait for the loop to reach the ticker before advancing.
	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)

	require.Eventually(t, func() bool {
		_, reports := notifier.counts()
		return reports >= 1
	}, time.Second, time.Millisecond)

	// 30s elapsed is below the 60s alert threshold.
	alerts, _ := notifier.counts()
	assert.Equal(t, 1, alerts)
}

func TestScheduler_AlertTickAfterInterval(t *testing.T) {
	notifier := &countingNotifier{}
	clock := clockwork.NewFakeClock()
	s := NewScheduler(notifier, testSchedulerConfig(), clock)

	s.Start()
	defer s.Stop()

	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)

	require.Eventually(t, func() bool {
		_, reports := notifier.counts()
		return reports >= 1
	}, time.Second, time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)

	require.Eventually(t, func() bool {
		alerts, _ := notifier.counts()
		return alerts >= 2
	}, time.Second, time.Millisecond, "alert sweep did not run after the interval elapsed")
}

func TestScheduler_StopHaltsLoop(t *testing.T) {
	notifier := &countingNotifier{}
	clock := clockwork.NewFakeClock()
	s := NewScheduler(notifier, testSchedulerConfig(), clock)

	s.Start()

	require.Eventually(t, func() bool {
		alerts, _ := notifier.counts()
		return alerts == 1
	}, time.Second, time.Millisecond)

	s.Stop()

	alerts, reports := notifier.counts()

	// A post-stop advance must not produce further ticks.
	clock.Advance(5 * time.Minute)
	time.Sleep(20 * time.Millisecond)

	alertsAfter, reportsAfter := notifier.counts()
	assert.Equal(t, alerts, alertsAfter)
	assert.Equal(t, reports, reportsAfter)
}

func TestScheduler_RealClockDefault(t *testing.T) {
	notifier := &countingNotifier{}
	s := NewScheduler(notifier, testSchedulerConfig(), nil)

	s.Start()
	s.Stop()

	alerts, _ := notifier.counts()
	assert.Equal(t, 1, alerts)
}
