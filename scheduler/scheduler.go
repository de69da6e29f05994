// Package scheduler implements the background polling loop
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"weathertogether.app/config"
	"weathertogether.app/service"
)

// Scheduler drives the notifier with a single sequential polling loop.
// Every wakeup runs a report tick; an alert tick runs once the alert
// interval has elapsed since the previous one. Ticks never overlap because
// the loop runs each to completion before re-checking thresholds.
type Scheduler struct {
	notifier      service.NotifierServiceInterface
	clock         clockwork.Clock
	pollInterval  time.Duration
	alertInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// NewScheduler creates a scheduler from the notifier and configuration.
// The clock is injectable so tests can step the loop deterministically.
func NewScheduler(notifier service.NotifierServiceInterface, cfg *config.SchedulerConfig, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		notifier:      notifier,
		clock:         clock,
		pollInterval:  cfg.PollInterval,
		alertInterval: cfg.AlertInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start launches the polling loop in its own goroutine
func (s *Scheduler) Start() {
	go s.run()
}

// Stop signals the loop to exit and waits for it to drain
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	ctx := context.Background()

	// The first alert sweep runs at startup, matching the first snapshot
	// refresh of the store.
	s.notifier.RunAlertTick(ctx)
	lastAlert := s.clock.Now()

	ticker := s.clock.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			log.Println("[DEBUG] Scheduler stopping")
			return
		case <-ticker.Chan():
			s.notifier.RunReportTick(ctx)

			if s.clock.Since(lastAlert) >= s.alertInterval {
				s.notifier.RunAlertTick(ctx)
				lastAlert = s.clock.Now()
			}
		}
	}
}
