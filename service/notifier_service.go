package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"weathertogether.app/metrics"
	"weathertogether.app/models"
	"weathertogether.app/providers"
	"weathertogether.app/providers/cache"
)

// NotifierService reconciles the subscriber table against the clock and
// against crowd-cast events: it decides, per tick, who receives an alert or
// a report, and per crowd-cast, which nearby subscribers to notify.
type NotifierService struct {
	repo            SubscriptionRepositoryInterface
	weather         providers.WeatherProvider
	emailService    EmailServiceInterface
	distance        DistanceInterface
	snapshots       cache.SnapshotCache
	metrics         *metrics.Notifier
	clock           clockwork.Clock
	appBaseURL      string
	castingDistance float64
	opTimeout       time.Duration

	mu           sync.Mutex
	lastReported map[uint]string // subscription row id -> date of last delivered report
}

// NotifierOptions collects the dependencies of a NotifierService
type NotifierOptions struct {
	Repo            SubscriptionRepositoryInterface
	Weather         providers.WeatherProvider
	EmailService    EmailServiceInterface
	Distance        DistanceInterface
	Snapshots       cache.SnapshotCache
	Metrics         *metrics.Notifier
	Clock           clockwork.Clock
	AppBaseURL      string
	CastingDistance float64
	OpTimeout       time.Duration
}

// NewNotifierService creates a new notifier service
func NewNotifierService(opts NotifierOptions) *NotifierService {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &NotifierService{
		repo:            opts.Repo,
		weather:         opts.Weather,
		emailService:    opts.EmailService,
		distance:        opts.Distance,
		snapshots:       opts.Snapshots,
		metrics:         opts.Metrics,
		clock:           clock,
		appBaseURL:      opts.AppBaseURL,
		castingDistance: opts.CastingDistance,
		opTimeout:       opts.OpTimeout,
		lastReported:    make(map[uint]string),
	}
}

// RunAlertTick fetches conditions for every subscriber and emails severe
// weather warnings. Individual failures skip only that subscriber; the
// snapshot store's last-updated marker is stamped once per tick.
func (s *NotifierService) RunAlertTick(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.RecordTick("alert")
	}

	subscriptions, err := s.repo.ListAll()
	if err != nil {
		log.Printf("[ERROR] Alert tick: failed to list subscriptions: %v\n", err)
		return
	}

	for _, sub := range subscriptions {
		s.processAlertForSubscriber(ctx, sub)
	}

	s.snapshots.SetLastUpdated(s.clock.Now())
}

func (s *NotifierService) processAlertForSubscriber(ctx context.Context, sub models.Subscription) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	report, err := s.weather.GetCurrentWeather(opCtx, sub.PostalCode)
	if err != nil {
		log.Printf("[WARNING] Alert tick: weather fetch failed for %s: %v\n", sub.PostalCode, err)
		return
	}

	s.snapshots.Set(sub.PostalCode, &models.WeatherSnapshot{
		Report:    *report,
		FetchedAt: s.clock.Now(),
	})

	if len(report.Alerts) == 0 {
		return
	}

	err = s.emailService.SendAlertEmail(opCtx, sub.Email, report.Alerts)
	if s.metrics != nil {
		s.metrics.RecordEmail("alert", err == nil)
	}
	if err != nil {
		log.Printf("[WARNING] Failed to send weather warning to %s: %v\n", sub.Email, err)
		return
	}
	log.Printf("[DEBUG] Weather warning has been sent to %s\n", sub.Email)
}

// RunReportTick delivers the scheduled report to every subscriber whose
// report time matches the current wall-clock minute. The match is an exact
// string comparison in "HH:MM AM/PM" form; a delayed loop that misses the
// minute skips the report for that day, with no catch-up delivery.
func (s *NotifierService) RunReportTick(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.RecordTick("report")
	}

	now := s.clock.Now()
	currentMinute := now.Format("03:04 PM")
	today := now.Format("2006-01-02")

	subscriptions, err := s.repo.ListAll()
	if err != nil {
		log.Printf("[ERROR] Report tick: failed to list subscriptions: %v\n", err)
		return
	}

	for _, sub := range subscriptions {
		if !reportDue(sub.ReportTime, currentMinute) {
			continue
		}
		if s.alreadyReported(sub.ID, today) {
			continue
		}
		if s.processReportForSubscriber(ctx, sub) {
			s.markReported(sub.ID, today)
		}
	}
}

func (s *NotifierService) processReportForSubscriber(ctx context.Context, sub models.Subscription) bool {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	report, err := s.lookupReport(opCtx, sub.PostalCode)
	if err != nil {
		log.Printf("[WARNING] Report tick: weather fetch failed for %s: %v\n", sub.PostalCode, err)
		return false
	}

	err = s.emailService.SendReportEmail(opCtx, sub.Email, sub.PostalCode, report)
	if s.metrics != nil {
		s.metrics.RecordEmail("report", err == nil)
	}
	if err != nil {
		log.Printf("[WARNING] Failed to send weather report to %s: %v\n", sub.Email, err)
		return false
	}

	log.Printf("[DEBUG] Weather report has been sent to %s\n", sub.Email)
	return true
}

// lookupReport prefers a cached snapshot over a fresh gateway call
func (s *NotifierService) lookupReport(ctx context.Context, postalCode string) (*models.WeatherReport, error) {
	if snapshot, ok := s.snapshots.Get(postalCode); ok {
		if s.metrics != nil {
			s.metrics.RecordSnapshotHit(s.snapshots.Type())
		}
		return &snapshot.Report, nil
	}
	if s.metrics != nil {
		s.metrics.RecordSnapshotMiss(s.snapshots.Type())
	}

	report, err := s.weather.GetCurrentWeather(ctx, postalCode)
	if err != nil {
		return nil, err
	}

	s.snapshots.Set(postalCode, &models.WeatherSnapshot{
		Report:    *report,
		FetchedAt: s.clock.Now(),
	})
	return report, nil
}

// CrowdCast broadcasts an observation to opted-in subscribers within the
// casting distance of the source postal code. The originating user is
// skipped and each recipient email is notified at most once, even when it
// owns multiple subscription rows in range.
func (s *NotifierService) CrowdCast(ctx context.Context, senderID int64, postalCode, description, attachmentPath string) {
	log.Printf("[DEBUG] CrowdCast from user %d at %s\n", senderID, postalCode)

	subscriptions, err := s.repo.ListAll()
	if err != nil {
		log.Printf("[ERROR] CrowdCast: failed to list subscriptions: %v\n", err)
		return
	}

	eligible := s.collectEligiblePostalCodes(ctx, subscriptions, postalCode)
	log.Printf("[DEBUG] No. of zipcodes to notify: %d\n", len(eligible))

	notified := make(map[string]bool)
	for _, sub := range subscriptions {
		if !eligible[sub.PostalCode] {
			continue
		}
		if sub.UserID == senderID {
			continue
		}
		if !sub.CrowdSourceOptIn {
			continue
		}
		if notified[sub.Email] {
			continue
		}

		reportURL := fmt.Sprintf("%s/api/report/%d/%d", s.appBaseURL, senderID, sub.UserID)
		opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
		err := s.emailService.SendCrowdCastEmail(opCtx, sub.Email, description, reportURL, attachmentPath)
		cancel()
		if s.metrics != nil {
			s.metrics.RecordEmail("crowdcast", err == nil)
		}
		if err != nil {
			log.Printf("[WARNING] Failed to broadcast to %s: %v\n", sub.Email, err)
			continue
		}

		log.Printf("[DEBUG] Broadcasting to %s\n", sub.Email)
		notified[sub.Email] = true
	}
}

// collectEligiblePostalCodes computes, once per distinct postal code, whether
// it falls within the casting distance of the source code
func (s *NotifierService) collectEligiblePostalCodes(ctx context.Context, subscriptions []models.Subscription, source string) map[string]bool {
	eligible := make(map[string]bool)
	checked := make(map[string]bool)

	for _, sub := range subscriptions {
		if checked[sub.PostalCode] {
			continue
		}
		checked[sub.PostalCode] = true

		opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
		miles := s.distance.Distance(opCtx, sub.PostalCode, source)
		cancel()

		if miles <= s.castingDistance {
			eligible[sub.PostalCode] = true
		}
	}

	return eligible
}

func (s *NotifierService) alreadyReported(id uint, today string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReported[id] == today
}

func (s *NotifierService) markReported(id uint, today string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReported[id] = today
}

// reportDue compares the stored 24-hour report time against the current
// minute in "HH:MM AM/PM" form
func reportDue(reportTime, currentMinute string) bool {
	t, err := time.Parse("15:04", reportTime)
	if err != nil {
		return false
	}
	return t.Format("03:04 PM") == currentMinute
}
