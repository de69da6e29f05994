package service

import (
	"context"
	"log"

	"weathertogether.app/abuse"
)

// ModerationService applies abuse reports and notifies blocked users
type ModerationService struct {
	tracker      AbuseTrackerInterface
	repo         SubscriptionRepositoryInterface
	emailService EmailServiceInterface
}

// NewModerationService creates a new moderation service
func NewModerationService(
	tracker AbuseTrackerInterface,
	repo SubscriptionRepositoryInterface,
	emailService EmailServiceInterface,
) *ModerationService {
	return &ModerationService{
		tracker:      tracker,
		repo:         repo,
		emailService: emailService,
	}
}

// ReportAbuse records one report. When the threshold is reached the target
// moves to the blocklist and is notified by email.
func (s *ModerationService) ReportAbuse(ctx context.Context, reportedID, reporterID int64) (abuse.Outcome, error) {
	outcome, err := s.tracker.Report(reportedID, reporterID)
	if err != nil {
		return outcome, err
	}

	if outcome == abuse.Blocked {
		s.notifyBlocked(ctx, reportedID)
	}

	return outcome, nil
}

// notifyBlocked is best effort: the block stands even if the email fails
func (s *ModerationService) notifyBlocked(ctx context.Context, userID int64) {
	row, err := s.repo.FindByUserID(userID)
	if err != nil {
		log.Printf("[ERROR] Failed to look up blocked user %d: %v\n", userID, err)
		return
	}
	if row == nil {
		log.Printf("[WARNING] Blocked user %d has no subscription row\n", userID)
		return
	}

	if err := s.emailService.SendBlockedEmail(ctx, row.Email); err != nil {
		log.Printf("[WARNING] Failed to notify blocked user %s: %v\n", row.Email, err)
	}
}
