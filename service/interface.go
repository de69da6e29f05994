package service

import (
	"context"

	"weathertogether.app/abuse"
	"weathertogether.app/models"
	"weathertogether.app/providers"
)

// WeatherProviderInterface is an alias to the providers interface
type WeatherProviderInterface = providers.WeatherProvider

// SubscribeOutcome distinguishes the two success responses of Subscribe
type SubscribeOutcome int

const (
	// OutcomeOTPSent means a passcode was emailed and no row was written
	OutcomeOTPSent SubscribeOutcome = iota
	// OutcomeSubscribed means the subscription row was persisted
	OutcomeSubscribed
)

// SubscriptionServiceInterface defines subscription lifecycle operations
type SubscriptionServiceInterface interface {
	Subscribe(ctx context.Context, req *models.CreateAlertRequest) (SubscribeOutcome, error)
	Authenticate(ctx context.Context, email, password string) (*models.Subscription, error)
	Unsubscribe(ctx context.Context, email, password string, everything bool) error
}

// NotifierServiceInterface defines the reconciliation operations driven by
// the polling loop and by crowd-cast requests
type NotifierServiceInterface interface {
	RunAlertTick(ctx context.Context)
	RunReportTick(ctx context.Context)
	CrowdCast(ctx context.Context, senderID int64, postalCode, description, attachmentPath string)
}

// ModerationServiceInterface handles abuse reports against crowd-casters
type ModerationServiceInterface interface {
	ReportAbuse(ctx context.Context, reportedID, reporterID int64) (abuse.Outcome, error)
}

// EmailServiceInterface defines the interface for email composition. The
// context bounds the underlying delivery attempt.
type EmailServiceInterface interface {
	SendOTPEmail(ctx context.Context, email, code string) error
	SendWelcomeEmail(ctx context.Context, email, reportTime string) error
	SendAlertEmail(ctx context.Context, email string, alerts []models.WeatherAlert) error
	SendReportEmail(ctx context.Context, email, postalCode string, report *models.WeatherReport) error
	SendCrowdCastEmail(ctx context.Context, email, description, reportURL, attachmentPath string) error
	SendBlockedEmail(ctx context.Context, email string) error
}

// SubscriptionRepositoryInterface defines the interface for subscription data operations
type SubscriptionRepositoryInterface interface {
	FindByEmail(email string) ([]models.Subscription, error)
	FindByEmailAndPostalCode(email, postalCode string) (*models.Subscription, error)
	FindByUserID(userID int64) (*models.Subscription, error)
	ListAll() ([]models.Subscription, error)
	Create(subscription *models.Subscription) error
	Update(subscription *models.Subscription) error
	DeleteByEmail(email string) error
	DisableCrowdSource(email string) error
}

// OTPStoreInterface defines the interface for the passcode store
type OTPStoreInterface interface {
	Issue(email string) (string, error)
	Verify(email, code string) error
}

// BlocklistInterface answers whether a user id is blocked
type BlocklistInterface interface {
	IsBlocked(userID int64) bool
}

// AbuseTrackerInterface defines the interface for abuse report persistence
type AbuseTrackerInterface interface {
	Report(reportedID, reporterID int64) (abuse.Outcome, error)
	IsBlocked(userID int64) bool
}

// DistanceInterface computes the distance between two postal codes in miles
type DistanceInterface interface {
	Distance(ctx context.Context, codeA, codeB string) float64
}

// Ensure implementations satisfy interfaces
var _ SubscriptionServiceInterface = (*SubscriptionService)(nil)
var _ NotifierServiceInterface = (*NotifierService)(nil)
var _ ModerationServiceInterface = (*ModerationService)(nil)
var _ EmailServiceInterface = (*EmailService)(nil)
