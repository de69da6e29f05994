package service

import (
	"context"
	goerrors "errors"
	"fmt"
	"log"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"weathertogether.app/errors"
	"weathertogether.app/models"
	"weathertogether.app/pkg/validation"
)

// SubscriptionService handles subscription-related business logic
type SubscriptionService struct {
	db           *gorm.DB
	repo         SubscriptionRepositoryInterface
	otpStore     OTPStoreInterface
	blocklist    BlocklistInterface
	emailService EmailServiceInterface
	clock        clockwork.Clock
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	db *gorm.DB,
	repo SubscriptionRepositoryInterface,
	otpStore OTPStoreInterface,
	blocklist BlocklistInterface,
	emailService EmailServiceInterface,
	clock clockwork.Clock,
) *SubscriptionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SubscriptionService{
		db:           db,
		repo:         repo,
		otpStore:     otpStore,
		blocklist:    blocklist,
		emailService: emailService,
		clock:        clock,
	}
}

// Subscribe runs the OTP-gated signup flow. Without a passcode in the
// request it issues one and writes nothing; with a valid passcode it
// creates or updates the subscription row.
func (s *SubscriptionService) Subscribe(ctx context.Context, req *models.CreateAlertRequest) (SubscribeOutcome, error) {
	log.Printf("[DEBUG] SubscriptionService.Subscribe called for: %s, postalCode: %s\n", req.Email, req.PostalCode)

	reportTime, err := s.validateSubscriptionRequest(req)
	if err != nil {
		return OutcomeOTPSent, err
	}

	existing, err := s.repo.FindByEmail(req.Email)
	if err != nil {
		return OutcomeOTPSent, errors.NewDatabaseError("failed to check existing subscriptions", err)
	}

	var userID int64
	if len(existing) > 0 {
		userID = existing[0].UserID
		if s.blocklist.IsBlocked(userID) {
			return OutcomeOTPSent, errors.NewBlockedError("user blocked")
		}
		if bcrypt.CompareHashAndPassword([]byte(existing[0].PasswordHash), []byte(req.Password)) != nil {
			return OutcomeOTPSent, errors.NewAuthError("invalid email address or password")
		}
		for _, row := range existing {
			if row.PostalCode == req.PostalCode && row.ReportTime == reportTime {
				return OutcomeOTPSent, errors.NewConflictError("entry for this zipcode already exists")
			}
		}
	} else {
		userID = s.clock.Now().Unix()
	}

	if req.OTP == "" {
		return s.promptForOTP(ctx, req.Email)
	}

	if err := s.otpStore.Verify(req.Email, req.OTP); err != nil {
		return OutcomeOTPSent, err
	}
	log.Printf("[DEBUG] %s passed OTP validation\n", req.Email)

	if err := s.persistSubscription(ctx, req, userID, reportTime); err != nil {
		return OutcomeOTPSent, err
	}

	// Best effort: the subscription stands even if the welcome email fails.
	if err := s.emailService.SendWelcomeEmail(ctx, req.Email, reportTime); err != nil {
		log.Printf("[WARNING] Failed to send welcome email: %v\n", err)
	}

	return OutcomeSubscribed, nil
}

func (s *SubscriptionService) validateSubscriptionRequest(req *models.CreateAlertRequest) (string, error) {
	if !validation.IsValidPostalCode(req.PostalCode) {
		return "", errors.NewValidationError(
			fmt.Sprintf("zipcode is invalid: %s. zipcodes must be 5-digit", req.PostalCode))
	}
	if !validation.IsValidPassword(req.Password) {
		return "", errors.NewValidationError(
			"password is invalid: must be 6-11 characters with at least one digit and one symbol")
	}
	reportTime, ok := validation.NormalizeReportTime(req.ReportTime)
	if !ok {
		return "", errors.NewValidationError(fmt.Sprintf("time is invalid: %s", req.ReportTime))
	}
	if !validation.IsValidFrequency(req.FrequencyMinutes) {
		return "", errors.NewValidationError(
			"frequency is invalid: must be between 5 and 60 minutes in steps of 5")
	}
	if !validation.IsValidEmail(req.Email) {
		return "", errors.NewValidationError(fmt.Sprintf("email is invalid: %s", req.Email))
	}
	return reportTime, nil
}

func (s *SubscriptionService) promptForOTP(ctx context.Context, email string) (SubscribeOutcome, error) {
	code, err := s.otpStore.Issue(email)
	if err != nil {
		return OutcomeOTPSent, err
	}
	if err := s.emailService.SendOTPEmail(ctx, email, code); err != nil {
		return OutcomeOTPSent, errors.NewEmailError("failed to send otp", err)
	}
	log.Printf("[DEBUG] One time verification passcode has been sent to %s\n", email)
	return OutcomeOTPSent, nil
}

// persistSubscription creates or updates the (email, postal code) row inside
// a transaction; the composite unique index backstops a concurrent
// duplicate insert.
func (s *SubscriptionService) persistSubscription(ctx context.Context, req *models.CreateAlertRequest, userID int64, reportTime string) error {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.NewDatabaseError("failed to hash password", err)
	}

	optIn := true
	if req.AcceptCrowdSourcing != nil {
		optIn = *req.AcceptCrowdSourcing
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.NewDatabaseError("failed to begin transaction", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var row models.Subscription
	result := tx.Where("email = ? AND postal_code = ?", req.Email, req.PostalCode).First(&row)
	switch {
	case result.Error == nil:
		row.ReportTime = reportTime
		row.FrequencyMinutes = req.FrequencyMinutes
		row.CrowdSourceOptIn = optIn
		row.PasswordHash = string(passwordHash)
		if err := tx.Save(&row).Error; err != nil {
			tx.Rollback()
			return errors.NewDatabaseError("failed to update subscription", err)
		}
	case goerrors.Is(result.Error, gorm.ErrRecordNotFound):
		row = models.Subscription{
			UserID:           userID,
			Email:            req.Email,
			PostalCode:       req.PostalCode,
			PasswordHash:     string(passwordHash),
			ReportTime:       reportTime,
			FrequencyMinutes: req.FrequencyMinutes,
			CrowdSourceOptIn: optIn,
		}
		if err := tx.Create(&row).Error; err != nil {
			tx.Rollback()
			return errors.NewDatabaseError("failed to create subscription", err)
		}
	default:
		tx.Rollback()
		return errors.NewDatabaseError("failed to check existing subscription", result.Error)
	}

	if err := tx.Commit().Error; err != nil {
		return errors.NewDatabaseError("failed to commit transaction", err)
	}

	return nil
}

// Authenticate verifies credentials and returns the first subscription row
func (s *SubscriptionService) Authenticate(ctx context.Context, email, password string) (*models.Subscription, error) {
	rows, err := s.repo.FindByEmail(email)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to look up subscriber", err)
	}
	if len(rows) == 0 {
		return nil, errors.NewNotFoundError(
			fmt.Sprintf("%s is currently not subscribed to WeatherTogether", email))
	}
	if s.blocklist.IsBlocked(rows[0].UserID) {
		return nil, errors.NewBlockedError("user blocked")
	}
	if bcrypt.CompareHashAndPassword([]byte(rows[0].PasswordHash), []byte(password)) != nil {
		return nil, errors.NewAuthError("invalid email address or password")
	}
	return &rows[0], nil
}

// Unsubscribe removes a subscriber entirely, or only disables crowd
// sourcing when everything is false
func (s *SubscriptionService) Unsubscribe(ctx context.Context, email, password string, everything bool) error {
	log.Printf("[DEBUG] Unsubscribe called for: %s, everything: %v\n", email, everything)

	if _, err := s.Authenticate(ctx, email, password); err != nil {
		return err
	}

	if everything {
		if err := s.repo.DeleteByEmail(email); err != nil {
			return errors.NewDatabaseError("failed to delete subscriptions", err)
		}
		log.Printf("[DEBUG] Unsubscribe successful for %s\n", email)
		return nil
	}

	if err := s.repo.DisableCrowdSource(email); err != nil {
		return errors.NewDatabaseError("failed to disable crowd sourcing", err)
	}
	return nil
}
