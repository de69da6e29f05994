package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"weathertogether.app/errors"
	"weathertogether.app/models"
	"weathertogether.app/providers"
)

// EmailService composes application emails and hands them to a provider
type EmailService struct {
	provider providers.EmailProvider
}

// NewEmailService creates a new email service with the specified provider
func NewEmailService(provider providers.EmailProvider) *EmailService {
	return &EmailService{
		provider: provider,
	}
}

// SendOTPEmail sends the signup verification passcode
func (s *EmailService) SendOTPEmail(ctx context.Context, email, code string) error {
	log.Printf("[DEBUG] SendOTPEmail called for: %s\n", email)

	if email == "" {
		return errors.NewValidationError("email cannot be empty")
	}
	if code == "" {
		return errors.NewValidationError("passcode cannot be empty")
	}

	subject := fmt.Sprintf("WeatherTogether - Verify your email %s", time.Now().Format(time.ANSIC))
	body := "Hi,\n\n" +
		"We received a signup request for the WeatherTogether application.\n\n" +
		"Please enter the code below to sign in:\n\n" +
		code + "\n\n" +
		"The code will expire in 5 minutes."

	return s.provider.SendEmail(ctx, email, subject, body, "")
}

// SendWelcomeEmail confirms a completed subscription
func (s *EmailService) SendWelcomeEmail(ctx context.Context, email, reportTime string) error {
	log.Printf("[DEBUG] SendWelcomeEmail called for: %s, reportTime: %s\n", email, reportTime)

	if email == "" {
		return errors.NewValidationError("email cannot be empty")
	}

	display := reportTime
	if t, err := time.Parse("15:04", reportTime); err == nil {
		display = t.Format("03:04 PM")
	}

	subject := fmt.Sprintf("Welcome to WeatherTogether %s", time.Now().Format(time.ANSIC))
	body := "Hi,\n\n" +
		"Thank you for signing up to WeatherTogether. You will now be able to receive " +
		fmt.Sprintf("daily weather information at your requested time: %s, ", display) +
		"and receive severe weather alerts.\n" +
		"You can also login to the WeatherTogether dashboard to broadcast weather alerts."

	return s.provider.SendEmail(ctx, email, subject, body, "")
}

// SendAlertEmail sends a severe weather warning
func (s *EmailService) SendAlertEmail(ctx context.Context, email string, alerts []models.WeatherAlert) error {
	log.Printf("[DEBUG] SendAlertEmail called for: %s, alerts: %d\n", email, len(alerts))

	if email == "" {
		return errors.NewValidationError("email cannot be empty")
	}
	if len(alerts) == 0 {
		return errors.NewValidationError("alerts cannot be empty")
	}

	var events []string
	var details strings.Builder
	for _, alert := range alerts {
		events = append(events, alert.Event)
		fmt.Fprintf(&details, "%s:\n%s\n", alert.Event, alert.Description)
		if alert.SenderName != "" {
			fmt.Fprintf(&details, "Issued by %s\n", alert.SenderName)
		}
		details.WriteString("\n")
	}

	subject := fmt.Sprintf("Severe Weather Alert - %s", strings.Join(events, " and "))
	body := "Hi,\n\n" +
		"Currently you have a severe weather warning in your area:\n\n" +
		details.String()

	return s.provider.SendEmail(ctx, email, subject, body, "")
}

// SendReportEmail sends the scheduled weather report
func (s *EmailService) SendReportEmail(ctx context.Context, email, postalCode string, report *models.WeatherReport) error {
	log.Printf("[DEBUG] SendReportEmail called for: %s, postalCode: %s\n", email, postalCode)

	if email == "" {
		return errors.NewValidationError("email cannot be empty")
	}
	if report == nil {
		return errors.NewValidationError("report cannot be nil")
	}

	subject := fmt.Sprintf("Your Weather Report %s", time.Now().Format(time.ANSIC))
	body := fmt.Sprintf("Hi,\n\n"+
		"Here is your weather report for %s:\n\n"+
		"%s\n"+
		"Current: %.0f °F\n"+
		"Low: %.0f °F\n"+
		"High: %.0f °F\n"+
		"Feels like: %.0f °F\n",
		postalCode, capitalize(report.Description),
		report.Temp, report.TempMin, report.TempMax, report.FeelsLike)

	return s.provider.SendEmail(ctx, email, subject, body, "")
}

// SendCrowdCastEmail relays a nearby subscriber's observation
func (s *EmailService) SendCrowdCastEmail(ctx context.Context, email, description, reportURL, attachmentPath string) error {
	log.Printf("[DEBUG] SendCrowdCastEmail called for: %s\n", email)

	if email == "" {
		return errors.NewValidationError("email cannot be empty")
	}
	if description == "" {
		return errors.NewValidationError("description cannot be empty")
	}

	subject := fmt.Sprintf("Weather Alert %s", time.Now().Format(time.ANSIC))
	body := "Someone near by casted this weather information\n\n\n" +
		description +
		"\n\n\nIf you think this information is inappropriate, please report using the following link:\n" +
		reportURL

	return s.provider.SendEmail(ctx, email, subject, body, attachmentPath)
}

// SendBlockedEmail notifies a user that abuse reports blocked their account
func (s *EmailService) SendBlockedEmail(ctx context.Context, email string) error {
	log.Printf("[DEBUG] SendBlockedEmail called for: %s\n", email)

	if email == "" {
		return errors.NewValidationError("email cannot be empty")
	}

	subject := fmt.Sprintf("WeatherTogether - Report received %s", time.Now().Format(time.ANSIC))
	body := "\n\nDue to multiple reports, you have been blocked from WeatherTogether." +
		"\n\nYou will no longer be able to receive daily weather reports, " +
		"severe weather alerts nor will you have the ability to participate in crowd casting"

	return s.provider.SendEmail(ctx, email, subject, body, "")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
