package providers

import (
	"context"

	"weathertogether.app/models"
)

// WeatherProvider defines the interface for the weather gateway
type WeatherProvider interface {
	GetCurrentWeather(ctx context.Context, postalCode string) (*models.WeatherReport, error)
}

// EmailProvider defines the interface for outbound email transports.
// attachmentPath may be empty for a plain message. The context bounds the
// whole delivery; expiry counts as a failed send.
type EmailProvider interface {
	SendEmail(ctx context.Context, to, subject, body, attachmentPath string) error
}
