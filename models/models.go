// Package models defines data structures used throughout the application
package models

import "time"

// Subscription represents one (email, postal code) weather subscription row.
// UserID is shared across all rows belonging to the same email and is derived
// from the unix timestamp of the first signup.
type Subscription struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	UserID           int64     `json:"user_id" gorm:"index;not null"`
	Email            string    `json:"email" gorm:"uniqueIndex:idx_email_postal;not null"`
	PostalCode       string    `json:"postal_code" gorm:"uniqueIndex:idx_email_postal;not null"`
	PasswordHash     string    `json:"-" gorm:"not null"`
	ReportTime       string    `json:"report_time" gorm:"not null"` // 24-hour "HH:MM"
	FrequencyMinutes *int      `json:"frequency_minutes"`
	CrowdSourceOptIn bool      `json:"crowd_source_opt_in" gorm:"default:true"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// WeatherAlert represents a single severe weather warning from the provider
type WeatherAlert struct {
	SenderName  string `json:"sender_name"`
	Event       string `json:"event"`
	Description string `json:"description"`
}

// WeatherReport represents current conditions returned by the weather gateway
type WeatherReport struct {
	Description string         `json:"description"`
	Temp        float64        `json:"temp"`
	TempMin     float64        `json:"temp_min"`
	TempMax     float64        `json:"temp_max"`
	FeelsLike   float64        `json:"feels_like"`
	Alerts      []WeatherAlert `json:"alerts,omitempty"`
}

// WeatherSnapshot is a cached observation for a postal code
type WeatherSnapshot struct {
	Report    WeatherReport `json:"report"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// CreateAlertRequest represents the form body of POST /create-alert
type CreateAlertRequest struct {
	Email               string `form:"email_address" binding:"required,email"`
	Password            string `form:"password" binding:"required"`
	PostalCode          string `form:"zipcode" binding:"required"`
	ReportTime          string `form:"report_time" binding:"required,reporttime"`
	FrequencyMinutes    *int   `form:"frequency"`
	OTP                 string `form:"otp"`
	AcceptCrowdSourcing *bool  `form:"accept_crowd_sourcing"`
}

// PublishInfoRequest represents the form body of POST /publish-info
// (the optional image part is read separately from the multipart form)
type PublishInfoRequest struct {
	Email       string `form:"email_address" binding:"required,email"`
	Password    string `form:"password" binding:"required"`
	Description string `form:"description" binding:"required"`
	PostalCode  string `form:"zipcode" binding:"required"`
}

// UnsubscribeRequest represents the form body of DELETE /unsubscribe
type UnsubscribeRequest struct {
	Email      string `form:"email_address" binding:"required,email"`
	Password   string `form:"password" binding:"required"`
	Everything *bool  `form:"everything"`
}

// LoginRequest represents the form body of POST /login-verify
type LoginRequest struct {
	Email    string `form:"email_address" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

// OKResponse carries a success detail string
type OKResponse struct {
	OK string `json:"OK"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}
