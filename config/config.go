package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"weathertogether.app/errors"
)

// Config represents the application configuration structure
type Config struct {
	Server     ServerConfig    `split_words:"true"`
	Database   DatabaseConfig  `split_words:"true"`
	Weather    WeatherConfig   `split_words:"true"`
	Geo        GeoConfig       `split_words:"true"`
	Email      EmailConfig     `split_words:"true"`
	Scheduler  SchedulerConfig `split_words:"true"`
	OTP        OTPConfig       `split_words:"true"`
	Abuse      AbuseConfig     `split_words:"true"`
	Cache      CacheConfig     `split_words:"true"`
	AppBaseURL string          `envconfig:"APP_URL" default:"http://localhost:8080"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// DatabaseConfig contains database connection settings.
// Driver selects between the embedded sqlite file and a postgres server.
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	FilePath string `envconfig:"DB_FILE" default:"datastore.db"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"weathertogether"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

// GetDSN returns a formatted postgres connection string
func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// WeatherConfig contains settings for the weather API service
type WeatherConfig struct {
	APIKey  string `envconfig:"WEATHER_API_KEY" required:"true"`
	BaseURL string `envconfig:"WEATHER_API_BASE_URL" default:"https://api.openweathermap.org/data/2.5/weather"`
}

// GeoConfig contains geocoding and crowd-cast distance settings
type GeoConfig struct {
	BaseURL              string        `envconfig:"GEO_BASE_URL" default:"https://nominatim.openstreetmap.org/search"`
	UserAgent            string        `envconfig:"GEO_USER_AGENT" default:"WeatherTogether"`
	CountryCode          string        `envconfig:"GEO_COUNTRY_CODE" default:"us"`
	RequestTimeout       time.Duration `envconfig:"GEO_REQUEST_TIMEOUT" default:"10s"`
	CastingDistanceMiles float64       `envconfig:"CASTING_DISTANCE" default:"5"`
}

// EmailConfig contains email server and sending settings
type EmailConfig struct {
	SMTPHost     string `envconfig:"EMAIL_SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"EMAIL_SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"EMAIL_SMTP_USERNAME" required:"true"`
	SMTPPassword string `envconfig:"EMAIL_SMTP_PASSWORD" required:"true"`
	FromName     string `envconfig:"EMAIL_FROM_NAME" default:"WeatherTogether"`
	FromAddress  string `envconfig:"EMAIL_FROM_ADDRESS" default:"no-reply@weathertogether.app"`
}

// SchedulerConfig contains settings for the background polling loop.
// The poll interval drives report-time checks; the alert interval is the
// elapsed-time threshold between severe weather sweeps.
type SchedulerConfig struct {
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`
	AlertInterval    time.Duration `envconfig:"ALERT_INTERVAL" default:"1800s"`
	OperationTimeout time.Duration `envconfig:"OPERATION_TIMEOUT" default:"10s"`
}

// OTPConfig contains one-time passcode settings
type OTPConfig struct {
	TTL    time.Duration `envconfig:"OTP_TTL" default:"300s"`
	Length int           `envconfig:"OTP_LENGTH" default:"5"`
}

// AbuseConfig contains abuse report tracking settings
type AbuseConfig struct {
	Threshold   int    `envconfig:"ABUSE_THRESHOLD" default:"3"`
	ReportFile  string `envconfig:"ABUSE_REPORT_FILE" default:"reports.yaml"`
	BlockedFile string `envconfig:"ABUSE_BLOCKED_FILE" default:"blocked.json"`
	ImageDir    string `envconfig:"ABUSE_IMAGE_DIR" default:"images"`
}

// CacheConfig contains weather snapshot cache settings
type CacheConfig struct {
	Type          string        `envconfig:"CACHE_TYPE" default:"memory"`
	TTL           time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	RedisAddr     string        `envconfig:"CACHE_REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"CACHE_REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"CACHE_REDIS_DB" default:"0"`
	RedisTimeout  time.Duration `envconfig:"CACHE_REDIS_TIMEOUT" default:"5s"`
}

// LoadConfig loads and validates application configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Weather.Validate(); err != nil {
		return err
	}
	if err := c.Geo.Validate(); err != nil {
		return err
	}
	if err := c.Email.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.OTP.Validate(); err != nil {
		return err
	}
	if err := c.Abuse.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.validateAppBaseURL(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAppBaseURL() error {
	if c.AppBaseURL == "" {
		return errors.NewConfigurationError("APP_URL cannot be empty", nil)
	}
	if !strings.HasPrefix(c.AppBaseURL, "http://") && !strings.HasPrefix(c.AppBaseURL, "https://") {
		return errors.NewConfigurationError("APP_URL must start with http:// or https://", nil)
	}
	return nil
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// Validate checks database configuration
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "sqlite":
		if d.FilePath == "" {
			return errors.NewConfigurationError("DB_FILE cannot be empty for the sqlite driver", nil)
		}
	case "postgres":
		if d.Host == "" {
			return errors.NewConfigurationError("DB_HOST cannot be empty", nil)
		}
		if d.Port < 1 || d.Port > 65535 {
			return errors.NewConfigurationError("DB_PORT must be between 1 and 65535", nil)
		}
		if d.User == "" {
			return errors.NewConfigurationError("DB_USER cannot be empty", nil)
		}
		if d.Name == "" {
			return errors.NewConfigurationError("DB_NAME cannot be empty", nil)
		}
		if err := d.validateSSLMode(); err != nil {
			return err
		}
	default:
		return errors.NewConfigurationError("DB_DRIVER must be either 'sqlite' or 'postgres'", nil)
	}
	return nil
}

func (d *DatabaseConfig) validateSSLMode() error {
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	for _, mode := range validSSLModes {
		if d.SSLMode == mode {
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", ")), nil)
}

// Validate checks weather API configuration
func (w *WeatherConfig) Validate() error {
	if w.APIKey == "" {
		return errors.NewConfigurationError("WEATHER_API_KEY is required", nil)
	}
	if w.BaseURL == "" {
		return errors.NewConfigurationError("WEATHER_API_BASE_URL cannot be empty", nil)
	}
	if !strings.HasPrefix(w.BaseURL, "http://") && !strings.HasPrefix(w.BaseURL, "https://") {
		return errors.NewConfigurationError("WEATHER_API_BASE_URL must start with http:// or https://", nil)
	}
	return nil
}

// Validate checks geocoding configuration
func (g *GeoConfig) Validate() error {
	if g.BaseURL == "" {
		return errors.NewConfigurationError("GEO_BASE_URL cannot be empty", nil)
	}
	if !strings.HasPrefix(g.BaseURL, "http://") && !strings.HasPrefix(g.BaseURL, "https://") {
		return errors.NewConfigurationError("GEO_BASE_URL must start with http:// or https://", nil)
	}
	if g.UserAgent == "" {
		return errors.NewConfigurationError("GEO_USER_AGENT cannot be empty", nil)
	}
	if g.RequestTimeout <= 0 {
		return errors.NewConfigurationError("GEO_REQUEST_TIMEOUT must be positive", nil)
	}
	if g.CastingDistanceMiles <= 0 {
		return errors.NewConfigurationError("CASTING_DISTANCE must be positive", nil)
	}
	return nil
}

// Validate checks email configuration
func (e *EmailConfig) Validate() error {
	if e.SMTPHost == "" {
		return errors.NewConfigurationError("EMAIL_SMTP_HOST cannot be empty", nil)
	}
	if e.SMTPPort < 1 || e.SMTPPort > 65535 {
		return errors.NewConfigurationError("EMAIL_SMTP_PORT must be between 1 and 65535", nil)
	}
	if e.SMTPUsername == "" {
		return errors.NewConfigurationError("EMAIL_SMTP_USERNAME is required", nil)
	}
	if e.SMTPPassword == "" {
		return errors.NewConfigurationError("EMAIL_SMTP_PASSWORD is required", nil)
	}
	if e.FromName == "" {
		return errors.NewConfigurationError("EMAIL_FROM_NAME cannot be empty", nil)
	}
	if e.FromAddress == "" {
		return errors.NewConfigurationError("EMAIL_FROM_ADDRESS cannot be empty", nil)
	}
	if !strings.Contains(e.FromAddress, "@") {
		return errors.NewConfigurationError("EMAIL_FROM_ADDRESS must be a valid email address", nil)
	}
	return nil
}

// Validate checks scheduler configuration
func (s *SchedulerConfig) Validate() error {
	if s.PollInterval < time.Second {
		return errors.NewConfigurationError("POLL_INTERVAL must be at least 1 second", nil)
	}
	if s.PollInterval > time.Minute {
		return errors.NewConfigurationError("POLL_INTERVAL cannot exceed 1 minute or report times may be skipped", nil)
	}
	if s.AlertInterval < s.PollInterval {
		return errors.NewConfigurationError("ALERT_INTERVAL cannot be shorter than POLL_INTERVAL", nil)
	}
	if s.OperationTimeout <= 0 {
		return errors.NewConfigurationError("OPERATION_TIMEOUT must be positive", nil)
	}
	return nil
}

// Validate checks OTP configuration
func (o *OTPConfig) Validate() error {
	if o.TTL <= 0 {
		return errors.NewConfigurationError("OTP_TTL must be positive", nil)
	}
	if o.Length < 4 || o.Length > 10 {
		return errors.NewConfigurationError("OTP_LENGTH must be between 4 and 10", nil)
	}
	return nil
}

// Validate checks abuse tracking configuration
func (a *AbuseConfig) Validate() error {
	if a.Threshold < 1 {
		return errors.NewConfigurationError("ABUSE_THRESHOLD must be at least 1", nil)
	}
	if a.ReportFile == "" {
		return errors.NewConfigurationError("ABUSE_REPORT_FILE cannot be empty", nil)
	}
	if a.BlockedFile == "" {
		return errors.NewConfigurationError("ABUSE_BLOCKED_FILE cannot be empty", nil)
	}
	if a.ImageDir == "" {
		return errors.NewConfigurationError("ABUSE_IMAGE_DIR cannot be empty", nil)
	}
	return nil
}

// Validate checks cache configuration
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return errors.NewConfigurationError("CACHE_REDIS_ADDR cannot be empty", nil)
		}
		if c.RedisTimeout <= 0 {
			return errors.NewConfigurationError("CACHE_REDIS_TIMEOUT must be positive", nil)
		}
	default:
		return errors.NewConfigurationError("CACHE_TYPE must be either 'memory' or 'redis'", nil)
	}
	if c.TTL <= 0 {
		return errors.NewConfigurationError("CACHE_TTL must be positive", nil)
	}
	return nil
}
