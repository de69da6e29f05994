package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	require.NoError(t, os.Setenv("WEATHER_API_KEY", "test-api-key"))
	require.NoError(t, os.Setenv("EMAIL_SMTP_USERNAME", "test-username"))
	require.NoError(t, os.Setenv("EMAIL_SMTP_PASSWORD", "test-password"))
}

func TestLoadConfig(t *testing.T) {
	t.Run("RequiredFieldsMissing", func(t *testing.T) {
		os.Clearenv()

		config, err := LoadConfig()

		assert.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "required key WEATHER_API_KEY missing")
	})

	t.Run("DefaultValues", func(t *testing.T) {
		os.Clearenv()
		setRequiredEnv(t)

		config, err := LoadConfig()

		assert.NoError(t, err)
		require.NotNil(t, config)
		assert.Equal(t, 8080, config.Server.Port)
		assert.Equal(t, "sqlite", config.Database.Driver)
		assert.Equal(t, "datastore.db", config.Database.FilePath)
		assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather", config.Weather.BaseURL)
		assert.Equal(t, "https://nominatim.openstreetmap.org/search", config.Geo.BaseURL)
		assert.Equal(t, "us", config.Geo.CountryCode)
		assert.Equal(t, 5.0, config.Geo.CastingDistanceMiles)
		assert.Equal(t, "smtp.gmail.com", config.Email.SMTPHost)
		assert.Equal(t, 587, config.Email.SMTPPort)
		assert.Equal(t, "WeatherTogether", config.Email.FromName)
		assert.Equal(t, 30*time.Second, config.Scheduler.PollInterval)
		assert.Equal(t, 1800*time.Second, config.Scheduler.AlertInterval)
		assert.Equal(t, 300*time.Second, config.OTP.TTL)
		assert.Equal(t, 5, config.OTP.Length)
		assert.Equal(t, 3, config.Abuse.Threshold)
		assert.Equal(t, "reports.yaml", config.Abuse.ReportFile)
		assert.Equal(t, "blocked.json", config.Abuse.BlockedFile)
		assert.Equal(t, "memory", config.Cache.Type)
		assert.Equal(t, "http://localhost:8080", config.AppBaseURL)
	})

	t.Run("CustomValues", func(t *testing.T) {
		os.Clearenv()
		setRequiredEnv(t)
		require.NoError(t, os.Setenv("SERVER_PORT", "9090"))
		require.NoError(t, os.Setenv("DB_DRIVER", "postgres"))
		require.NoError(t, os.Setenv("DB_HOST", "test-db-host"))
		require.NoError(t, os.Setenv("DB_NAME", "test-db"))
		require.NoError(t, os.Setenv("POLL_INTERVAL", "15s"))
		require.NoError(t, os.Setenv("ALERT_INTERVAL", "900s"))
		require.NoError(t, os.Setenv("OTP_TTL", "120s"))
		require.NoError(t, os.Setenv("CASTING_DISTANCE", "10"))
		require.NoError(t, os.Setenv("CACHE_TYPE", "redis"))
		require.NoError(t, os.Setenv("APP_URL", "https://custom.example.com"))

		config, err := LoadConfig()

		assert.NoError(t, err)
		require.NotNil(t, config)
		assert.Equal(t, 9090, config.Server.Port)
		assert.Equal(t, "postgres", config.Database.Driver)
		assert.Equal(t, "test-db-host", config.Database.Host)
		assert.Equal(t, 15*time.Second, config.Scheduler.PollInterval)
		assert.Equal(t, 900*time.Second, config.Scheduler.AlertInterval)
		assert.Equal(t, 120*time.Second, config.OTP.TTL)
		assert.Equal(t, 10.0, config.Geo.CastingDistanceMiles)
		assert.Equal(t, "redis", config.Cache.Type)
		assert.Equal(t, "https://custom.example.com", config.AppBaseURL)
	})

	t.Run("InvalidDriver", func(t *testing.T) {
		os.Clearenv()
		setRequiredEnv(t)
		require.NoError(t, os.Setenv("DB_DRIVER", "oracle"))

		config, err := LoadConfig()

		assert.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "DB_DRIVER")
	})

	t.Run("PollIntervalTooLong", func(t *testing.T) {
		os.Clearenv()
		setRequiredEnv(t)
		require.NoError(t, os.Setenv("POLL_INTERVAL", "90s"))

		config, err := LoadConfig()

		assert.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "POLL_INTERVAL")
	})

	t.Run("AlertIntervalShorterThanPoll", func(t *testing.T) {
		os.Clearenv()
		setRequiredEnv(t)
		require.NoError(t, os.Setenv("POLL_INTERVAL", "30s"))
		require.NoError(t, os.Setenv("ALERT_INTERVAL", "10s"))

		config, err := LoadConfig()

		assert.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "ALERT_INTERVAL")
	})

	t.Run("InvalidCacheType", func(t *testing.T) {
		os.Clearenv()
		setRequiredEnv(t)
		require.NoError(t, os.Setenv("CACHE_TYPE", "memcached"))

		config, err := LoadConfig()

		assert.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "CACHE_TYPE")
	})

	t.Run("InvalidAppURL", func(t *testing.T) {
		os.Clearenv()
		setRequiredEnv(t)
		require.NoError(t, os.Setenv("APP_URL", "localhost:8080"))

		config, err := LoadConfig()

		assert.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "APP_URL")
	})
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Name:     "weathertogether",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=weathertogether sslmode=disable",
		cfg.GetDSN())
}

func TestOTPConfig_Validate(t *testing.T) {
	cfg := OTPConfig{TTL: 300 * time.Second, Length: 5}
	assert.NoError(t, cfg.Validate())

	cfg.Length = 3
	assert.Error(t, cfg.Validate())

	cfg.Length = 5
	cfg.TTL = 0
	assert.Error(t, cfg.Validate())
}

func TestAbuseConfig_Validate(t *testing.T) {
	cfg := AbuseConfig{Threshold: 3, ReportFile: "reports.yaml", BlockedFile: "blocked.json", ImageDir: "images"}
	assert.NoError(t, cfg.Validate())

	cfg.Threshold = 0
	assert.Error(t, cfg.Validate())
}
