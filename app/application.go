package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"weathertogether.app/abuse"
	"weathertogether.app/api"
	"weathertogether.app/config"
	"weathertogether.app/database"
	"weathertogether.app/geo"
	"weathertogether.app/metrics"
	"weathertogether.app/otp"
	"weathertogether.app/providers"
	"weathertogether.app/providers/cache"
	"weathertogether.app/repository"
	"weathertogether.app/scheduler"
	"weathertogether.app/service"
)

// Application represents the main application with all its dependencies
type Application struct {
	config    *config.Config
	db        *gorm.DB
	server    *api.Server
	scheduler *scheduler.Scheduler
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, err
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}

	return app, nil
}

func (app *Application) loadConfiguration() error {
	slog.Info("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	slog.Info("Configuration loaded successfully")
	return nil
}

func (app *Application) initializeDatabase() error {
	slog.Info("Initializing database...")

	db, err := database.InitDB(app.config.Database)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return fmt.Errorf("initialize database connection: %w", err)
	}

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		return fmt.Errorf("run database migrations: %w", err)
	}

	app.db = db
	slog.Info("Database initialized successfully")
	return nil
}

func (app *Application) initializeServices() error {
	slog.Info("Initializing services...")

	if err := os.MkdirAll(app.config.Abuse.ImageDir, 0o755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}

	clock := clockwork.NewRealClock()
	notifierMetrics := metrics.NewNotifier()

	geocoder := geo.NewNominatimClient(
		app.config.Geo.BaseURL,
		app.config.Geo.UserAgent,
		app.config.Geo.CountryCode,
		app.config.Geo.RequestTimeout,
	)
	distanceService := geo.NewDistanceService(geocoder, notifierMetrics)

	weatherProvider := providers.NewOpenWeatherMapProvider(
		app.config.Weather.APIKey,
		app.config.Weather.BaseURL,
		geocoder,
		app.config.Scheduler.OperationTimeout,
	)

	snapshots, err := cache.NewSnapshotCache(&app.config.Cache)
	if err != nil {
		return fmt.Errorf("create snapshot cache: %w", err)
	}

	emailProvider := providers.NewSMTPEmailProvider(&app.config.Email)
	emailService := service.NewEmailService(emailProvider)

	subscriptionRepo := repository.NewSubscriptionRepository(app.db)
	otpStore := otp.NewStore(app.config.OTP.TTL, app.config.OTP.Length, clock)
	abuseTracker := abuse.NewTracker(
		app.config.Abuse.ReportFile,
		app.config.Abuse.BlockedFile,
		app.config.Abuse.Threshold,
	)

	subscriptionService := service.NewSubscriptionService(
		app.db,
		subscriptionRepo,
		otpStore,
		abuseTracker,
		emailService,
		clock,
	)
	moderationService := service.NewModerationService(abuseTracker, subscriptionRepo, emailService)
	notifierService := service.NewNotifierService(service.NotifierOptions{
		Repo:            subscriptionRepo,
		Weather:         weatherProvider,
		EmailService:    emailService,
		Distance:        distanceService,
		Snapshots:       snapshots,
		Metrics:         notifierMetrics,
		Clock:           clock,
		AppBaseURL:      app.config.AppBaseURL,
		CastingDistance: app.config.Geo.CastingDistanceMiles,
		OpTimeout:       app.config.Scheduler.OperationTimeout,
	})

	app.server = api.NewServer(app.config, subscriptionService, notifierService, moderationService)
	app.scheduler = scheduler.NewScheduler(notifierService, &app.config.Scheduler, clock)

	slog.Info("Services initialized successfully")
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	slog.Info("Starting application...")

	slog.Info("Starting scheduler...")
	app.scheduler.Start()

	slog.Info("Starting HTTP server", "port", app.config.Server.Port)
	return app.server.Start()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	slog.Info("Shutting down application...")

	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.db != nil {
		if err := database.CloseDB(app.db); err != nil {
			slog.Warn("Error closing database", "error", err)
		}
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	return app.config
}
