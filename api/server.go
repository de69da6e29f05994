package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"weathertogether.app/abuse"
	"weathertogether.app/config"
	weathererr "weathertogether.app/errors"
	"weathertogether.app/models"
	"weathertogether.app/pkg/validation"
	"weathertogether.app/service"
)

var registerValidatorsOnce sync.Once

// Server represents the HTTP server and API handler
type Server struct {
	router              *gin.Engine
	config              *config.Config
	subscriptionService service.SubscriptionServiceInterface
	notifierService     service.NotifierServiceInterface
	moderationService   service.ModerationServiceInterface
}

// NewServer creates and configures a new HTTP server
func NewServer(
	cfg *config.Config,
	subscriptionService service.SubscriptionServiceInterface,
	notifierService service.NotifierServiceInterface,
	moderationService service.ModerationServiceInterface,
) *Server {
	registerValidatorsOnce.Do(registerCustomValidators)

	router := gin.Default()

	server := &Server{
		router:              router,
		config:              cfg,
		subscriptionService: subscriptionService,
		notifierService:     notifierService,
		moderationService:   moderationService,
	}

	server.setupRoutes()
	return server
}

func registerCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("reporttime", func(fl validator.FieldLevel) bool {
			return validation.IsValidReportTime(fl.Field().String())
		})
	}
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/create-alert", s.createAlert)
		api.POST("/publish-info", s.publishInfo)
		api.DELETE("/unsubscribe", s.unsubscribe)
		api.GET("/report/:reported_id/:reporter_id", s.reportAbuse)
		api.POST("/login-verify", s.loginVerify)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start begins the HTTP server
func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%d", s.config.Server.Port))
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"OK": true})
}

func (s *Server) createAlert(c *gin.Context) {
	var req models.CreateAlertRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Error("Request binding error", "error", err)
		s.handleError(c, weathererr.NewValidationError("invalid request format"))
		return
	}

	slog.Debug("Create alert request received", "email", req.Email, "zipcode", req.PostalCode,
		"reportTime", req.ReportTime)

	outcome, err := s.subscriptionService.Subscribe(c.Request.Context(), &req)
	if err != nil {
		slog.Error("Subscription error", "error", err, "email", req.Email)
		s.handleError(c, err)
		return
	}

	if outcome == service.OutcomeOTPSent {
		c.JSON(http.StatusOK, models.OKResponse{OK: "Please enter the OTP"})
		return
	}
	c.JSON(http.StatusOK, models.OKResponse{OK: "Entry is added to the database successfully"})
}

func (s *Server) publishInfo(c *gin.Context) {
	var req models.PublishInfoRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Error("Request binding error", "error", err)
		s.handleError(c, weathererr.NewValidationError("invalid request format"))
		return
	}

	sender, err := s.subscriptionService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		slog.Error("Publish auth error", "error", err, "email", req.Email)
		s.handleError(c, err)
		return
	}

	attachmentPath, err := s.saveUploadedImage(c)
	if err != nil {
		s.handleError(c, err)
		return
	}

	slog.Debug("Starting background crowd-cast", "senderID", sender.UserID, "zipcode", req.PostalCode)

	// The broadcast runs detached so the request returns immediately.
	go s.notifierService.CrowdCast(c.Copy(), sender.UserID, req.PostalCode, req.Description, attachmentPath)

	c.JSON(http.StatusOK, models.OKResponse{OK: fmt.Sprintf("Broadcast started for %s", req.Email)})
}

func (s *Server) saveUploadedImage(c *gin.Context) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		// The image part is optional.
		return "", nil
	}

	name := uuid.New().String() + filepath.Ext(file.Filename)
	path := filepath.Join(s.config.Abuse.ImageDir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", weathererr.NewValidationError("failed to store uploaded image")
	}
	return path, nil
}

func (s *Server) unsubscribe(c *gin.Context) {
	var req models.UnsubscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Error("Request binding error", "error", err)
		s.handleError(c, weathererr.NewValidationError("invalid request format"))
		return
	}

	everything := true
	if req.Everything != nil {
		everything = *req.Everything
	}

	if err := s.subscriptionService.Unsubscribe(c.Request.Context(), req.Email, req.Password, everything); err != nil {
		slog.Error("Unsubscribe error", "error", err, "email", req.Email)
		s.handleError(c, err)
		return
	}

	if everything {
		c.JSON(http.StatusOK, models.OKResponse{OK: "Successfully unsubscribed from WeatherTogether"})
		return
	}
	c.JSON(http.StatusOK, models.OKResponse{OK: "CrowdSourcing has been disabled"})
}

func (s *Server) reportAbuse(c *gin.Context) {
	reportedID, err := strconv.ParseInt(c.Param("reported_id"), 10, 64)
	if err != nil {
		s.handleError(c, weathererr.NewValidationError("reported_id must be numeric"))
		return
	}
	reporterID, err := strconv.ParseInt(c.Param("reporter_id"), 10, 64)
	if err != nil {
		s.handleError(c, weathererr.NewValidationError("reporter_id must be numeric"))
		return
	}

	outcome, err := s.moderationService.ReportAbuse(c.Request.Context(), reportedID, reporterID)
	if err != nil {
		slog.Error("Abuse report error", "error", err, "reportedID", reportedID)
		s.handleError(c, err)
		return
	}

	switch outcome {
	case abuse.AlreadyBlocked:
		c.JSON(http.StatusOK, models.OKResponse{OK: "reported user is already blocked"})
	default:
		c.JSON(http.StatusOK, models.OKResponse{OK: "User ID reported"})
	}
}

func (s *Server) loginVerify(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		s.handleError(c, weathererr.NewValidationError("invalid request format"))
		return
	}

	if _, err := s.subscriptionService.Authenticate(c.Request.Context(), req.Email, req.Password); err != nil {
		slog.Error("Login error", "error", err, "email", req.Email)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.OKResponse{OK: "email and pass are verified"})
}

// handleError handles different types of application errors
func (s *Server) handleError(c *gin.Context, err error) {
	var appErr *weathererr.AppError
	var statusCode int
	var message string

	if errors.As(err, &appErr) {
		switch appErr.Type {
		case weathererr.ValidationError:
			statusCode = http.StatusBadRequest
			message = appErr.Message
		case weathererr.AuthError:
			statusCode = http.StatusUnauthorized
			message = appErr.Message
		case weathererr.BlockedError:
			statusCode = http.StatusForbidden
			message = appErr.Message
		case weathererr.NotFoundError:
			statusCode = http.StatusNotFound
			message = appErr.Message
		case weathererr.ConflictError:
			statusCode = http.StatusConflict
			message = appErr.Message
		case weathererr.ExternalAPIError:
			statusCode = http.StatusServiceUnavailable
			message = "External service unavailable"
		case weathererr.EmailError:
			statusCode = http.StatusServiceUnavailable
			message = "Unable to send email"
		case weathererr.DatabaseError:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		default:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		}
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
