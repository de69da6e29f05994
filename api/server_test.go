package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"weathertogether.app/abuse"
	"weathertogether.app/config"
	apperrors "weathertogether.app/errors"
	"weathertogether.app/models"
	"weathertogether.app/service"
)

type mockSubscriptionService struct {
	mock.Mock
}

func (m *mockSubscriptionService) Subscribe(_ context.Context, req *models.CreateAlertRequest) (service.SubscribeOutcome, error) {
	args := m.Called(req)
	return args.Get(0).(service.SubscribeOutcome), args.Error(1)
}

func (m *mockSubscriptionService) Authenticate(_ context.Context, email, password string) (*models.Subscription, error) {
	args := m.Called(email, password)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), nil
}

func (m *mockSubscriptionService) Unsubscribe(_ context.Context, email, password string, everything bool) error {
	args := m.Called(email, password, everything)
	return args.Error(0)
}

type mockModerationService struct {
	mock.Mock
}

func (m *mockModerationService) ReportAbuse(_ context.Context, reportedID, reporterID int64) (abuse.Outcome, error) {
	args := m.Called(reportedID, reporterID)
	return args.Get(0).(abuse.Outcome), args.Error(1)
}

type castCall struct {
	senderID       int64
	postalCode     string
	description    string
	attachmentPath string
}

// fakeNotifier records crowd-cast invocations; the handler launches them in
// a background goroutine, so recording is synchronized.
type fakeNotifier struct {
	mu    sync.Mutex
	casts []castCall
}

func (f *fakeNotifier) RunAlertTick(_ context.Context)  {}
func (f *fakeNotifier) RunReportTick(_ context.Context) {}

func (f *fakeNotifier) CrowdCast(_ context.Context, senderID int64, postalCode, description, attachmentPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.casts = append(f.casts, castCall{senderID, postalCode, description, attachmentPath})
}

func (f *fakeNotifier) recorded() []castCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]castCall(nil), f.casts...)
}

func setupTestServer(t *testing.T) (*Server, *mockSubscriptionService, *fakeNotifier, *mockModerationService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:     config.ServerConfig{Port: 8080},
		Abuse:      config.AbuseConfig{ImageDir: t.TempDir()},
		AppBaseURL: "http://localhost:8080",
	}

	subs := new(mockSubscriptionService)
	notifier := &fakeNotifier{}
	moderation := new(mockModerationService)

	return NewServer(cfg, subs, notifier, moderation), subs, notifier, moderation
}

func postForm(server *Server, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(w, req)
	return w
}

func validAlertForm() url.Values {
	return url.Values{
		"email_address": {"test@example.com"},
		"password":      {"secret1!"},
		"zipcode":       {"65807"},
		"report_time":   {"08:00"},
	}
}

func TestServer_Health(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"OK": true}`, w.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_CreateAlert_PromptsForOTP(t *testing.T) {
	server, subs, _, _ := setupTestServer(t)

	subs.On("Subscribe", mock.MatchedBy(func(req *models.CreateAlertRequest) bool {
		return req.Email == "test@example.com" && req.PostalCode == "65807"
	})).Return(service.OutcomeOTPSent, nil)

	w := postForm(server, "/api/create-alert", validAlertForm())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"OK": "Please enter the OTP"}`, w.Body.String())
	subs.AssertExpectations(t)
}

func TestServer_CreateAlert_Subscribed(t *testing.T) {
	server, subs, _, _ := setupTestServer(t)

	subs.On("Subscribe", mock.AnythingOfType("*models.CreateAlertRequest")).
		Return(service.OutcomeSubscribed, nil)

	form := validAlertForm()
	form.Set("otp", "ABC12")
	w := postForm(server, "/api/create-alert", form)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"OK": "Entry is added to the database successfully"}`, w.Body.String())
}

func TestServer_CreateAlert_MissingFields(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	form := validAlertForm()
	form.Del("email_address")
	w := postForm(server, "/api/create-alert", form)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_CreateAlert_BadReportTime(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	form := validAlertForm()
	form.Set("report_time", "25:99")
	w := postForm(server, "/api/create-alert", form)

	// Rejected by the binding validator before the service is reached.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_CreateAlert_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
	}{
		{"validation", apperrors.NewValidationError("zipcode is invalid"), http.StatusBadRequest},
		{"auth", apperrors.NewAuthError("unauthorized or timed out"), http.StatusUnauthorized},
		{"blocked", apperrors.NewBlockedError("user blocked"), http.StatusForbidden},
		{"not found", apperrors.NewNotFoundError("not subscribed"), http.StatusNotFound},
		{"conflict", apperrors.NewConflictError("entry for this zipcode already exists"), http.StatusConflict},
		{"email", apperrors.NewEmailError("smtp down", nil), http.StatusServiceUnavailable},
		{"external api", apperrors.NewExternalAPIError("api down", nil), http.StatusServiceUnavailable},
		{"database", apperrors.NewDatabaseError("db down", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, subs, _, _ := setupTestServer(t)

			subs.On("Subscribe", mock.AnythingOfType("*models.CreateAlertRequest")).
				Return(service.OutcomeOTPSent, tt.err)

			w := postForm(server, "/api/create-alert", validAlertForm())

			assert.Equal(t, tt.statusCode, w.Code)
		})
	}
}

func TestServer_LoginVerify(t *testing.T) {
	server, subs, _, _ := setupTestServer(t)

	subs.On("Authenticate", "test@example.com", "secret1!").
		Return(&models.Subscription{UserID: 1000, Email: "test@example.com"}, nil)

	form := url.Values{
		"email_address": {"test@example.com"},
		"password":      {"secret1!"},
	}
	w := postForm(server, "/api/login-verify", form)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"OK": "email and pass are verified"}`, w.Body.String())
}

func TestServer_LoginVerify_UnknownEmail(t *testing.T) {
	server, subs, _, _ := setupTestServer(t)

	subs.On("Authenticate", "missing@example.com", "secret1!").
		Return(nil, apperrors.NewNotFoundError("missing@example.com is currently not subscribed to WeatherTogether"))

	form := url.Values{
		"email_address": {"missing@example.com"},
		"password":      {"secret1!"},
	}
	w := postForm(server, "/api/login-verify", form)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Unsubscribe_Everything(t *testing.T) {
	server, subs, _, _ := setupTestServer(t)

	subs.On("Unsubscribe", "test@example.com", "secret1!", true).Return(nil)

	params := url.Values{
		"email_address": {"test@example.com"},
		"password":      {"secret1!"},
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/unsubscribe?"+params.Encode(), nil)
	w := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"OK": "Successfully unsubscribed from WeatherTogether"}`, w.Body.String())
	subs.AssertExpectations(t)
}

func TestServer_Unsubscribe_CrowdSourceOnly(t *testing.T) {
	server, subs, _, _ := setupTestServer(t)

	subs.On("Unsubscribe", "test@example.com", "secret1!", false).Return(nil)

	params := url.Values{
		"email_address": {"test@example.com"},
		"password":      {"secret1!"},
		"everything":    {"false"},
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/unsubscribe?"+params.Encode(), nil)
	w := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"OK": "CrowdSourcing has been disabled"}`, w.Body.String())
}

func TestServer_PublishInfo_StartsBroadcast(t *testing.T) {
	server, subs, notifier, _ := setupTestServer(t)

	subs.On("Authenticate", "test@example.com", "secret1!").
		Return(&models.Subscription{UserID: 1000, Email: "test@example.com", PostalCode: "65807"}, nil)

	form := url.Values{
		"email_address": {"test@example.com"},
		"password":      {"secret1!"},
		"description":   {"Hail on Main St"},
		"zipcode":       {"65807"},
	}
	w := postForm(server, "/api/publish-info", form)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Broadcast started for test@example.com")

	require.Eventually(t, func() bool {
		return len(notifier.recorded()) == 1
	}, time.Second, time.Millisecond)

	cast := notifier.recorded()[0]
	assert.Equal(t, int64(1000), cast.senderID)
	assert.Equal(t, "65807", cast.postalCode)
	assert.Equal(t, "Hail on Main St", cast.description)
	assert.Empty(t, cast.attachmentPath)
}

func TestServer_PublishInfo_BadCredentials(t *testing.T) {
	server, subs, notifier, _ := setupTestServer(t)

	subs.On("Authenticate", "test@example.com", "wrong9!x").
		Return(nil, apperrors.NewAuthError("invalid email address or password"))

	form := url.Values{
		"email_address": {"test@example.com"},
		"password":      {"wrong9!x"},
		"description":   {"Hail on Main St"},
		"zipcode":       {"65807"},
	}
	w := postForm(server, "/api/publish-info", form)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, notifier.recorded())
}

func TestServer_ReportAbuse(t *testing.T) {
	server, _, _, moderation := setupTestServer(t)

	moderation.On("ReportAbuse", int64(1000), int64(2000)).Return(abuse.Recorded, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/report/1000/2000", nil)
	w := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"OK": "User ID reported"}`, w.Body.String())
	moderation.AssertExpectations(t)
}

func TestServer_ReportAbuse_AlreadyBlocked(t *testing.T) {
	server, _, _, moderation := setupTestServer(t)

	moderation.On("ReportAbuse", int64(1000), int64(2000)).Return(abuse.AlreadyBlocked, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/report/1000/2000", nil)
	w := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"OK": "reported user is already blocked"}`, w.Body.String())
}

func TestServer_ReportAbuse_NonNumericID(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/report/abc/2000", nil)
	w := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
