package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"weathertogether.app/errors"
	"weathertogether.app/geo"
	"weathertogether.app/models"
)

// OpenWeatherMapProvider implements WeatherProvider using the OpenWeatherMap
// current conditions API, resolving postal codes through a geocoder first.
type OpenWeatherMapProvider struct {
	apiKey     string
	baseURL    string
	geocoder   geo.Geocoder
	httpClient *http.Client
}

type openWeatherMapResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		FeelsLike float64 `json:"feels_like"`
	} `json:"main"`
	Alerts []struct {
		SenderName  string `json:"sender_name"`
		Event       string `json:"event"`
		Description string `json:"description"`
	} `json:"alerts"`
	Message string `json:"message,omitempty"`
}

// NewOpenWeatherMapProvider creates an OpenWeatherMap weather provider
func NewOpenWeatherMapProvider(apiKey, baseURL string, geocoder geo.Geocoder, timeout time.Duration) *OpenWeatherMapProvider {
	return &OpenWeatherMapProvider{
		apiKey:   apiKey,
		baseURL:  baseURL,
		geocoder: geocoder,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetCurrentWeather fetches current conditions and any severe weather alerts
// for a postal code. There is no retry; a failure aborts only this call.
func (p *OpenWeatherMapProvider) GetCurrentWeather(ctx context.Context, postalCode string) (*models.WeatherReport, error) {
	coords, err := p.geocoder.Resolve(ctx, postalCode)
	if err != nil {
		return nil, errors.NewExternalAPIError(
			fmt.Sprintf("failed to resolve coordinates for postal code %s", postalCode), err)
	}

	params := url.Values{
		"lat":   {fmt.Sprintf("%.4f", coords.Lat)},
		"lon":   {fmt.Sprintf("%.4f", coords.Lon)},
		"appid": {p.apiKey},
		"units": {"imperial"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.NewExternalAPIError("create weather request", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewExternalAPIError("openweathermap API request failed", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleHTTPError(resp.StatusCode)
	}

	var apiResponse openWeatherMapResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, errors.NewExternalAPIError("decode openweathermap response", err)
	}

	return p.convertToReport(&apiResponse), nil
}

func (p *OpenWeatherMapProvider) handleHTTPError(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return errors.NewExternalAPIError("openweathermap: invalid API key", nil)
	case http.StatusNotFound:
		return errors.NewExternalAPIError("openweathermap: location not found", nil)
	case http.StatusTooManyRequests:
		return errors.NewExternalAPIError("openweathermap: rate limit exceeded", nil)
	case http.StatusServiceUnavailable:
		return errors.NewExternalAPIError("openweathermap: service unavailable", nil)
	default:
		return errors.NewExternalAPIError(fmt.Sprintf("openweathermap: HTTP %d error", statusCode), nil)
	}
}

func (p *OpenWeatherMapProvider) convertToReport(apiResp *openWeatherMapResponse) *models.WeatherReport {
	description := "No description"
	if len(apiResp.Weather) > 0 {
		description = apiResp.Weather[0].Description
	}

	report := &models.WeatherReport{
		Description: description,
		Temp:        apiResp.Main.Temp,
		TempMin:     apiResp.Main.TempMin,
		TempMax:     apiResp.Main.TempMax,
		FeelsLike:   apiResp.Main.FeelsLike,
	}

	for _, alert := range apiResp.Alerts {
		report.Alerts = append(report.Alerts, models.WeatherAlert{
			SenderName:  alert.SenderName,
			Event:       alert.Event,
			Description: alert.Description,
		})
	}

	return report
}
