// Package geo resolves postal codes to coordinates and computes the
// distances that gate crowd-cast eligibility.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"weathertogether.app/errors"
)

// Coordinates is a latitude/longitude pair
type Coordinates struct {
	Lat float64
	Lon float64
}

// Geocoder resolves a postal code to coordinates
type Geocoder interface {
	Resolve(ctx context.Context, postalCode string) (Coordinates, error)
}

// NominatimClient implements Geocoder using the OSM Nominatim search API
type NominatimClient struct {
	baseURL     string
	userAgent   string
	countryCode string
	httpClient  *http.Client
}

// NewNominatimClient creates a Nominatim geocoding client
func NewNominatimClient(baseURL, userAgent, countryCode string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		baseURL:     baseURL,
		userAgent:   userAgent,
		countryCode: countryCode,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Resolve looks up the coordinates for a postal code. A postal code with no
// resolvable location yields a NotFound error.
func (c *NominatimClient) Resolve(ctx context.Context, postalCode string) (Coordinates, error) {
	params := url.Values{
		"postalcode":   {postalCode},
		"countrycodes": {c.countryCode},
		"format":       {"jsonv2"},
		"limit":        {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Coordinates{}, errors.NewExternalAPIError("create geocoding request", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, errors.NewExternalAPIError("geocoding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Coordinates{}, errors.NewExternalAPIError(
			fmt.Sprintf("geocoding API error: status %d: %s", resp.StatusCode, body), nil)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Coordinates{}, errors.NewExternalAPIError("decode geocoding response", err)
	}

	if len(places) == 0 {
		return Coordinates{}, errors.NewNotFoundError(
			fmt.Sprintf("postal code %s has no resolvable location", postalCode))
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Coordinates{}, errors.NewExternalAPIError("parse geocoding latitude", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Coordinates{}, errors.NewExternalAPIError("parse geocoding longitude", err)
	}

	return Coordinates{Lat: lat, Lon: lon}, nil
}

// Nominatim API response types.

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}
