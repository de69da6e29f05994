package geo

import (
	"context"
	"log"
	"math"

	"weathertogether.app/metrics"
)

const earthRadiusMiles = 3958.8

// DistanceService computes great-circle distances between postal codes
type DistanceService struct {
	geocoder Geocoder
	metrics  *metrics.Notifier
}

// NewDistanceService creates a distance service backed by a geocoder
func NewDistanceService(geocoder Geocoder, m *metrics.Notifier) *DistanceService {
	return &DistanceService{
		geocoder: geocoder,
		metrics:  m,
	}
}

// Distance returns the distance between two postal codes in miles.
// Equal codes short-circuit to 0 without any lookup. A lookup failure for
// either code also returns 0 - fail-open, so a geocoding outage never
// silently excludes a subscriber from a broadcast. Fail-open zeroes are
// counted separately so they stay distinguishable from true zeroes.
func (s *DistanceService) Distance(ctx context.Context, codeA, codeB string) float64 {
	if codeA == codeB {
		return 0
	}

	locA, err := s.geocoder.Resolve(ctx, codeA)
	if s.metrics != nil {
		s.metrics.RecordGeoLookup()
	}
	if err != nil {
		return s.failOpen(codeA, err)
	}

	locB, err := s.geocoder.Resolve(ctx, codeB)
	if s.metrics != nil {
		s.metrics.RecordGeoLookup()
	}
	if err != nil {
		return s.failOpen(codeB, err)
	}

	return haversineMiles(locA, locB)
}

func (s *DistanceService) failOpen(code string, err error) float64 {
	log.Printf("[WARNING] Geocoding failed for %s, treating distance as 0: %v\n", code, err)
	if s.metrics != nil {
		s.metrics.RecordGeoFailOpen()
	}
	return 0
}

// haversineMiles computes the great-circle distance between two coordinates
func haversineMiles(a, b Coordinates) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}
