package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NotifierCollector holds the Prometheus instruments for the notification
// pipeline and the geo distance service.
type NotifierCollector struct {
	EmailsSent     *prometheus.CounterVec
	Ticks          *prometheus.CounterVec
	SnapshotHits   *prometheus.CounterVec
	SnapshotMisses *prometheus.CounterVec
	GeoLookups     prometheus.Counter
	GeoFailOpen    prometheus.Counter
}

var (
	collectorOnce   sync.Once
	globalCollector *NotifierCollector
)

// getCollector lazily builds the shared collector exactly once; promauto
// panics on a duplicate registration, so concurrent callers must not race.
func getCollector() *NotifierCollector {
	collectorOnce.Do(func() {
		globalCollector = &NotifierCollector{
			EmailsSent: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weathertogether_emails_total",
					Help: "Outbound emails by kind and outcome",
				},
				[]string{"kind", "outcome"},
			),
			Ticks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weathertogether_ticks_total",
					Help: "Background loop ticks by kind",
				},
				[]string{"kind"},
			),
			SnapshotHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weathertogether_snapshot_hits_total",
					Help: "Weather snapshot cache hits",
				},
				[]string{"cache_type"},
			),
			SnapshotMisses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weathertogether_snapshot_misses_total",
					Help: "Weather snapshot cache misses",
				},
				[]string{"cache_type"},
			),
			GeoLookups: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "weathertogether_geo_lookups_total",
					Help: "Postal code geocoding lookups",
				},
			),
			GeoFailOpen: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "weathertogether_geo_fail_open_total",
					Help: "Distance computations that returned 0 because a geocoding lookup failed",
				},
			),
		}
	})
	return globalCollector
}

// Notifier provides recording helpers bound to the shared collector
type Notifier struct {
	collector *NotifierCollector
}

func NewNotifier() *Notifier {
	return &Notifier{collector: getCollector()}
}

func (m *Notifier) RecordEmail(kind string, delivered bool) {
	outcome := "delivered"
	if !delivered {
		outcome = "failed"
	}
	m.collector.EmailsSent.WithLabelValues(kind, outcome).Inc()
}

func (m *Notifier) RecordTick(kind string) {
	m.collector.Ticks.WithLabelValues(kind).Inc()
}

func (m *Notifier) RecordSnapshotHit(cacheType string) {
	m.collector.SnapshotHits.WithLabelValues(cacheType).Inc()
}

func (m *Notifier) RecordSnapshotMiss(cacheType string) {
	m.collector.SnapshotMisses.WithLabelValues(cacheType).Inc()
}

func (m *Notifier) RecordGeoLookup() {
	m.collector.GeoLookups.Inc()
}

// RecordGeoFailOpen marks a distance call that fell back to 0 miles after a
// failed lookup, so a true zero distance stays distinguishable in dashboards.
func (m *Notifier) RecordGeoFailOpen() {
	m.collector.GeoFailOpen.Inc()
}
