// Package metrics exposes Prometheus counters for the link service.
//
// All recording methods are safe to call on a nil *Metrics, so components can
// take metrics as an optional dependency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shortlinks"

// Outcome labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"

	ResolveFound    = "found"
	ResolveNotFound = "not_found"
	ResolveExpired  = "expired"

	ShortenCreated = "created"
	ShortenReused  = "reused"

	RateAllowed = "allowed"
	RateDenied  = "denied"

	PurgeLazy  = "lazy"
	PurgeSweep = "sweep"
)

// Metrics holds the service counters.
type Metrics struct {
	cacheLookups *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	shortens     *prometheus.CounterVec
	collisions   prometheus.Counter
	rateLimit    *prometheus.CounterVec
	purged       *prometheus.CounterVec
}

// New registers the counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Link cache lookups by outcome.",
		}, []string{"outcome"}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Short code resolutions by outcome.",
		}, []string{"outcome"}),
		shortens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shortens_total",
			Help:      "Shorten calls by outcome.",
		}, []string{"outcome"}),
		collisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_collisions_total",
			Help:      "Generated codes rejected because they were already taken.",
		}),
		rateLimit: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter decisions on the write path.",
		}, []string{"decision"}),
		purged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_links_total",
			Help:      "Expired links removed, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) CacheLookup(outcome string) {
	if m == nil {
		return
	}

	m.cacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}

	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Shorten(outcome string) {
	if m == nil {
		return
	}

	m.shortens.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Collision() {
	if m == nil {
		return
	}

	m.collisions.Inc()
}

func (m *Metrics) RateLimitDecision(allowed bool) {
	if m == nil {
		return
	}

	decision := RateAllowed
	if !allowed {
		decision = RateDenied
	}

	m.rateLimit.WithLabelValues(decision).Inc()
}

func (m *Metrics) Purged(reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}

	m.purged.WithLabelValues(reason).Add(float64(n))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
