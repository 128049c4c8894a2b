package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkhub"

// PrometheusRecorder exports metrics through a private registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	registrations      *prometheus.CounterVec
	logins             *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
	passwordRehashes   prometheus.Counter
	hashDuration       prometheus.Histogram
	profileCache       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with its own registry, including Go
// runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	// Private registry keeps tests and multiple instances isolated.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(registry)

	return &PrometheusRecorder{
		registry: registry,
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome",
		}, []string{"outcome"}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		tokenVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Access token verifications by result",
		}, []string{"result"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the IP rate limiter",
		}, []string{"scope"}),
		passwordRehashes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_rehashes_total",
			Help:      "Stored password hashes upgraded to current parameters",
		}),
		hashDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "password_hash_duration_seconds",
			Help:      "Time spent computing Argon2id hashes",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		profileCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_cache_requests_total",
			Help:      "Profile cache lookups by result",
		}, []string{"result"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		Registry: p.registry,
	})
}

// IncRegistration counts a registration attempt by outcome.
func (p *PrometheusRecorder) IncRegistration(outcome string) {
	p.registrations.WithLabelValues(outcome).Inc()
}

// IncLogin counts a login attempt by outcome.
func (p *PrometheusRecorder) IncLogin(outcome string) {
	p.logins.WithLabelValues(outcome).Inc()
}

// IncTokenVerification counts a token check by result.
func (p *PrometheusRecorder) IncTokenVerification(result string) {
	p.tokenVerifications.WithLabelValues(result).Inc()
}

// IncPasswordRehash increments the rehash counter.
func (p *PrometheusRecorder) IncPasswordRehash() {
	p.passwordRehashes.Inc()
}

// ObservePasswordHashDuration records hashing time.
func (p *PrometheusRecorder) ObservePasswordHashDuration(duration time.Duration) {
	p.hashDuration.Observe(duration.Seconds())
}

// IncProfileCacheHit increments cache hit counter.
func (p *PrometheusRecorder) IncProfileCacheHit() {
	p.profileCache.WithLabelValues("hit").Inc()
}

// IncProfileCacheMiss increments cache miss counter.
func (p *PrometheusRecorder) IncProfileCacheMiss() {
	p.profileCache.WithLabelValues("miss").Inc()
}

// IncRateLimited counts a rejected request by scope.
func (p *PrometheusRecorder) IncRateLimited(scope string) {
	p.rateLimited.WithLabelValues(scope).Inc()
}

// ObserveHTTPRequest records one served request. route must be a pattern,
// not a raw path, to keep label cardinality bounded.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
