// Package metrics exposes Prometheus collectors for dropscout.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	verificationsTotal         *prometheus.CounterVec
	publishTotal               *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	profileCacheTotal          *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		verificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropscout_verifications_total",
				Help: "Ownership verification outcomes, labeled by reason.",
			},
			[]string{"reason"},
		)

		publishTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropscout_publish_total",
				Help: "Thread publish attempts, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dropscout_fetch_duration_seconds",
				Help:    "Landing page fetch latency, labeled by mode.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 12, 30},
			},
			[]string{"mode"},
		)

		profileCacheTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropscout_profile_cache_total",
				Help: "Profile lookup cache results.",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropscout_http_requests_total",
				Help: "Admin API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dropscout_http_request_duration_seconds",
				Help:    "Admin API latency, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dropscout_rate_limit_delay_seconds",
				Help:    "Time spent waiting on outbound rate limiters.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 15},
			},
			[]string{"limiter"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveVerification counts one verifier outcome.
func ObserveVerification(reason string) {
	Init()
	verificationsTotal.WithLabelValues(reason).Inc()
}

// ObservePublish counts a publish attempt.
func ObservePublish(kind string, err error) {
	Init()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	publishTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveFetch records how long a landing page fetch took.
func ObserveFetch(headless bool, duration time.Duration) {
	Init()
	mode := "probe"
	if headless {
		mode = "headless"
	}
	fetchDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveProfileCache counts a profile cache hit or miss.
func ObserveProfileCache(hit bool) {
	Init()
	result := "miss"
	if hit {
		result = "hit"
	}
	profileCacheTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(limiter string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(limiter).Observe(duration.Seconds())
}

// Push sends the default registry to a Pushgateway. Batch commands call it
// once before exiting.
func Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
