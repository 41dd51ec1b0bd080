package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpDurationHistogram    *prometheus.HistogramVec
	adjustmentJobCounter     *prometheus.CounterVec
	discrepancyCounter       prometheus.Counter
	resolutionFailureCounter prometheus.Counter
	webhookCounter           *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		adjustmentJobCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "balance_adjustment_jobs_total",
			Help: "Balance adjustment job outcomes",
		}, []string{"result"})

		discrepancyCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "balance_adjustment_discrepancies_total",
			Help: "Adjustments whose re-read balance diverged from the expected value",
		})

		resolutionFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipient_resolution_failures_total",
			Help: "Order recipients that did not resolve to a known account",
		})

		webhookCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_webhooks_total",
			Help: "Order-completed webhook outcomes",
		}, []string{"outcome"})

		prometheus.MustRegister(
			httpDurationHistogram,
			adjustmentJobCounter,
			discrepancyCounter,
			resolutionFailureCounter,
			webhookCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementAdjustmentJob(result string) {
	if adjustmentJobCounter == nil {
		return
	}
	adjustmentJobCounter.WithLabelValues(result).Inc()
}

func IncrementDiscrepancy() {
	if discrepancyCounter == nil {
		return
	}
	discrepancyCounter.Inc()
}

func IncrementRecipientResolutionFailure() {
	if resolutionFailureCounter == nil {
		return
	}
	resolutionFailureCounter.Inc()
}

func IncrementWebhook(outcome string) {
	if webhookCounter == nil {
		return
	}
	webhookCounter.WithLabelValues(outcome).Inc()
}
