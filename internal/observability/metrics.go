package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	rampInitiatedCounter  *prometheus.CounterVec
	callbackCounter       *prometheus.CounterVec
	contractMirrorCounter prometheus.Counter
	investmentCounter     *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		rampInitiatedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ramp_transactions_initiated_total",
			Help: "Ramp initiation attempts by direction and outcome",
		}, []string{"direction", "outcome"})

		callbackCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_callback_events_total",
			Help: "Provider callback ingestion outcomes",
		}, []string{"outcome"})

		contractMirrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contract_mirror_failures_total",
			Help: "Contract status mirror attempts that failed",
		})

		investmentCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investment_transitions_total",
			Help: "Investment lifecycle transitions",
		}, []string{"from", "to"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			rampInitiatedCounter,
			callbackCounter,
			contractMirrorCounter,
			investmentCounter,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncRampInitiated(direction, outcome string) {
	if rampInitiatedCounter == nil {
		return
	}
	rampInitiatedCounter.WithLabelValues(direction, outcome).Inc()
}

func IncCallbackEvent(outcome string) {
	if callbackCounter == nil {
		return
	}
	callbackCounter.WithLabelValues(outcome).Inc()
}

func IncContractMirrorFailure() {
	if contractMirrorCounter == nil {
		return
	}
	contractMirrorCounter.Inc()
}

func IncInvestmentTransition(from, to string) {
	if investmentCounter == nil {
		return
	}
	investmentCounter.WithLabelValues(from, to).Inc()
}

func IncIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
