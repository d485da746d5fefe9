package metrics

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "esquery"

// Fetch outcomes
const (
	OutcomeLoaded  = "loaded"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// Recorder counts HTTP round-trips and cluster fetches. A nil Recorder records nothing.
type Recorder struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fetches         *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them on registerer
func NewRecorder(registerer prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests sent to clusters by method and status code, 0 for transport failures.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests sent to clusters.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cluster_fetch_total",
			Help:      "Number of cluster state fetches by outcome.",
		}, []string{"outcome"}),
	}

	for _, collector := range []prometheus.Collector{r.requests, r.requestDuration, r.fetches} {
		if err := registerer.Register(collector); err != nil {
			return nil, errors.Wrap(err, "failed to register metrics")
		}
	}
	return r, nil
}

// ObserveRequest records one HTTP round-trip
func (r *Recorder) ObserveRequest(method string, code int, duration time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	r.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveFetch records the outcome of one cluster fetch
func (r *Recorder) ObserveFetch(outcome string) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(outcome).Inc()
}
