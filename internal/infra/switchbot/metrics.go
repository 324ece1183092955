package switchbot

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records request counts and latency per endpoint template.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "switchbot_api_requests_total",
			Help: "SwitchBot API requests by method, endpoint and status code",
		}, []string{"method", "endpoint", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "switchbot_api_request_duration_seconds",
			Help:    "SwitchBot API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.requests.Describe(ch)
	m.duration.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.requests.Collect(ch)
	m.duration.Collect(ch)
}

func (m *Metrics) observe(method, path, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	endpoint := endpointTemplate(path)
	m.requests.WithLabelValues(method, endpoint, code).Inc()
	m.duration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// endpointTemplate replaces the device id segment so label cardinality stays bounded.
func endpointTemplate(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	// "", "v1.1", "devices", "{id}", ...
	if len(parts) > 3 && parts[2] == "devices" && parts[3] != "" {
		parts[3] = "{id}"
	}
	return strings.Join(parts, "/")
}
