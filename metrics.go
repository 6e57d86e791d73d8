package ucpschema

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the optional instrumentation a driver can be given to count
// validate outcomes and time schema resolution. It is off by default: a Driver with a nil *Metrics
// field skips every call below.
type Metrics struct {
	ValidateTotal    *prometheus.CounterVec
	ResolveDurations prometheus.Histogram
}

// NewMetrics registers the counters against reg and returns a Metrics ready
// to pass to DriverOptions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ValidateTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ucp_validate_total",
			Help: "Count of validate runs by result.",
		}, []string{"result"}),
		ResolveDurations: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "ucp_resolve_duration_seconds",
			Help: "Time spent resolving and bundling a schema, in seconds.",
		}),
	}
}

func (m *Metrics) observeValidate(result string) {
	if m == nil {
		return
	}
	m.ValidateTotal.WithLabelValues(result).Inc()
}

// MetricsHandler returns an http.Handler serving the registered metrics in the
// Prometheus exposition format, for wiring behind --metrics-addr.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
