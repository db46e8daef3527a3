package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the monitoring engine's collectors on a private registry so
// several instances (tests) never collide. A nil *Metrics is a no-op.
type Metrics struct {
	reg *prometheus.Registry

	SessionsActive  prometheus.Gauge
	SessionsStarted prometheus.Counter
	Ticks           prometheus.Counter
	ProbeFailures   prometheus.Counter
	StorageErrors   prometheus.Counter
	FanoutErrors    prometheus.Counter
	ProbeLatency    prometheus.Histogram
	Subscribers     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pingmonitor_sessions_active",
			Help: "Monitoring sessions currently running",
		}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingmonitor_sessions_started_total",
			Help: "Monitoring sessions started",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingmonitor_ticks_total",
			Help: "Probe pipelines issued",
		}),
		ProbeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingmonitor_probe_failures_total",
			Help: "Ticks whose probe did not get a reply",
		}),
		StorageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingmonitor_storage_errors_total",
			Help: "Outcome writes that failed",
		}),
		FanoutErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingmonitor_fanout_errors_total",
			Help: "Sends to subscribers that failed",
		}),
		ProbeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pingmonitor_probe_latency_ms",
			Help:    "Round-trip time of successful probes in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pingmonitor_subscribers_connected",
			Help: "Live transport connections",
		}),
	}
	m.reg.MustRegister(
		m.SessionsActive, m.SessionsStarted, m.Ticks, m.ProbeFailures,
		m.StorageErrors, m.FanoutErrors, m.ProbeLatency, m.Subscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

func (m *Metrics) SessionFinished() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.Ticks.Inc()
}

// Probe records one outcome; latency is ignored when nil.
func (m *Metrics) Probe(success bool, latency *float64) {
	if m == nil {
		return
	}
	if !success {
		m.ProbeFailures.Inc()
		return
	}
	if latency != nil {
		m.ProbeLatency.Observe(*latency)
	}
}

func (m *Metrics) StorageError() {
	if m == nil {
		return
	}
	m.StorageErrors.Inc()
}

func (m *Metrics) FanoutError() {
	if m == nil {
		return
	}
	m.FanoutErrors.Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.Subscribers.Set(float64(n))
}
