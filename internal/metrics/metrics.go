// Package metrics exposes pipeline counters to Prometheus. Every method is
// safe to call on a nil *Metrics, so components can take one optionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons.
const (
	DropFull      = "full"
	DropCoalesced = "coalesced"
)

// Control update results.
const (
	ControlAcked    = "acked"
	ControlRejected = "rejected"
	ControlFailed   = "failed"
)

// Metrics holds the registered collectors.
type Metrics struct {
	Offered       prometheus.Counter
	Dropped       *prometheus.CounterVec
	Rendered      prometheus.Counter
	Control       *prometheus.CounterVec
	Reconnects    prometheus.Counter
	Malformed     prometheus.Counter
	QueueLength   prometheus.Gauge
	State         prometheus.Gauge
	Instances     prometheus.Counter
	ForcedDetach  prometheus.Counter
	TerminateTime prometheus.Histogram
}

// New builds the collectors and registers them on reg. Passing nil uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Offered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotstream_blocks_offered_total",
			Help: "Blocks accepted by the delivery channel.",
		}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plotstream_blocks_dropped_total",
			Help: "Blocks discarded before reaching the renderer, by reason.",
		}, []string{"reason"}),
		Rendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotstream_blocks_rendered_total",
			Help: "Blocks rendered on the UI loop.",
		}),
		Control: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plotstream_control_updates_total",
			Help: "Gain updates sent to the running source, by result.",
		}, []string{"result"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotstream_network_reconnects_total",
			Help: "Network feed reconnect attempts.",
		}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotstream_network_malformed_total",
			Help: "Network messages replaced by the fallback block.",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plotstream_queue_length",
			Help: "Blocks currently buffered in the delivery channel.",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plotstream_pipeline_state",
			Help: "Lifecycle state of the current pipeline instance (0 idle .. 4 terminated).",
		}),
		Instances: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotstream_pipeline_instances_total",
			Help: "Pipeline instances started.",
		}),
		ForcedDetach: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotstream_pipeline_forced_detach_total",
			Help: "Instances abandoned after the terminate timeout.",
		}),
		TerminateTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plotstream_terminate_seconds",
			Help:    "Time from draining to terminated.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
	reg.MustRegister(
		m.Offered, m.Dropped, m.Rendered, m.Control, m.Reconnects, m.Malformed,
		m.QueueLength, m.State, m.Instances, m.ForcedDetach, m.TerminateTime,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) BlockOffered() {
	if m == nil {
		return
	}
	m.Offered.Inc()
}

func (m *Metrics) BlocksDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Dropped.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) BlockRendered() {
	if m == nil {
		return
	}
	m.Rendered.Inc()
}

func (m *Metrics) ControlUpdate(result string) {
	if m == nil {
		return
	}
	m.Control.WithLabelValues(result).Inc()
}

func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

func (m *Metrics) MalformedMessage() {
	if m == nil {
		return
	}
	m.Malformed.Inc()
}

func (m *Metrics) SetQueueLength(n int) {
	if m == nil {
		return
	}
	m.QueueLength.Set(float64(n))
}

// SetState records the numeric lifecycle state.
func (m *Metrics) SetState(s int) {
	if m == nil {
		return
	}
	m.State.Set(float64(s))
}

func (m *Metrics) InstanceStarted() {
	if m == nil {
		return
	}
	m.Instances.Inc()
}

// Terminated records how long draining took and whether it timed out.
func (m *Metrics) Terminated(d time.Duration, forced bool) {
	if m == nil {
		return
	}
	m.TerminateTime.Observe(d.Seconds())
	if forced {
		m.ForcedDetach.Inc()
	}
}
