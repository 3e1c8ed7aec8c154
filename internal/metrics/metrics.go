package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/freedom_case_2/fire-router/internal/models"
)

// Collector records routing metrics. A nil *Collector is valid and records
// nothing.
type Collector struct {
	decisions      *prometheus.CounterVec
	classifyFailed prometheus.Counter
	assignErrors   prometheus.Counter
	assignDuration prometheus.Histogram
	batchTickets   prometheus.Gauge
}

// NewPrometheus registers the collectors on reg (prometheus.DefaultRegisterer
// if nil) under namespace ("fire" if empty).
func NewPrometheus(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "fire"
	}

	c := &Collector{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Routing decisions by selection strategy.",
		}, []string{"strategy"}),
		classifyFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_fallbacks_total",
			Help:      "Tickets routed with the neutral fallback classification.",
		}),
		assignErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_errors_total",
			Help:      "Assignment transactions rolled back.",
		}),
		assignDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assignment_duration_seconds",
			Help:      "Duration of one assignment transaction.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		batchTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_tickets",
			Help:      "Tickets picked up by the last processing run.",
		}),
	}
	reg.MustRegister(c.decisions, c.classifyFailed, c.assignErrors, c.assignDuration, c.batchTickets)
	return c
}

func (c *Collector) ObserveDecision(s models.Strategy) {
	if c == nil {
		return
	}
	c.decisions.WithLabelValues(string(s)).Inc()
}

func (c *Collector) ClassificationFallback() {
	if c == nil {
		return
	}
	c.classifyFailed.Inc()
}

func (c *Collector) AssignmentError() {
	if c == nil {
		return
	}
	c.assignErrors.Inc()
}

func (c *Collector) ObserveAssignment(d time.Duration) {
	if c == nil {
		return
	}
	c.assignDuration.Observe(d.Seconds())
}

func (c *Collector) BatchSize(n int) {
	if c == nil {
		return
	}
	c.batchTickets.Set(float64(n))
}
