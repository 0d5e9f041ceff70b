package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkflowMetrics exposes counters/histograms for the care-episode workflow.
type WorkflowMetrics struct {
	triageTotal      *prometheus.CounterVec
	triageLatency    *prometheus.HistogramVec
	fulfillmentTotal *prometheus.CounterVec
	reorderTotal     *prometheus.CounterVec
	urgentAlerts     prometheus.Counter
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	m := &WorkflowMetrics{
		triageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "janjeevan",
			Subsystem: "triage",
			Name:      "verdicts_total",
			Help:      "Total triage verdicts by provider and severity",
		}, []string{"provider", "severity"}),
		triageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "janjeevan",
			Subsystem: "triage",
			Name:      "classify_latency_seconds",
			Help:      "Latency of symptom classification",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		fulfillmentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "janjeevan",
			Subsystem: "pharmacy",
			Name:      "fulfillments_total",
			Help:      "Total prescription fulfillment attempts by outcome",
		}, []string{"outcome"}),
		reorderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "janjeevan",
			Subsystem: "pharmacy",
			Name:      "reorders_total",
			Help:      "Total reorder requests created by trigger",
		}, []string{"trigger"}),
		urgentAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "janjeevan",
			Subsystem: "appointments",
			Name:      "urgent_alerts_total",
			Help:      "Total urgent-case notifications attempted",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.triageTotal, m.triageLatency, m.fulfillmentTotal, m.reorderTotal, m.urgentAlerts)
	return m
}

func (m *WorkflowMetrics) ObserveTriage(provider, severity string, seconds float64) {
	if m == nil {
		return
	}
	m.triageTotal.WithLabelValues(provider, severity).Inc()
	m.triageLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *WorkflowMetrics) ObserveFulfillment(outcome string) {
	if m == nil {
		return
	}
	m.fulfillmentTotal.WithLabelValues(outcome).Inc()
}

func (m *WorkflowMetrics) ObserveReorder(trigger string) {
	if m == nil {
		return
	}
	m.reorderTotal.WithLabelValues(trigger).Inc()
}

func (m *WorkflowMetrics) ObserveUrgentAlert() {
	if m == nil {
		return
	}
	m.urgentAlerts.Inc()
}
