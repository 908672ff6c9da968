package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "errorhandler"

// PrometheusMetrics implements MetricsCollector on top of client_golang.
//
// Metrics:
//   - errorhandler_messages_total{stage}: transport message counters
//   - errorhandler_route_failures_total{route,outcome}: route failures by resolution
type PrometheusMetrics struct {
	messages      *prometheus.CounterVec
	routeFailures *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "messages_total",
				Help:      "Total number of messages by pipeline stage",
			},
			[]string{"stage"},
		),
		routeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "route_failures_total",
				Help:      "Total number of route failures by resolution outcome",
			},
			[]string{"route", "outcome"},
		),
	}

	reg.MustRegister(pm.messages, pm.routeFailures)
	return pm
}

func (p *PrometheusMetrics) IncPublished() {
	p.messages.WithLabelValues("published").Inc()
}

func (p *PrometheusMetrics) IncPublishFailed() {
	p.messages.WithLabelValues("publish_failed").Inc()
}

func (p *PrometheusMetrics) IncReceived() {
	p.messages.WithLabelValues("received").Inc()
}

func (p *PrometheusMetrics) IncProcessed() {
	p.messages.WithLabelValues("processed").Inc()
}

func (p *PrometheusMetrics) IncFailed() {
	p.messages.WithLabelValues("failed").Inc()
}

func (p *PrometheusMetrics) IncRetried() {
	p.messages.WithLabelValues("retried").Inc()
}

func (p *PrometheusMetrics) IncSentToDLQ() {
	p.messages.WithLabelValues("dlq").Inc()
}

func (p *PrometheusMetrics) IncFailureHandled(routeID string) {
	p.routeFailures.WithLabelValues(routeID, "handled").Inc()
}

func (p *PrometheusMetrics) IncFailureUnhandled(routeID string) {
	p.routeFailures.WithLabelValues(routeID, "unhandled").Inc()
}
