package metrics

import "github.com/prometheus/client_golang/prometheus"

// MailerMetrics counts outgoing email deliveries per template.
type MailerMetrics struct {
	sent   *prometheus.CounterVec
	failed *prometheus.CounterVec
}

// NewMailerMetrics registers the mailer counters on the provided registerer.
func NewMailerMetrics(reg prometheus.Registerer) *MailerMetrics {
	if reg == nil {
		return &MailerMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailer_sent_total",
		Help: "Emails handed to the delivery transport.",
	}, []string{"template"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailer_failed_total",
		Help: "Emails the transport rejected.",
	}, []string{"template"})
	reg.MustRegister(sent, failed)
	return &MailerMetrics{sent: sent, failed: failed}
}

func (m *MailerMetrics) IncSent(template string) {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.WithLabelValues(normalizeLabel(template)).Inc()
}

func (m *MailerMetrics) IncFailed(template string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(template)).Inc()
}
