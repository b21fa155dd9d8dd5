package mailer

import (
	"context"

	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/metrics"
)

// LogMailer writes messages to the structured log instead of delivering them.
// Used in development and whenever no transport is configured.
type LogMailer struct {
	logg    *logger.Logger
	from    string
	metrics *metrics.MailerMetrics
}

func NewLogMailer(logg *logger.Logger, from string, m *metrics.MailerMetrics) *LogMailer {
	return &LogMailer{logg: logg, from: from, metrics: m}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		m.metrics.IncFailed(msg.Template)
		return err
	}
	msg = withFrom(msg, m.from)

	if m.logg != nil {
		ctx = m.logg.WithFields(ctx, map[string]any{
			"mail_from":     msg.From,
			"mail_to":       msg.To,
			"mail_subject":  msg.Subject,
			"mail_template": msg.Template,
			"mail_body":     msg.Body,
		})
		m.logg.Info(ctx, "email delivered to log")
	}
	m.metrics.IncSent(msg.Template)
	return nil
}
