package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/metrics"
)

const defaultPublishTimeout = 10 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	Stop()
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubMailer publishes each message as a JSON email task; a separate
// delivery worker owns the SMTP/provider integration.
type PubSubMailer struct {
	publisher publisher
	from      string
	logg      *logger.Logger
	metrics   *metrics.MailerMetrics
	timeout   time.Duration
}

// NewPubSubMailer wraps a GCP publisher handle for the email task topic.
func NewPubSubMailer(p *gcppubsub.Publisher, from string, logg *logger.Logger, m *metrics.MailerMetrics) (*PubSubMailer, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return newPubSubMailer(&gcpPublisher{Publisher: p}, from, logg, m), nil
}

func newPubSubMailer(p publisher, from string, logg *logger.Logger, m *metrics.MailerMetrics) *PubSubMailer {
	return &PubSubMailer{
		publisher: p,
		from:      from,
		logg:      logg,
		metrics:   m,
		timeout:   defaultPublishTimeout,
	}
}

func (m *PubSubMailer) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		m.metrics.IncFailed(msg.Template)
		return err
	}
	msg = withFrom(msg, m.from)

	payload, err := json.Marshal(msg)
	if err != nil {
		m.metrics.IncFailed(msg.Template)
		return fmt.Errorf("encode email task: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	result := m.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"template": msg.Template,
		},
	})
	serverID, err := result.Get(publishCtx)
	if err != nil {
		m.metrics.IncFailed(msg.Template)
		return fmt.Errorf("publish email task: %w", err)
	}

	if m.logg != nil {
		m.logg.Info(m.logg.WithFields(ctx, map[string]any{
			"mail_template": msg.Template,
			"message_id":    serverID,
		}), "email task published")
	}
	m.metrics.IncSent(msg.Template)
	return nil
}

// Close flushes pending publishes. The pubsub client itself is owned by the caller.
func (m *PubSubMailer) Close() error {
	m.publisher.Stop()
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
