package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMailerWritesStructuredEntry(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: logger.FormatJSON})
	m := NewLogMailer(logg, "no-reply@example.com", nil)

	err := m.Send(context.Background(), PasswordResetEmail("alice@example.com", "123456", "1h0m0s"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"mail_to":"alice@example.com"`)
	assert.Contains(t, out, `"mail_from":"no-reply@example.com"`)
	assert.Contains(t, out, `"mail_template":"password_reset"`)
	assert.Contains(t, out, "123456")
}

func TestLogMailerRejectsMissingRecipient(t *testing.T) {
	reg := prometheus.NewRegistry()
	mm := metrics.NewMailerMetrics(reg)
	m := NewLogMailer(logger.Nop(), "from@example.com", mm)

	err := m.Send(context.Background(), Message{Subject: "hi"})
	assert.Error(t, err)
	count, gatherErr := testutil.GatherAndCount(reg, "mailer_failed_total")
	require.NoError(t, gatherErr)
	assert.Equal(t, 1, count)
}

func TestVerificationEmailCarriesLink(t *testing.T) {
	msg := VerificationEmail("bob@example.com", "http://localhost/verify?token=abc")
	assert.Equal(t, TemplateEmailVerification, msg.Template)
	assert.Equal(t, "http://localhost/verify?token=abc", msg.Data["link"])
	assert.True(t, strings.Contains(msg.Body, "token=abc"))
}

type fakeResult struct {
	id  string
	err error
}

func (r fakeResult) Get(context.Context) (string, error) { return r.id, r.err }

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
	stopped  bool
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return fakeResult{id: "srv-1", err: p.err}
}

func (p *fakePublisher) Stop() { p.stopped = true }

func TestPubSubMailerPublishesJSONTask(t *testing.T) {
	pub := &fakePublisher{}
	m := newPubSubMailer(pub, "no-reply@example.com", logger.Nop(), nil)

	err := m.Send(context.Background(), VerificationEmail("alice@example.com", "http://x/verify?token=t"))
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	var task Message
	require.NoError(t, json.Unmarshal(pub.messages[0].Data, &task))
	assert.Equal(t, "alice@example.com", task.To)
	assert.Equal(t, "no-reply@example.com", task.From)
	assert.Equal(t, TemplateEmailVerification, pub.messages[0].Attributes["template"])

	require.NoError(t, m.Close())
	assert.True(t, pub.stopped)
}

func TestPubSubMailerSurfacesPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("unavailable")}
	m := newPubSubMailer(pub, "from@example.com", nil, nil)

	err := m.Send(context.Background(), PasswordResetEmail("alice@example.com", "000111", "1h"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish email task")
}

func TestNewPubSubMailerRequiresPublisher(t *testing.T) {
	_, err := NewPubSubMailer(nil, "from@example.com", nil, nil)
	assert.Error(t, err)
}
