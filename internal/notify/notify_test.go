package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

type recordingChannel struct {
	key  string
	msgs []amqp.Publishing
	err  error
}

func (c *recordingChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	c.key = key
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestQueuePublisherRoundTrip(t *testing.T) {
	ch := &recordingChannel{}
	p := &QueuePublisher{ch: ch, queue: "email_queue", timeout: time.Second}

	err := p.Publish(context.Background(), domain.MailMessage{
		Type: domain.MailReviewStageChanged,
		To:   "alice@example.com",
		Data: domain.ReviewStageChangedMailData{
			EmployeeName: "Alice",
			ReviewID:     7,
			From:         domain.StagePendingReview,
			To:           domain.StageReviewScheduled,
		},
	})
	require.NoError(t, err)
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "email_queue", ch.key)
	assert.Equal(t, "application/json", ch.msgs[0].ContentType)

	env, err := Decode(ch.msgs[0].Body)
	require.NoError(t, err)
	assert.Equal(t, domain.MailReviewStageChanged, env.Type)
	assert.Equal(t, "alice@example.com", env.To)

	data, ok := env.Data.(*domain.ReviewStageChangedMailData)
	require.True(t, ok)
	assert.Equal(t, int64(7), data.ReviewID)
	assert.Equal(t, domain.StageReviewScheduled, data.To)
}

func TestQueuePublisherPropagatesErrors(t *testing.T) {
	boom := errors.New("channel closed")
	p := &QueuePublisher{ch: &recordingChannel{err: boom}, queue: "email_queue", timeout: time.Second}

	err := p.Publish(context.Background(), domain.MailMessage{Type: domain.MailWelcome, To: "a@example.com"})
	assert.ErrorIs(t, err, boom)
}

func TestDecodeRejectsBadMessages(t *testing.T) {
	_, err := Decode([]byte("{"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"reset_password","to":"a@example.com"}`))
	assert.ErrorIs(t, err, ErrUnknownMailType)

	_, err = Decode([]byte(`{"type":"welcome","to":""}`))
	assert.Error(t, err)
}

func TestTemplatesRender(t *testing.T) {
	ts, err := LoadTemplates("../../templates")
	require.NoError(t, err)

	body, err := json.Marshal(domain.MailMessage{
		Type: domain.MailVerifyEmail,
		To:   "bob@example.com",
		Data: domain.VerifyEmailMailData{FullName: "Bob Lee", OTP: "123456", Expiration: 15},
	})
	require.NoError(t, err)

	env, err := Decode(body)
	require.NoError(t, err)

	tmpl, subject, err := ts.Lookup(env.Type)
	require.NoError(t, err)
	assert.Contains(t, subject, "Verify")

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, env.Data))
	assert.Contains(t, buf.String(), "123456")
	assert.Contains(t, buf.String(), "Bob Lee")

	_, _, err = ts.Lookup("unknown")
	assert.ErrorIs(t, err, ErrUnknownMailType)
}

func TestBuildMessage(t *testing.T) {
	ts, err := LoadTemplates("../../templates")
	require.NoError(t, err)

	env := &Envelope{
		Type: domain.MailWelcome,
		To:   "carol@example.com",
		Data: &domain.WelcomeMailData{FullName: "Carol White", Username: "carol"},
	}

	m, err := ts.BuildMessage("hr@example.com", env)
	require.NoError(t, err)
	assert.Equal(t, []string{"Talentum - Welcome aboard"}, m.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "carol@example.com")

	env.To = "not an address"
	_, err = ts.BuildMessage("hr@example.com", env)
	assert.Error(t, err)
}
