// Package notify moves mail messages through the email queue: the API publishes them and
// the mail worker turns them into rendered emails.
package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/config"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type QueuePublisher struct {
	ch      amqpChannel
	queue   string
	timeout time.Duration
}

func NewQueuePublisher(cfg *config.Config, ch *amqp.Channel) *QueuePublisher {
	return &QueuePublisher{
		ch:      ch,
		queue:   cfg.RabbitMQ.Queue,
		timeout: time.Duration(cfg.RabbitMQ.PublishTimeout) * time.Second,
	}
}

// DeclareQueue declares the durable email queue shared by the API and the mail worker.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto delete
		false, // exclusive
		false, // no wait
		nil,
	)
}

func (p *QueuePublisher) Publish(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
