package event

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher sends auth events to RabbitMQ.  Publishing is best effort from
// the session manager's point of view: errors are logged and returned so
// the caller can ignore them without interrupting the request flow.  An
// empty URL disables publishing entirely.
type Publisher struct {
	URL    string
	Logger zerolog.Logger
}

func NewPublisher(url string, logger zerolog.Logger) *Publisher {
	return &Publisher{URL: url, Logger: logger}
}

// Publish marshals the event and delivers it to the auth.events queue.
// The queue is declared durable on every publish (idempotent) and messages
// are marked persistent.
func (p *Publisher) Publish(ctx context.Context, ev AuthEvent) error {
	if p.URL == "" {
		return nil
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Logger.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		p.Logger.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		QueueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		p.Logger.Warn().Err(err).Str("type", ev.Type).Msg("rabbitmq: publish failed")
		return err
	}

	return nil
}
