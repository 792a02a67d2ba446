package notification

import (
	"context"
	"encoding/json"

	"account/config"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the subset of *amqp.Channel the sender needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpSender publishes emails to a RabbitMQ topic exchange for an external mail worker
type amqpSender struct {
	conn       *amqp.Connection
	ch         amqpChannel
	exchange   string
	routingKey string
}

// NewAMQPSender dials the broker and declares the durable topic exchange.
func NewAMQPSender(cfg *config.MailConfig) (Sender, error) {
	if cfg.AMQP.URL == "" || cfg.AMQP.Exchange == "" {
		return nil, errors.New("url and exchange are required for amqp provider")
	}

	conn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(cfg.AMQP.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, errors.Wrap(err, "declare exchange")
	}

	return &amqpSender{
		conn:       conn,
		ch:         ch,
		exchange:   cfg.AMQP.Exchange,
		routingKey: cfg.AMQP.RoutingKey,
	}, nil
}

func (s *amqpSender) Send(ctx context.Context, email *Email) error {
	body, err := json.Marshal(email)
	if err != nil {
		return errors.Wrap(err, "failed to marshal email")
	}

	err = s.ch.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(email.Kind),
		Body:         body,
	})
	if err != nil {
		return errors.Wrap(err, "failed to publish email")
	}

	return nil
}

func (s *amqpSender) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return errors.WithStack(s.conn.Close())
	}

	return nil
}
