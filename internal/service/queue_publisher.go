package service

// Domain events are published to RabbitMQ on a best-effort basis.  Errors
// are logged and returned so callers can ignore them without interrupting
// the request.

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/pedido-service/internal/logger"
	"github.com/iliyamo/pedido-service/internal/queue"
)

// EventPublisher publishes pedido.dispatched events.
type EventPublisher interface {
	PublishPedidoDispatched(ctx context.Context, ev queue.PedidoDispatchedEvent) error
}

// AMQPPublisher dials the broker per event.  Submissions are small and
// infrequent enough that a pooled channel is not worth its lifecycle.
type AMQPPublisher struct {
	URL string
}

func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{URL: url} }

// PublishPedidoDispatched declares the durable queue and publishes ev as a
// persistent JSON message on the default exchange.
func (p *AMQPPublisher) PublishPedidoDispatched(ctx context.Context, ev queue.PedidoDispatchedEvent) error {
	log := logger.With("component", "rabbitmq", "pedido_id", ev.PedidoID)
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Warn("dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent. Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue.DispatchedQueue, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		log.Warn("queue declare failed", "err", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(ctx,
		"",                    // default exchange
		queue.DispatchedQueue, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		log.Warn("publish failed", "err", err)
		return err
	}
	return nil
}
