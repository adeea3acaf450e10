package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/pedido-service/internal/logger"
)

// StartDispatchLogConsumer connects to RabbitMQ, declares the
// pedido.dispatched queue (durable) and appends every event to
// <dir>/dispatch.log as a single line.  It runs a reconnect loop forever;
// messages that cannot be processed are rejected without requeue so the
// loop never spins on a poison message.
func StartDispatchLogConsumer(url, dir string) {
	log := logger.With("component", "dispatch-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dial broker failed", "err", err, "retry_in", backoff.String())
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, dir); err != nil {
			log.Warn("consume loop ended; reconnecting", "err", err)
		}
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func consumeLoop(conn *amqp.Connection, dir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.L().Warn("dispatch-consumer: set QoS failed", "err", err)
	}

	if _, err := ch.QueueDeclare(DispatchedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(DispatchedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := HandleMessage(dir, d.Body); err != nil {
			logger.L().Error("dispatch-consumer: handle message failed", "err", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleMessage decodes one event and appends its log line.
func HandleMessage(dir string, body []byte) error {
	var ev PedidoDispatchedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "dispatch.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders the human-friendly log line for ev.
func FormatLine(ev PedidoDispatchedEvent) string {
	outcome := "dispatched"
	if !ev.OK {
		outcome = "dispatch failed"
	}
	line := fmt.Sprintf("[%s] Pedido %s | pedido_id=%d | user_id=%d | product_id=%d | block=%q | quantity=%d",
		ev.DispatchedAt, outcome, ev.PedidoID, ev.UserID, ev.ProductID, ev.Block, ev.Quantity)
	if ev.Error != "" {
		line += fmt.Sprintf(" | error=%q", ev.Error)
	}
	return line + "\n"
}
