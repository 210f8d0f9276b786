package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AuditQueueName is the durable queue carrying auth lifecycle events.
const AuditQueueName = "auth.audit"

// StartAuditConsumer connects to RabbitMQ, declares the auth.audit queue
// and consumes events, writing each as a structured log line. It runs a
// reconnect loop with exponential backoff and never returns under normal
// operation; malformed messages are rejected without requeue so the
// consumer cannot wedge on a poison message.
func StartAuditConsumer(url string, log zerolog.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("audit consumer: broker dial failed")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, log); err != nil {
			log.Warn().Err(err).Msg("audit consumer: consume loop ended, reconnecting")
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, log); err != nil {
			log.Error().Err(err).Msg("audit consumer: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, log zerolog.Logger) error {
	var ev AuthEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	entry := log.Info().
		Str("audit", ev.Type).
		Uint64("user_id", ev.UserID).
		Str("at", ev.At)
	switch ev.Type {
	case EventUserRegistered:
		entry = entry.Str("email", ev.Email).Str("role", ev.Role)
	case EventSessionRevoked:
		entry = entry.Str("token_id", ev.TokenID).Str("reason", ev.Reason)
	}
	entry.Msg("auth event")
	return nil
}
