package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/vowsuite/vowsuite-api/internal/queue"
)

// AMQPPublisher emits auth lifecycle events to RabbitMQ. Publishing is
// fire-and-forget from the request's perspective: it runs on its own
// goroutine and any failure is logged, never surfaced to the caller.
type AMQPPublisher struct {
	url string
	log zerolog.Logger
}

func NewAMQPPublisher(url string, log zerolog.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log}
}

func (p *AMQPPublisher) UserRegistered(userID uint64, email, role string) {
	p.emit(queue.AuthEvent{
		Type:   queue.EventUserRegistered,
		UserID: userID,
		Email:  email,
		Role:   role,
	})
}

func (p *AMQPPublisher) SessionRevoked(userID uint64, tokenID, reason string) {
	p.emit(queue.AuthEvent{
		Type:    queue.EventSessionRevoked,
		UserID:  userID,
		TokenID: tokenID,
		Reason:  reason,
	})
}

func (p *AMQPPublisher) emit(ev queue.AuthEvent) {
	ev.At = time.Now().UTC().Format(time.RFC3339)
	go func() {
		if err := p.publish(ev); err != nil {
			p.log.Warn().Err(err).Str("type", ev.Type).Msg("auth event publish failed")
		}
	}()
}

// publish opens a short-lived connection per event. Auth events are rare
// enough (a handful per session) that connection reuse is not worth the
// channel bookkeeping.
func (p *AMQPPublisher) publish(ev queue.AuthEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(queue.AuditQueueName, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(ctx,
		"",                   // default exchange
		queue.AuditQueueName, // routing key = queue name
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
}
