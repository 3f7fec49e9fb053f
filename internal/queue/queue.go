package queue

import (
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

type QueueName string

const (
	QueueEmail QueueName = "email-dispatch"
)

// Publisher pushes messages onto a single named queue over a shared
// connection, opening a fresh channel per publish.
type Publisher struct {
	queueName QueueName
	conn      *amqp.Connection
	log       *slog.Logger
}

func NewPublisher(conn *amqp.Connection, queueName QueueName) *Publisher {
	return &Publisher{
		queueName: queueName,
		conn:      conn,
		log:       slog.With("component", "queue", "queue", queueName),
	}
}

// EnsureQueueExists declares the queue so publishes don't end up in the void
// before the consumer side declares it.
func EnsureQueueExists(conn *amqp.Connection, queueName QueueName) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("couldn't open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		string(queueName), // name
		true,              // durable
		false,             // autoDelete
		false,             // exclusive
		false,             // noWait
		nil,               // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("couldn't declare queue: %w", err)
	}

	return ch, nil
}

func (p *Publisher) Publish(message []byte) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("couldn't open channel: %w", err)
	}
	defer ch.Close()

	err = ch.Publish(
		"",                  // default exchange, routes direct to queue
		string(p.queueName), // routing key = queue name
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        message,
		},
	)
	if err != nil {
		p.log.Error("Failed to publish", "message", message, "error", err)
		return err
	}

	return nil
}
