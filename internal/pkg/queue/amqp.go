package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// AMQPQueue is a durable RabbitMQ queue consumed with manual acks.
type AMQPQueue struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
}

func NewAMQPQueue(url, queueName string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPQueue{conn: conn, channel: ch, queueName: queueName}, nil
}

func (q *AMQPQueue) Push(ctx context.Context, msg *DispatchMessage) error {
	body, err := encode(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return q.channel.PublishWithContext(
		ctx,
		"",          // default exchange
		q.queueName, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Consume runs handler for each delivery until ctx is done or the channel closes.
func (q *AMQPQueue) Consume(ctx context.Context, prefetch int, handler Handler) error {
	if err := q.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := q.channel.Consume(
		q.queueName,
		"",
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			handleDelivery(ctx, d, handler)
		}
	}
}

// handleDelivery acks processed messages and drops undecodable ones.
// Handler errors are acked too: a failed dispatch already marks the job failed.
func handleDelivery(ctx context.Context, d amqp.Delivery, handler Handler) {
	msg, err := decode(d.Body)
	if err != nil {
		log.Error().Err(err).Msg("invalid dispatch message")
		d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		log.Error().Err(err).Str("job_id", msg.JobID).Msg("dispatch handler failed")
	}
	d.Ack(false)
}

func (q *AMQPQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
