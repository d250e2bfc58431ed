package events

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/streadway/amqp"
)

type AMQP struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQP connects and declares one durable queue per topic.
func NewAMQP(url string) (*AMQP, error) {
	if url == "" {
		return nil, fmt.Errorf("events: AMQP_URL is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, topic := range Topics {
		if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare %s: %w", topic, err)
		}
	}

	return &AMQP{conn: conn, channel: ch}, nil
}

func (a *AMQP) Publish(ctx context.Context, topic, key string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encode(event)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	a.mu.Lock()
	defer a.mu.Unlock()

	err = a.channel.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    key,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (a *AMQP) Close() error {
	var errs []error
	if a.channel != nil {
		if err := a.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("rabbitmq close: %v", errs)
	}
	return nil
}
