package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TopicUser    = "user_events"
	TopicProduct = "product_events"
	TopicCart    = "cart_events"
	TopicOrder   = "order_events"
)

var Topics = []string{TopicUser, TopicProduct, TopicCart, TopicOrder}

type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

func New(typ string, data map[string]any) Event {
	return Event{Type: typ, OccurredAt: time.Now().UTC(), Data: data}
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
	Close() error
}

func encode(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("events: json.Marshal failed: %w", err)
	}
	return data, nil
}

type Noop struct{}

func (Noop) Publish(context.Context, string, string, Event) error { return nil }
func (Noop) Close() error                                         { return nil }

// Open picks a publisher by backend name: kafka, amqp or none.
func Open(backend string, kafkaBrokers []string, amqpURL string) (Publisher, error) {
	switch backend {
	case "kafka":
		if len(kafkaBrokers) == 0 {
			return nil, fmt.Errorf("events: KAFKA_BROKERS is empty")
		}
		return NewKafka(kafkaBrokers), nil
	case "amqp", "rabbitmq":
		return NewAMQP(amqpURL)
	case "", "none", "noop":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("events: unknown backend %q", backend)
	}
}
