// Package notify publishes order events to the notification pipeline. The
// payment flow enqueues and forgets; delivery retries are the consumer's
// problem.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/snackly/payments-service/internal/domain"
)

const Topic = "order-events"

type OrderConfirmedEvent struct {
	EventType string    `json:"event_type"`
	OrderID   string    `json:"order_id"`
	Phone     string    `json:"phone"`
	Amount    int64     `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w}
}

func (p *Publisher) PublishOrderConfirmed(ctx context.Context, order *domain.Order) error {
	event := OrderConfirmedEvent{
		EventType: "order_confirmed",
		OrderID:   order.ID.String(),
		Phone:     order.Phone,
		Amount:    order.TotalAmount,
		PaidAt:    time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID.String()), // order id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
