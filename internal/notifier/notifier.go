// Package notifier consumes order events and delivers push notifications via
// the push provider's REST API. Failures are logged and the message is left
// to the provider's own retry policy; this worker never blocks the payment
// flow.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/snackly/payments-service/internal/notify"
)

type Config struct {
	Brokers []string
	GroupID string

	// Push provider REST settings.
	PushURL string
	AppID   string
	RESTKey string
}

type Notifier struct {
	reader *kafka.Reader
	http   *http.Client
	cfg    Config
}

func New(cfg Config) *Notifier {
	if cfg.GroupID == "" {
		cfg.GroupID = "payments-notifier"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    notify.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Notifier{
		reader: reader,
		http:   &http.Client{Timeout: 10 * time.Second},
		cfg:    cfg,
	}
}

func (n *Notifier) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		n.consumeAndDeliver(ctx)
	}
}

func (n *Notifier) Close() {
	if err := n.reader.Close(); err != nil {
		fmt.Printf("error closing reader: %v\n", err)
	}
}

func (n *Notifier) consumeAndDeliver(ctx context.Context) {
	m, err := n.reader.ReadMessage(ctx)
	if err != nil {
		fmt.Printf("error reading message: %v\n", err)
		return
	}

	var event notify.OrderConfirmedEvent
	if errUnmarshal := json.Unmarshal(m.Value, &event); errUnmarshal != nil {
		fmt.Printf("error parsing message: %v\n", errUnmarshal)
		return
	}

	if errDeliver := n.deliver(ctx, &event); errDeliver != nil {
		fmt.Printf("failed to deliver notification for order %s: %v\n", event.OrderID, errDeliver)
	}
}

func (n *Notifier) deliver(ctx context.Context, event *notify.OrderConfirmedEvent) error {
	body, err := json.Marshal(map[string]any{
		"app_id":           n.cfg.AppID,
		"include_aliases":  map[string][]string{"external_id": {event.Phone}},
		"target_channel":   "push",
		"headings":         map[string]string{"en": "Order confirmed"},
		"contents":         map[string]string{"en": fmt.Sprintf("Your order is confirmed. Amount: ₹%.2f", float64(event.Amount)/100)},
		"custom_data":      map[string]string{"order_id": event.OrderID},
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.PushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+n.cfg.RESTKey)

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("push call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}
	return nil
}
