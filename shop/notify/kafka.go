package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/shop/orders"
)

// OrderEvent is the message published for every new order.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Item      string    `json:"item"`
	Price     int64     `json:"price"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"time"`
}

// NewOrderEvent converts o into its published form.
func NewOrderEvent(o orders.Order) OrderEvent {
	return OrderEvent{
		Type:      "order_created",
		OrderID:   o.ID.String(),
		UserID:    o.UserID,
		Email:     o.Email,
		Item:      o.Item,
		Price:     o.Price,
		Currency:  o.Currency,
		CreatedAt: o.CreatedAt.UTC(),
	}
}

// NewKafkaProducer connects a synchronous producer waiting for all replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "petertrain-bot"
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("notify: kafka producer: %w", err)
	}
	return producer, nil
}

// EventHook publishes order_created events keyed by order id.
type EventHook struct {
	producer sarama.SyncProducer
	topic    string
}

// NewEventHook returns a post-commit hook publishing to topic.
func NewEventHook(producer sarama.SyncProducer, topic string) *EventHook {
	if topic == "" {
		topic = "orders"
	}
	return &EventHook{producer: producer, topic: topic}
}

// Name identifies the hook in logs.
func (h *EventHook) Name() string { return "order_event" }

// OrderCreated implements the post-commit hook contract.
func (h *EventHook) OrderCreated(ctx context.Context, o orders.Order) error {
	payload, err := json.Marshal(NewOrderEvent(o))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: h.topic,
		Key:   sarama.StringEncoder(o.ID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte("order_created")},
		},
	}
	if rid := logger.RIDFrom(ctx); rid != "" {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte("rid"), Value: []byte(rid)})
	}

	partition, offset, err := h.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	logger.Info(ctx, component, "event.published",
		slog.String("topic", h.topic),
		slog.String("order_id", o.ID.String()),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}

// Close releases the producer.
func (h *EventHook) Close() error {
	return h.producer.Close()
}
