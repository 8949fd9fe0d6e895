// Package events publishes order lifecycle notifications to Kafka for
// downstream consumers (notifications, analytics). Delivery is fire-and
// forget: the storefront never blocks a checkout on the broker.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/order"
)

// Event types carried in the envelope.
const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
)

const producerName = "storefront-api"

// Envelope wraps every published event with routing metadata.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

// OrderPayload describes a placed or cancelled order.
type OrderPayload struct {
	OrderID     int64            `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	UserID      int64            `json:"user_id"`
	Items       []order.LineItem `json:"items"`
	Total       string           `json:"total"`
	Status      order.Status     `json:"status"`
}

// StatusPayload describes a status transition.
type StatusPayload struct {
	OrderID int64        `json:"order_id"`
	Status  order.Status `json:"status"`
}

var _ order.Events = (*Publisher)(nil)

// Publisher implements order.Events on top of an async Kafka writer.
// Write errors are logged through the completion callback and otherwise
// dropped; the order flow must not depend on the broker.
type Publisher struct {
	w  *kafka.Writer
	lg *zap.Logger
}

// NewPublisher creates a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, lg *zap.Logger) *Publisher {
	p := &Publisher{lg: lg}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				p.lg.Warn("Event publish failed",
					zap.Int("messages", len(messages)),
					zap.Error(err),
				)
			}
		},
	}
	return p
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// OrderPlaced publishes an OrderPlaced event.
func (p *Publisher) OrderPlaced(ctx context.Context, o *order.Order) {
	p.publish(ctx, EventOrderPlaced, o.ID, orderPayload(o))
}

// OrderStatusChanged publishes an OrderStatusChanged event.
func (p *Publisher) OrderStatusChanged(ctx context.Context, id int64, status order.Status) {
	p.publish(ctx, EventOrderStatusChanged, id, StatusPayload{OrderID: id, Status: status})
}

// OrderCancelled publishes an OrderCancelled event.
func (p *Publisher) OrderCancelled(ctx context.Context, o *order.Order) {
	p.publish(ctx, EventOrderCancelled, o.ID, orderPayload(o))
}

func orderPayload(o *order.Order) OrderPayload {
	return OrderPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Items:       o.Items,
		Total:       o.Total.StringFixed(2),
		Status:      o.Status,
	}
}

// publish wraps the payload in an envelope keyed by order ID, so all events
// of one order land in the same partition in order.
func (p *Publisher) publish(ctx context.Context, eventType string, orderID int64, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		p.lg.Warn("Event payload marshal failed", zap.String("type", eventType), zap.Error(err))
		return
	}
	env, err := json.Marshal(Envelope{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Producer:   producerName,
		Payload:    raw,
	})
	if err != nil {
		p.lg.Warn("Event envelope marshal failed", zap.String("type", eventType), zap.Error(err))
		return
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(orderID, 10)),
		Value: env,
		Time:  time.Now(),
	})
	if err != nil {
		// Async writer only errors here on closed writer or context issues.
		p.lg.Warn("Event enqueue failed", zap.String("type", eventType), zap.Error(err))
	}
}
