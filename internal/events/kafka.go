package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/restodesk/api/internal/service"
	"github.com/segmentio/kafka-go"
)

// Message types. order.placed travels on the orders topic and
// inventory.low_stock on the alerts topic.
const (
	TypeOrderPlaced = "order.placed"
	TypeLowStock    = "inventory.low_stock"
)

// Message is the JSON envelope written to Kafka. Exactly one body is set,
// matching Type.
type Message struct {
	Type  string                 `json:"type"`
	Order *service.OrderPlaced   `json:"order,omitempty"`
	Alert *service.LowStockAlert `json:"alert,omitempty"`
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewWriter returns a writer for topic. Messages with the same key land on
// the same partition.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewReader returns a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// --- Publisher ---

// Publisher writes events to one topic. As a service.OrderPlacedHook it
// hands stock consumption to a worker; as a service.LowStockNotifier it
// lets the worker's alerts reach the server's websocket clients.
type Publisher struct {
	Writer MessageWriter
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{Writer: w}
}

func (p *Publisher) OrderPlaced(ctx context.Context, evt service.OrderPlaced) error {
	payload, err := json.Marshal(Message{Type: TypeOrderPlaced, Order: &evt})
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", evt.OrderNumber, err)
	}
	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderID.String()),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("publish order %s: %w", evt.OrderNumber, err)
	}
	return nil
}

// LowStock publishes the alert keyed by inventory item. Failures are logged;
// the sweep in cmd/server announces the item again later.
func (p *Publisher) LowStock(ctx context.Context, alert service.LowStockAlert) {
	payload, err := json.Marshal(Message{Type: TypeLowStock, Alert: &alert})
	if err != nil {
		log.Printf("ERROR: marshal low stock %s: %v", alert.InventoryID, err)
		return
	}
	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.InventoryID.String()),
		Value: payload,
	}); err != nil {
		log.Printf("ERROR: publish low stock %s: %v", alert.InventoryID, err)
	}
}

// --- Consumer ---

// Consumer reads messages and dispatches them by type: placed orders to
// Hook, usually a *service.InventoryConsumer, and low-stock alerts to Alerts.
// Offsets are committed after dispatch, whether or not it failed; a failed
// order is logged and not retried.
type Consumer struct {
	Reader MessageReader
	Hook   service.OrderPlacedHook
	Alerts service.LowStockNotifier
}

func NewConsumer(r MessageReader, hook service.OrderPlacedHook) *Consumer {
	return &Consumer{Reader: r, Hook: hook}
}

// NewAlertConsumer relays low-stock alerts from the alerts topic.
func NewAlertConsumer(r MessageReader, alerts service.LowStockNotifier) *Consumer {
	return &Consumer{Reader: r, Alerts: alerts}
}

// Start consumes until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	log.Println("Starting kafka consumer...")
	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Printf("ERROR: kafka fetch: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		c.Handle(ctx, msg)

		if err := c.Reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Printf("ERROR: kafka commit offset %d: %v", msg.Offset, err)
		}
	}
}

// Handle decodes one message and dispatches it. Bad messages and types this
// consumer has no handler for are skipped.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) {
	var m Message
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		log.Printf("WARN: kafka skip offset %d: %v", msg.Offset, err)
		return
	}
	switch {
	case m.Type == TypeOrderPlaced && m.Order != nil && c.Hook != nil:
		c.handleOrder(ctx, *m.Order)
	case m.Type == TypeLowStock && m.Alert != nil && c.Alerts != nil:
		c.Alerts.LowStock(ctx, *m.Alert)
	default:
		log.Printf("WARN: kafka skip offset %d: unhandled type %q", msg.Offset, m.Type)
	}
}

func (c *Consumer) handleOrder(ctx context.Context, order service.OrderPlaced) {
	if err := c.Hook.OrderPlaced(ctx, order); err != nil {
		log.Printf("ERROR: consume order %s: %v", order.OrderNumber, err)
		return
	}
	log.Printf("INFO: consumed order %s (%d lines)", order.OrderNumber, len(order.Lines))
}
