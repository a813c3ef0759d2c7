package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/service"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []service.LowStockAlert
}

func (r *recordingAlerts) LowStock(_ context.Context, a service.LowStockAlert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

type recordingHook struct {
	mu     sync.Mutex
	events []service.OrderPlaced
	err    error
}

func (h *recordingHook) OrderPlaced(_ context.Context, evt service.OrderPlaced) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
	return h.err
}

func sampleOrder() service.OrderPlaced {
	return service.OrderPlaced{
		OrderID:      uuid.New(),
		RestaurantID: uuid.New(),
		OrderNumber:  "ORD-001",
		TotalAmount:  decimal.RequireFromString("30.00"),
		Lines: []service.PlacedLine{
			{Kind: enum.LineKindMenuItem, ID: uuid.New(), Quantity: 2},
			{Kind: enum.LineKindMenuSet, ID: uuid.New(), Quantity: 1},
		},
		PlacedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_OrderPlaced(t *testing.T) {
	w := &fakeWriter{}
	evt := sampleOrder()

	require.NoError(t, NewPublisher(w).OrderPlaced(context.Background(), evt))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, evt.OrderID.String(), string(w.msgs[0].Key))

	var m Message
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &m))
	assert.Equal(t, TypeOrderPlaced, m.Type)
	assert.Equal(t, evt.OrderNumber, m.Order.OrderNumber)
	assert.Equal(t, evt.Lines, m.Order.Lines)
	assert.True(t, evt.TotalAmount.Equal(m.Order.TotalAmount))
}

func TestPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	err := NewPublisher(w).OrderPlaced(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish order ORD-001")
}

func TestPublisher_UnreachableBroker(t *testing.T) {
	w := &kafka.Writer{
		Addr:         kafka.TCP("localhost:99999"),
		Topic:        "orders",
		MaxAttempts:  1,
		WriteTimeout: 100 * time.Millisecond,
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, NewPublisher(w).OrderPlaced(ctx, sampleOrder()))
}

func TestConsumer_Handle(t *testing.T) {
	hook := &recordingHook{}
	c := NewConsumer(&fakeReader{}, hook)
	evt := sampleOrder()
	payload, _ := json.Marshal(Message{Type: TypeOrderPlaced, Order: &evt})

	c.Handle(context.Background(), kafka.Message{Value: []byte("not json")})
	c.Handle(context.Background(), kafka.Message{Value: []byte(`{"type":"order.paid"}`)})
	c.Handle(context.Background(), kafka.Message{Value: []byte(`{"type":"order.placed"}`)})
	c.Handle(context.Background(), kafka.Message{Value: payload})

	require.Len(t, hook.events, 1)
	assert.Equal(t, evt.OrderID, hook.events[0].OrderID)
	assert.Equal(t, evt.Lines, hook.events[0].Lines)
}

func TestConsumer_StartCommitsEveryMessage(t *testing.T) {
	order := sampleOrder()
	good, _ := json.Marshal(Message{Type: TypeOrderPlaced, Order: &order})
	r := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: good},
		{Offset: 2, Value: []byte("garbage")},
		{Offset: 3, Value: good},
	}}
	hook := &recordingHook{err: errors.New("inventory item not found")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- NewConsumer(r, hook).Start(ctx) }()

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.committed) == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.Equal(t, []int64{1, 2, 3}, r.committed)
	assert.Len(t, hook.events, 2)
}

func sampleAlert() service.LowStockAlert {
	return service.LowStockAlert{
		RestaurantID: uuid.New(),
		InventoryID:  uuid.New(),
		ItemName:     "Bun",
		CurrentStock: decimal.RequireFromString("2"),
		MinStock:     decimal.RequireFromString("5"),
	}
}

func TestPublisher_LowStock(t *testing.T) {
	w := &fakeWriter{}
	alert := sampleAlert()

	NewPublisher(w).LowStock(context.Background(), alert)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, alert.InventoryID.String(), string(w.msgs[0].Key))

	var m Message
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &m))
	assert.Equal(t, TypeLowStock, m.Type)
	assert.Nil(t, m.Order)
	require.NotNil(t, m.Alert)
	assert.Equal(t, alert.ItemName, m.Alert.ItemName)
}

func TestPublisher_LowStockWriteErrorIsSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	assert.NotPanics(t, func() { NewPublisher(w).LowStock(context.Background(), sampleAlert()) })
}

// The worker's alerts must reach whoever consumes the alerts topic.
func TestLowStockAlert_RelayedFromWorkerToServer(t *testing.T) {
	w := &fakeWriter{}
	alert := sampleAlert()
	NewPublisher(w).LowStock(context.Background(), alert)

	r := &fakeReader{queue: w.msgs}
	relay := &recordingAlerts{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- NewAlertConsumer(r, relay).Start(ctx) }()

	require.Eventually(t, func() bool {
		relay.mu.Lock()
		defer relay.mu.Unlock()
		return len(relay.alerts) == 1
	}, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := relay.alerts[0]
	assert.Equal(t, alert.RestaurantID, got.RestaurantID)
	assert.Equal(t, alert.InventoryID, got.InventoryID)
	assert.True(t, alert.CurrentStock.Equal(got.CurrentStock))
	assert.True(t, alert.MinStock.Equal(got.MinStock))
}

func TestConsumer_IgnoresTypesWithoutHandler(t *testing.T) {
	hook := &recordingHook{}
	alerts := &recordingAlerts{}
	order := sampleOrder()
	alert := sampleAlert()
	orderMsg, _ := json.Marshal(Message{Type: TypeOrderPlaced, Order: &order})
	alertMsg, _ := json.Marshal(Message{Type: TypeLowStock, Alert: &alert})

	orders := NewConsumer(&fakeReader{}, hook)
	orders.Handle(context.Background(), kafka.Message{Value: alertMsg})
	assert.Empty(t, hook.events)

	relay := NewAlertConsumer(&fakeReader{}, alerts)
	relay.Handle(context.Background(), kafka.Message{Value: orderMsg})
	assert.Empty(t, alerts.alerts)
}
