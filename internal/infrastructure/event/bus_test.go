package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poserp/accounting/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string, orgID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), orgID, "test"),
		Data:            "test data",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler, "TestEvent")

	event := newTestEvent("TestEvent", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newTestHandler("TestEvent")
	handler2 := newTestHandler("TestEvent")
	bus.Subscribe(handler1, "TestEvent")
	bus.Subscribe(handler2, "TestEvent")

	event := newTestEvent("TestEvent", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	wildcardHandler := newTestHandler() // no event types = wildcard
	bus.Subscribe(wildcardHandler)

	event := newTestEvent("AnyEventType", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, wildcardHandler.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newTestHandler("TestEvent")
	handler1.setError(errors.New("handler error"))
	handler2 := newTestHandler("TestEvent")
	bus.Subscribe(handler1, "TestEvent")
	bus.Subscribe(handler2, "TestEvent")

	event := newTestEvent("TestEvent", uuid.New())
	err := bus.Publish(context.Background(), event)

	// One failing handler must not block the others
	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

// panicHandler blows up on every event
type panicHandler struct{}

func (h *panicHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	panic("boom")
}

func (h *panicHandler) EventTypes() []string { return []string{"TestEvent"} }

func TestInMemoryEventBus_Publish_HandlerPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	survivor := newTestHandler("TestEvent")
	bus.Subscribe(&panicHandler{}, "TestEvent")
	bus.Subscribe(survivor, "TestEvent")

	err := bus.Publish(context.Background(), newTestEvent("TestEvent", uuid.New()))

	require.NoError(t, err)
	assert.Len(t, survivor.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_CancelledContext(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler, "TestEvent")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(ctx, newTestEvent("TestEvent", uuid.New()))

	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, handler.getHandled(), 0)
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("OtherEvent")
	bus.Subscribe(handler, "OtherEvent")

	event := newTestEvent("TestEvent", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 0)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler, "TestEvent")

	_ = bus.Publish(context.Background(), newTestEvent("TestEvent", uuid.New()))
	assert.Len(t, handler.getHandled(), 1)

	bus.Unsubscribe(handler)

	_ = bus.Publish(context.Background(), newTestEvent("TestEvent", uuid.New()))
	assert.Len(t, handler.getHandled(), 1) // still 1, not 2
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))

	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler, "TestEvent")
	require.NoError(t, bus.Publish(ctx, newTestEvent("TestEvent", uuid.New())))
	assert.Len(t, handler.getHandled(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}
