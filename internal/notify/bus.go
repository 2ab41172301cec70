package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType identifies one of the closed set of dashboard events.
type EventType string

const (
	EventRequestCreated EventType = "request.created"
	EventRequestUpdated EventType = "request.updated"
	EventRequestDeleted EventType = "request.deleted"

	EventClientCreated EventType = "client.created"
	EventClientUpdated EventType = "client.updated"
	EventClientDeleted EventType = "client.deleted"

	EventDashboardRefresh EventType = "dashboard.refresh"
	EventBulkCompleted    EventType = "bulk.completed"
)

// Event is what subscribers receive. The bus never transports changed data,
// only the notification; listeners re-fetch from the authoritative store.
type Event struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	EmittedAt time.Time   `json:"emitted_at"`
}

// RefreshPayload accompanies the periodic dashboard.refresh tick.
type RefreshPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// Handler is a subscriber callback. Handlers run synchronously on the
// emitting goroutine, in registration order.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process typed publish/subscribe registry with one shared
// low-frequency refresh ticker. The ticker is reference counted across all
// event types: it starts when the first listener appears anywhere on the bus
// and stops when the last one unsubscribes.
type Bus struct {
	log             *zap.Logger
	refreshInterval time.Duration

	mu          sync.Mutex
	nextID      uint64
	subscribers map[EventType][]*subscription
	listeners   int
	stopTicker  chan struct{}
}

func NewBus(log *zap.Logger, refreshInterval time.Duration) *Bus {
	return &Bus{
		log:             log,
		refreshInterval: refreshInterval,
		subscribers:     make(map[EventType][]*subscription),
	}
}

// On registers a callback for an event type and returns its unsubscribe
// function. Unsubscribing twice is a no-op.
func (b *Bus) On(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, handler: handler}
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)

	b.listeners++
	if b.listeners == 1 {
		b.startTickerLocked()
	}

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(eventType, sub.id) })
	}
}

// Emit synchronously invokes every callback registered for the event type in
// registration order. A panicking callback is recovered and logged without
// stopping the remaining callbacks.
func (b *Bus) Emit(eventType EventType, payload interface{}) {
	b.mu.Lock()
	subs := make([]*subscription, len(b.subscribers[eventType]))
	copy(subs, b.subscribers[eventType])
	b.mu.Unlock()

	event := Event{Type: eventType, Payload: payload, EmittedAt: time.Now()}
	for _, sub := range subs {
		b.invoke(sub, event)
	}
}

func (b *Bus) invoke(sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("notification subscriber panicked",
				zap.String("event", string(event.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	sub.handler(event)
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			b.listeners--
			break
		}
	}

	if b.listeners == 0 {
		b.stopTickerLocked()
	}
}

func (b *Bus) startTickerLocked() {
	if b.refreshInterval <= 0 {
		return
	}

	stop := make(chan struct{})
	b.stopTicker = stop

	go func() {
		ticker := time.NewTicker(b.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				b.Emit(EventDashboardRefresh, RefreshPayload{Timestamp: now})
			case <-stop:
				return
			}
		}
	}()
}

func (b *Bus) stopTickerLocked() {
	if b.stopTicker != nil {
		close(b.stopTicker)
		b.stopTicker = nil
	}
}

// Close stops the shared ticker and drops all subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers = make(map[EventType][]*subscription)
	b.listeners = 0
	b.stopTickerLocked()
}
