package alerting

import (
	"sync"
	"time"

	"github.com/listeverything/finder/internal/filter"
)

// Event names published on the bus.
const (
	EventAlertFiring  = "alert.firing"
	EventAlertCleared = "alert.cleared"
)

// AlertEvent describes an alert state transition.
type AlertEvent struct {
	EventName  string          `json:"event"`
	ContextKey string          `json:"context,omitempty"`
	AlertName  string          `json:"alert"`
	Priority   filter.Priority `json:"priority"`
	Count      int             `json:"count"`
	Culprits   []string        `json:"culprits,omitempty"`
	Tick       int64           `json:"tick"`
	Timestamp  time.Time       `json:"timestamp"`
}

// AlertEventHandler processes alert events.
type AlertEventHandler func(event *AlertEvent)

const (
	// eventBusBufferSize is the capacity of the async event channel.
	// Events are dropped if the buffer is full to avoid blocking callers.
	eventBusBufferSize = 1000
)

// AlertEventBus is an async pub/sub for alert events. Publish is non-blocking:
// events are sent to a buffered channel and processed by a worker goroutine,
// so the tick path is never blocked by notification delivery.
type AlertEventBus struct {
	handlers []AlertEventHandler
	mu       sync.RWMutex
	eventCh  chan *AlertEvent
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewAlertEventBus creates a new alert event bus and starts its worker.
func NewAlertEventBus() *AlertEventBus {
	b := &AlertEventBus{
		handlers: make([]AlertEventHandler, 0),
		eventCh:  make(chan *AlertEvent, eventBusBufferSize),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go b.processLoop()
	return b
}

// Subscribe registers a handler for alert events.
func (b *AlertEventBus) Subscribe(handler AlertEventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish enqueues an event for async processing. If the buffer is full the
// event is dropped. Events are silently dropped after Stop() has been called.
func (b *AlertEventBus) Publish(event *AlertEvent) {
	select {
	case <-b.stopCh:
		return
	default:
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	default:
	}
}

// Stop shuts down the worker goroutine after the queue is drained.
// Safe to call multiple times.
func (b *AlertEventBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	<-b.doneCh
}

func (b *AlertEventBus) processLoop() {
	defer close(b.doneCh)
	for {
		select {
		case event := <-b.eventCh:
			b.dispatch(event)
		case <-b.stopCh:
			for {
				select {
				case event := <-b.eventCh:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *AlertEventBus) dispatch(event *AlertEvent) {
	b.mu.RLock()
	handlers := make([]AlertEventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, event)
	}
}

// safeCall invokes a handler with panic recovery so a panicking handler
// cannot kill the event bus goroutine.
func (b *AlertEventBus) safeCall(handler AlertEventHandler, event *AlertEvent) {
	defer func() {
		recover() //nolint:errcheck // handlers do their own logging
	}()
	handler(event)
}
