package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"crm_assistant_backend/platform/logger"
)

// InMemoryBus is a simple synchronous/asynchronous in-process event bus.
// Suitable for a single-binary deployment; handlers run in the same process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all subscribed handlers in a background
// goroutine. Handler errors are logged, not propagated.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	handlers := b.handlersFor(event.EventName())
	if len(handlers) == 0 {
		return
	}

	// Detach from the request context so in-flight handlers survive the
	// originating HTTP request.
	go func() {
		for _, h := range handlers {
			b.dispatch(context.WithoutCancel(ctx), event, h)
		}
	}()
}

// PublishSync dispatches the event and waits for every handler, returning the
// combined error.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range b.handlersFor(event.EventName()) {
		if err := b.dispatch(ctx, event, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryBus) handlersFor(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[eventName]...)
}

func (b *InMemoryBus) dispatch(ctx context.Context, event Event, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
			b.log.Error("event_handler_panic", "event", event.EventName(), "panic", fmt.Sprint(r))
		}
	}()

	if err := h.Handle(ctx, event); err != nil {
		b.log.Error("event_handler_error", "event", event.EventName(), "error", err.Error())
		return err
	}
	return nil
}
