package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter dispatches events synchronously on the caller's
// goroutine. Handlers subscribe to a set of event types, or to every type
// when registered without any; each event reaches its subscribers in
// registration order.
type InMemoryEventEmitter struct {
	mu     sync.RWMutex
	routes map[string][]EventHandler
	all    []EventHandler
	order  map[EventHandler]int
	logger *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no subscribers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		routes: make(map[string][]EventHandler),
		order:  make(map[EventHandler]int),
		logger: logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler subscribes handler to eventTypes. With no eventTypes the
// handler receives every event. Registering the same handler for a type
// twice has no further effect.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, eventTypes ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.order[handler]; !ok {
		e.order[handler] = len(e.order)
	}

	if len(eventTypes) == 0 {
		if !contains(e.all, handler) {
			e.all = append(e.all, handler)
		}
	}
	for _, t := range eventTypes {
		if !contains(e.routes[t], handler) {
			e.routes[t] = append(e.routes[t], handler)
		}
	}

	e.logger.Debug("registered event handler",
		"event_types", eventTypes,
		"handler_count", len(e.order))
}

// subscribers returns the handlers for eventType in registration order.
func (e *InMemoryEventEmitter) subscribers(eventType string) []EventHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()

	typed := e.routes[eventType]
	out := make([]EventHandler, 0, len(typed)+len(e.all))
	out = append(out, typed...)
	for _, h := range e.all {
		if !contains(typed, h) {
			out = append(out, h)
		}
	}

	// merge typed and catch-all subscribers back into registration order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && e.order[out[j]] < e.order[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// EmitEvent delivers event to its subscribers. A failing handler does not
// stop delivery to the rest; the first error is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	handlers := e.subscribers(event.Type)

	if len(handlers) == 0 {
		e.logger.Debug("no subscribers for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	e.logger.Debug("emitting event",
		"event_id", event.ID,
		"event_type", event.Type,
		"handler_count", len(handlers))

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func contains(handlers []EventHandler, h EventHandler) bool {
	for _, x := range handlers {
		if x == h {
			return true
		}
	}
	return false
}
