package mvauth

import (
	"context"
	"log"
	"sync"
)

// Hook event names. Filters transform payloads and may veto the operation;
// actions are fire-and-forget notifications.
const (
	// EventLogin fires as a filter before credential verification and as
	// an action after the status gate, verification, and session issuance
	// (Meta.Status "fail" or "success").
	EventLogin = "auth.login"
	// EventJWT fires as a filter over access-token claims before signing.
	EventJWT = "auth.jwt"
)

// HookMeta carries operation context into filters and actions.
type HookMeta struct {
	Status   string
	UserID   string
	Provider string
	Type     string
}

// FilterFunc transforms a payload. Returning an error aborts the operation
// and propagates to the caller (still subject to the stall).
type FilterFunc func(ctx context.Context, payload Payload, meta HookMeta) (Payload, error)

// ActionFunc observes an event. Actions cannot veto and their panics are
// contained.
type ActionFunc func(ctx context.Context, payload Payload, meta HookMeta)

// Emitter is the engine's event bus. Filters and actions run synchronously
// in registration order. Registration is safe concurrently with emission,
// but is intended to happen before the engine serves traffic.
type Emitter struct {
	mu      sync.RWMutex
	filters map[string][]FilterFunc
	actions map[string][]ActionFunc
}

// NewEmitter creates an empty event bus.
func NewEmitter() *Emitter {
	return &Emitter{
		filters: make(map[string][]FilterFunc),
		actions: make(map[string][]ActionFunc),
	}
}

// OnFilter registers a filter for event. Filters run in registration order,
// each receiving the previous filter's output.
func (e *Emitter) OnFilter(event string, fn FilterFunc) {
	if e == nil || fn == nil {
		return
	}
	e.mu.Lock()
	e.filters[event] = append(e.filters[event], fn)
	e.mu.Unlock()
}

// OnAction registers an action for event.
func (e *Emitter) OnAction(event string, fn ActionFunc) {
	if e == nil || fn == nil {
		return
	}
	e.mu.Lock()
	e.actions[event] = append(e.actions[event], fn)
	e.mu.Unlock()
}

// EmitFilter runs the filter chain for event over payload. The first error
// aborts the chain. The returned payload is the chain's final output; with
// no filters registered it is the input payload unchanged.
func (e *Emitter) EmitFilter(ctx context.Context, event string, payload Payload, meta HookMeta) (Payload, error) {
	if e == nil {
		return payload, nil
	}

	e.mu.RLock()
	chain := e.filters[event]
	e.mu.RUnlock()

	var err error
	for _, fn := range chain {
		payload, err = fn(ctx, payload, meta)
		if err != nil {
			return nil, err
		}
	}

	return payload, nil
}

// EmitAction notifies all actions registered for event. A panicking action
// is logged and does not affect the operation or later actions.
func (e *Emitter) EmitAction(ctx context.Context, event string, payload Payload, meta HookMeta) {
	if e == nil {
		return
	}

	e.mu.RLock()
	chain := e.actions[event]
	e.mu.RUnlock()

	for _, fn := range chain {
		runAction(ctx, fn, event, payload, meta)
	}
}

func runAction(ctx context.Context, fn ActionFunc, event string, payload Payload, meta HookMeta) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("mvauth: action hook for %s panicked: %v", event, r)
		}
	}()
	fn(ctx, payload, meta)
}
