package event

import (
	"fmt"
	"slices"
)

// Handler is one handler member of a listener kind.
//
// Handlers are compared by pointer identity. Listeners of the same kind
// should return the same *Handler values so that they share a Group.
type Handler struct {
	// Name identifies the handler in errors and logs.
	Name string

	// Accepts is an explicit list of event types. When non-empty, the handler
	// is eligible exactly for the listed types.
	Accepts []*Type

	// Params are the declared parameter types. A valid handler has exactly one.
	Params []*Type

	// Static marks a handler that is not bound to a listener instance.
	// Static handlers are rejected.
	Static bool

	// Fn is invoked with the receiving listener and the posted payload.
	Fn func(l Listener, evt any) error
}

// Listener is any value with one or more handlers. Listeners are compared
// with ==, so implementations should be pointers.
type Listener interface {
	// Handlers returns the handler members in declaration order.
	Handlers() []*Handler
}

// eligible reports whether h should receive events of type t.
func (h *Handler) eligible(t *Type) bool {
	if len(h.Accepts) > 0 {
		return slices.Contains(h.Accepts, t)
	}
	return len(h.Params) == 1 && h.Params[0] != nil && h.Params[0].AssignableFrom(t)
}

// validate checks the signature of h for dispatching events of type t.
func (h *Handler) validate(t *Type) error {
	switch {
	case h.Fn == nil:
		return fmt.Errorf("handler %s is not callable", h.Name)
	case h.Static:
		return fmt.Errorf("handler %s is static", h.Name)
	case len(h.Params) != 1:
		return fmt.Errorf("handler %s takes %d parameters, want 1", h.Name, len(h.Params))
	case h.Params[0] == nil || !h.Params[0].AssignableFrom(t):
		return fmt.Errorf("handler %s parameter %v is not assignable from %s", h.Name, h.Params[0], t.name)
	}
	return nil
}

// Method creates a handler bound to listeners of type L receiving payloads
// of type E for events of param (and its descendants).
func Method[L Listener, E any](name string, param *Type, fn func(L, E) error) *Handler {
	return &Handler{
		Name:   name,
		Params: []*Type{param},
		Fn: func(l Listener, evt any) error {
			recv, ok := l.(L)
			if !ok {
				return fmt.Errorf("listener %T is not a %T", l, *new(L))
			}
			payload, ok := evt.(E)
			if !ok {
				return fmt.Errorf("payload %T is not a %T", evt, *new(E))
			}
			return fn(recv, payload)
		},
	}
}

// funcListener is an ad-hoc listener owning a single handler.
type funcListener struct {
	handler *Handler
}

// Handlers implements Listener.
func (f *funcListener) Handlers() []*Handler {
	return []*Handler{f.handler}
}

// Listen creates a listener with one handler for events of type t.
// Every call produces a distinct handler, so each such listener gets its
// own group.
func Listen(name string, t *Type, fn func(evt any) error) Listener {
	return &funcListener{handler: &Handler{
		Name:   name,
		Params: []*Type{t},
		Fn: func(_ Listener, evt any) error {
			return fn(evt)
		},
	}}
}
