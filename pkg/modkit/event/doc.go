// Package event registers event types and dispatches posted payloads to
// grouped listeners.
//
// # Event Types
//
// An event type is registered once per registry and receives a stable index
// in registration order:
//
//	reg := event.NewRegistry()
//	ping, err := reg.RegisterType("ping")
//	if err != nil {
//	    return err
//	}
//	err = ping.Post(PingEvent{Seq: 1})
//
// Registering the same name twice is a configuration error. A type may name
// a parent with WithParent; a handler whose parameter is the parent type is
// eligible for every descendant.
//
// # Listeners and Handlers
//
// A Listener exposes its handlers in declaration order. Handlers are shared
// values, usually one per listener kind, created with Method:
//
//	var onPing = event.Method("OnPing", pingType, func(l *Counter, e PingEvent) error {
//	    l.n++
//	    return nil
//	})
//
//	func (c *Counter) Handlers() []*event.Handler { return []*event.Handler{onPing} }
//
// A handler is eligible for an event type when its Accepts list contains the
// type, or, with no Accepts list, when it takes exactly one parameter that is
// assignable from the type.
//
// # Listener Groups
//
// Listeners whose eligible handler sets are equal (order-independent) share a
// Group. Groups are found by a fingerprint of handler identities and confirmed
// by set equality. Handler signatures are validated only when a group is
// created.
//
// # Dispatch
//
// Post walks groups in creation order and, within each group, every member in
// the order it joined, invoking the group's handlers in declaration order.
// Membership is copy-on-write: a handler that adds or removes listeners only
// affects later posts. The first failing handler aborts the post and its
// error is returned as an *errors.InvocationError.
//
// # Concurrency
//
// A Registry is not safe for concurrent use. It is owned by the host's
// controlling goroutine.
package event
