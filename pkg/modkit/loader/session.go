package loader

import (
	stderrors "errors"
	"fmt"
	"slices"

	"github.com/randalmurphal/modkit/pkg/modkit/errors"
	"github.com/randalmurphal/modkit/pkg/modkit/event"
	"github.com/randalmurphal/modkit/pkg/modkit/module"
)

// attachment is one session-scoped instance registered with the event registry.
type attachment struct {
	module   *module.Manager
	listener event.Listener
	types    []*event.Type

	// committed is the instance the module held before the session,
	// restored on detach.
	committed any
}

// sessionBinder creates session-scoped instances on join, drops them on
// leave and recycles them on world switch.
type sessionBinder struct {
	loader    *Loader
	handlers  []*event.Handler
	current   *event.Session
	listeners []deferredListener
	attached  []attachment
}

func newSessionBinder(l *Loader) (*sessionBinder, error) {
	lc := l.lifecycle
	b := &sessionBinder{loader: l}
	b.handlers = []*event.Handler{
		event.Method("sessionJoin", lc.Join.Type(), func(b *sessionBinder, e event.JoinEvent) error {
			return b.join(e.Session)
		}),
		event.Method("sessionLeave", lc.Leave.Type(), func(b *sessionBinder, _ event.LeaveEvent) error {
			b.leave()
			return nil
		}),
		event.Method("sessionWorldSwitch", lc.WorldSwitch.Type(), func(b *sessionBinder, e event.WorldSwitchEvent) error {
			b.leave()
			return b.join(e.Session)
		}),
	}
	for _, p := range []*event.Poster{lc.Join, lc.Leave, lc.WorldSwitch} {
		if err := l.events.AddListener(b, p.Type()); err != nil {
			return nil, fmt.Errorf("bind session lifecycle: %w", err)
		}
	}
	return b, nil
}

// Handlers implements event.Listener.
func (b *sessionBinder) Handlers() []*event.Handler {
	return b.handlers
}

func (b *sessionBinder) active() bool {
	return b.current != nil
}

func (b *sessionBinder) join(s event.Session) error {
	if b.current != nil {
		b.leave()
	}
	b.current = &s

	var errs []error
	for _, m := range b.loader.live.Values() {
		if m.IsSingleton() || !m.Enabled() {
			continue
		}
		if err := b.attachModule(m); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range b.listeners {
		if err := b.attachListener(d); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (b *sessionBinder) leave() {
	for _, a := range b.attached {
		for _, t := range a.types {
			b.loader.events.RemoveListener(a.listener, t)
		}
		if a.module != nil {
			a.module.SetInstance(a.committed)
		}
	}
	b.attached = nil
	b.current = nil
}

// addListener defers a session listener, attaching it at once when a
// session is active.
func (b *sessionBinder) addListener(d deferredListener) {
	b.listeners = append(b.listeners, d)
	if b.active() {
		if err := b.attachListener(d); err != nil {
			b.loader.logger.Warn("session listener not attached", "unit", d.unit, "error", err.Error())
		}
	}
}

func (b *sessionBinder) attachListener(d deferredListener) error {
	var listener event.Listener
	err := errors.Invoke(d.unit, "session listener construction", func() error {
		listener = d.create()
		if listener == nil {
			return fmt.Errorf("constructor returned nil")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := addAll(b.loader.events, listener, d.accepts); err != nil {
		return &errors.ConfigurationError{Unit: d.unit, Reason: "cannot register session listener", Err: err}
	}
	b.attached = append(b.attached, attachment{listener: listener, types: d.accepts})
	return nil
}

func (b *sessionBinder) attachModule(m *module.Manager) error {
	var committed any
	if m.AlwaysInstantiate() {
		committed = m.Instance()
	}
	inst, err := m.Instantiate()
	if err != nil {
		return err
	}
	types := m.SubscribedEvents()
	var listener event.Listener
	if len(types) > 0 {
		var ok bool
		listener, ok = inst.(event.Listener)
		if !ok {
			m.SetInstance(committed)
			return errors.Configuration(m.String(), "instance %T subscribes to events but has no handlers", inst)
		}
		if err := addAll(b.loader.events, listener, types); err != nil {
			m.SetInstance(committed)
			return err
		}
	}
	b.attached = append(b.attached, attachment{module: m, listener: listener, types: types, committed: committed})
	return nil
}

func (b *sessionBinder) detachModule(m *module.Manager) {
	i := slices.IndexFunc(b.attached, func(a attachment) bool { return a.module == m })
	if i < 0 {
		return
	}
	a := b.attached[i]
	for _, t := range a.types {
		b.loader.events.RemoveListener(a.listener, t)
	}
	m.SetInstance(a.committed)
	b.attached = slices.Delete(b.attached, i, i+1)
}
