// Package session tracks the host's current session and posts the
// lifecycle events that drive session-scoped modules and listeners.
package session

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/modkit/pkg/modkit/errors"
	"github.com/randalmurphal/modkit/pkg/modkit/event"
)

// Handle identifies one session. A new handle is issued on every join and
// world switch.
type Handle = event.Session

// Tracker owns the current session.
type Tracker struct {
	lifecycle *event.Lifecycle
	current   *Handle
	newID     func() string
	logger    *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithIDGenerator replaces the uuid session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) {
		t.newID = fn
	}
}

// NewTracker creates a tracker posting through lc.
func NewTracker(lc *event.Lifecycle, opts ...Option) *Tracker {
	t := &Tracker{
		lifecycle: lc,
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Current returns the active session.
func (t *Tracker) Current() (Handle, bool) {
	if t.current == nil {
		return Handle{}, false
	}
	return *t.current, true
}

// Join starts a session in world and posts a join event. The session is
// current before handlers run, and stays current if a handler fails.
func (t *Tracker) Join(world string) (Handle, error) {
	if t.current != nil {
		return Handle{}, t.illegal("Join", "joined", "idle")
	}
	h := Handle{ID: t.newID(), World: world}
	t.current = &h
	t.logger.Debug("session joined", slog.String("session", h.ID), slog.String("world", world))
	return h, t.lifecycle.Join.Post(event.JoinEvent{Session: h})
}

// SwitchWorld moves the current session to world under a new handle and
// posts a world switch event.
func (t *Tracker) SwitchWorld(world string) (Handle, error) {
	if t.current == nil {
		return Handle{}, t.illegal("SwitchWorld", "idle", "joined")
	}
	h := Handle{ID: t.newID(), World: world}
	t.current = &h
	t.logger.Debug("session switched world", slog.String("session", h.ID), slog.String("world", world))
	return h, t.lifecycle.WorldSwitch.Post(event.WorldSwitchEvent{Session: h})
}

// Leave ends the current session and posts a leave event.
func (t *Tracker) Leave() error {
	if t.current == nil {
		return t.illegal("Leave", "idle", "joined")
	}
	t.logger.Debug("session left", slog.String("session", t.current.ID))
	t.current = nil
	return t.lifecycle.Leave.Post(event.LeaveEvent{})
}

func (t *Tracker) illegal(op, phase, expected string) error {
	return &errors.IllegalStateError{Op: op, Phase: phase, Expected: []string{expected}}
}
