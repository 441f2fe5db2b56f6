package event

import (
	"fmt"
)

// Lifecycle event type names.
const (
	LifecycleName   = "lifecycle"
	JoinName        = "lifecycle.join"
	LeaveName       = "lifecycle.leave"
	WorldSwitchName = "lifecycle.world_switch"
)

// Session identifies one connection to a world.
type Session struct {
	// ID is unique per join.
	ID string

	// World names the world the session is in.
	World string
}

// JoinEvent is posted when a session starts.
type JoinEvent struct {
	Session Session
}

// LeaveEvent is posted when the current session ends.
type LeaveEvent struct{}

// WorldSwitchEvent is posted when the current session moves to another world.
type WorldSwitchEvent struct {
	Session Session
}

// Lifecycle holds the posters for the session lifecycle event types.
// Base is the common parent of Join, Leave and WorldSwitch.
type Lifecycle struct {
	Base        *Poster
	Join        *Poster
	Leave       *Poster
	WorldSwitch *Poster
}

// RegisterLifecycle registers the lifecycle event types in r.
func RegisterLifecycle(r *Registry) (*Lifecycle, error) {
	base, err := r.RegisterType(LifecycleName,
		WithDescription("parent of all session lifecycle events"),
	)
	if err != nil {
		return nil, err
	}

	join, err := r.RegisterType(JoinName,
		WithParent(base.Type()),
		WithDescription("a session joined a world"),
		WithValidator(func(evt any) error {
			e, ok := evt.(JoinEvent)
			if !ok {
				return fmt.Errorf("expected JoinEvent, got %T", evt)
			}
			if e.Session.ID == "" {
				return fmt.Errorf("join event without session id")
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	leave, err := r.RegisterType(LeaveName,
		WithParent(base.Type()),
		WithDescription("the current session ended"),
		WithValidator(func(evt any) error {
			if _, ok := evt.(LeaveEvent); !ok {
				return fmt.Errorf("expected LeaveEvent, got %T", evt)
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	worldSwitch, err := r.RegisterType(WorldSwitchName,
		WithParent(base.Type()),
		WithDescription("the current session moved to another world"),
		WithValidator(func(evt any) error {
			e, ok := evt.(WorldSwitchEvent)
			if !ok {
				return fmt.Errorf("expected WorldSwitchEvent, got %T", evt)
			}
			if e.Session.ID == "" {
				return fmt.Errorf("world switch event without session id")
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return &Lifecycle{
		Base:        base,
		Join:        join,
		Leave:       leave,
		WorldSwitch: worldSwitch,
	}, nil
}
