package event

import "fmt"

// Type is a registered event payload kind.
type Type struct {
	name        string
	index       int
	parent      *Type
	description string
	validator   func(any) error
	owner       *Registry
}

// TypeOption configures a Type at registration.
type TypeOption func(*Type)

// WithParent makes t a descendant of parent. Handlers declared for parent
// are eligible for t.
func WithParent(parent *Type) TypeOption {
	return func(t *Type) {
		t.parent = parent
	}
}

// WithDescription sets a human-readable description.
func WithDescription(desc string) TypeOption {
	return func(t *Type) {
		t.description = desc
	}
}

// WithValidator sets a payload check run before every post.
func WithValidator(fn func(any) error) TypeOption {
	return func(t *Type) {
		t.validator = fn
	}
}

// Name returns the registered name.
func (t *Type) Name() string {
	return t.name
}

// Index returns the registration index, stable for the registry's lifetime.
func (t *Type) Index() int {
	return t.index
}

// Parent returns the parent type or nil.
func (t *Type) Parent() *Type {
	return t.parent
}

// Description returns the description.
func (t *Type) Description() string {
	return t.description
}

// AssignableFrom reports whether a payload of type other can be passed where
// t is expected, that is whether t is other or one of its ancestors.
func (t *Type) AssignableFrom(other *Type) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == t {
			return true
		}
	}
	return false
}

// Validate runs the payload validator, if any.
func (t *Type) Validate(evt any) error {
	if t.validator == nil {
		return nil
	}
	return t.validator(evt)
}

// String returns "name#index".
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", t.name, t.index)
}
