// Package settings loads, validates and persists module settings.
//
// The loader requests settings for newly staged modules in one batch with
// Service.LoadSettings. Each module's map starts from its defaults and is
// overlaid with persisted values that still pass the schema. Later changes
// go through Service.Set, which validates, persists and notifies the live
// instance through the bound Host.
package settings

import (
	"fmt"
	"slices"
	"time"

	"github.com/randalmurphal/modkit/pkg/modkit/config"
)

// EnabledPath is the implicit boolean setting that toggles a module.
const EnabledPath = "enabled"

// Kind is the value kind of a setting.
type Kind int

const (
	KindAny Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindDuration
	KindEnum
	KindStringList
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindDuration:
		return "duration"
	case KindEnum:
		return "enum"
	case KindStringList:
		return "string list"
	default:
		return "any"
	}
}

// Field describes one setting.
type Field struct {
	Kind Kind

	// Min and Max bound numeric kinds when set.
	Min *float64
	Max *float64

	// Options lists the allowed values of an enum.
	Options []string

	Description string
}

// Schema maps dotted setting paths to fields.
type Schema map[string]Field

// Bool declares a boolean field.
func Bool() Field { return Field{Kind: KindBool} }

// String declares a string field.
func String() Field { return Field{Kind: KindString} }

// Duration declares a duration field, stored as a string like "5s".
func Duration() Field { return Field{Kind: KindDuration} }

// StringList declares a list of strings.
func StringList() Field { return Field{Kind: KindStringList} }

// Int declares an integer field bounded to [lo, hi].
func Int(lo, hi int) Field {
	l, h := float64(lo), float64(hi)
	return Field{Kind: KindInt, Min: &l, Max: &h}
}

// Float declares a float field bounded to [lo, hi].
func Float(lo, hi float64) Field {
	return Field{Kind: KindFloat, Min: &lo, Max: &hi}
}

// Enum declares a string field restricted to options.
func Enum(options ...string) Field {
	return Field{Kind: KindEnum, Options: options}
}

// Field returns the field for path. EnabledPath is always a bool field.
func (s Schema) Field(path string) (Field, bool) {
	if f, ok := s[path]; ok {
		return f, true
	}
	if path == EnabledPath {
		return Bool(), true
	}
	return Field{}, false
}

// Validate checks value against the field at path and returns it in
// canonical form (int for KindInt, float64 for KindFloat, []string for
// KindStringList).
func (s Schema) Validate(path string, value any) (any, error) {
	f, ok := s.Field(path)
	if !ok {
		return nil, fmt.Errorf("unknown setting %q", path)
	}
	v, err := f.normalize(value)
	if err != nil {
		return nil, fmt.Errorf("setting %q: %w", path, err)
	}
	return v, nil
}

func (f Field) normalize(value any) (any, error) {
	switch f.Kind {
	case KindAny:
		return value, nil
	case KindBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case KindInt:
		if n, ok := config.AsInt(value); ok {
			return n, f.checkRange(float64(n))
		}
	case KindFloat:
		if x, ok := config.AsFloat(value); ok {
			return x, f.checkRange(x)
		}
	case KindString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case KindDuration:
		switch d := value.(type) {
		case string:
			if _, err := time.ParseDuration(d); err != nil {
				return nil, err
			}
			return d, nil
		case time.Duration:
			return d.String(), nil
		}
	case KindEnum:
		if s, ok := value.(string); ok {
			if !slices.Contains(f.Options, s) {
				return nil, fmt.Errorf("%q is not one of %v", s, f.Options)
			}
			return s, nil
		}
	case KindStringList:
		out := config.New(map[string]any{"v": value}).StringSlice("v", nil)
		if out != nil || value == nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", f.Kind, value)
}

func (f Field) checkRange(x float64) error {
	if f.Min != nil && x < *f.Min {
		return fmt.Errorf("%v is below minimum %v", x, *f.Min)
	}
	if f.Max != nil && x > *f.Max {
		return fmt.Errorf("%v is above maximum %v", x, *f.Max)
	}
	return nil
}
