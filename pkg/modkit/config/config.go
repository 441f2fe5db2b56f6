package config

import (
	"maps"
	"slices"
	"time"
)

// Config is a read-only view over a settings map.
type Config struct {
	data map[string]any
}

// New creates a Config over data. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// Lookup returns the raw value for key.
func (c Config) Lookup(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// String returns the string at key, or defaultVal.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the bool at key, or defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer at key, or defaultVal.
// float64 values are accepted only without a fractional part.
func (c Config) Int(key string, defaultVal int) int {
	if n, ok := AsInt(c.data[key]); ok {
		return n
	}
	return defaultVal
}

// Float returns the number at key as float64, or defaultVal.
func (c Config) Float(key string, defaultVal float64) float64 {
	if f, ok := AsFloat(c.data[key]); ok {
		return f
	}
	return defaultVal
}

// Duration returns the duration at key, or defaultVal.
//
// Strings are parsed with time.ParseDuration; numbers are seconds.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	switch v := c.data[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		return defaultVal
	}
	if f, ok := AsFloat(c.data[key]); ok {
		return time.Duration(f * float64(time.Second))
	}
	return defaultVal
}

// StringSlice returns the string list at key, or defaultVal if any element
// is not a string.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	switch v := c.data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			out = append(out, s)
		}
		return out
	}
	return defaultVal
}

// Any returns the raw value at key, or defaultVal.
func (c Config) Any(key string, defaultVal any) any {
	if v, ok := c.data[key]; ok {
		return v
	}
	return defaultVal
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Keys returns the keys in sorted order.
func (c Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.data))
}

// Len returns the number of keys.
func (c Config) Len() int {
	return len(c.data)
}

// Raw returns the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any {
	return c.data
}

// AsInt converts integer-like values. float64 is accepted only when whole.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// AsFloat converts numeric values to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
