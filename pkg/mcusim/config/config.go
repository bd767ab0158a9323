package config

import (
	"time"
)

// Config wraps one level of a decoded YAML/JSON document. Accessors
// return the supplied default when the key is missing or holds a value of
// the wrong shape; nested levels are reached through Section and Sections.
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

// String returns the string at key, or defaultVal.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Duration returns the duration at key, or defaultVal.
//
// Accepts:
//   - string: parsed with time.ParseDuration ("200ms", "2s")
//   - int, int64, float64: interpreted as milliseconds
//   - time.Duration: used directly
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case int:
		return time.Duration(val) * time.Millisecond
	case int64:
		return time.Duration(val) * time.Millisecond
	case float64:
		return time.Duration(val * float64(time.Millisecond))
	case time.Duration:
		return val
	}
	return defaultVal
}

// Bool returns the boolean at key, or defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer at key, or defaultVal. A float64 is accepted
// only when it has no fractional part (JSON numbers).
func (c Config) Int(key string, defaultVal int) int {
	switch val := c.data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case uint64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Uint64 returns the non-negative integer at key, or defaultVal.
func (c Config) Uint64(key string, defaultVal uint64) uint64 {
	switch val := c.data[key].(type) {
	case int:
		if val >= 0 {
			return uint64(val)
		}
	case int64:
		if val >= 0 {
			return uint64(val)
		}
	case uint64:
		return val
	case float64:
		if val >= 0 && val == float64(uint64(val)) {
			return uint64(val)
		}
	}
	return defaultVal
}

// Has reports whether key is present, even with a nil value.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Section returns the nested mapping at key. A missing or non-mapping
// value yields an empty Config.
func (c Config) Section(key string) Config {
	if m, ok := c.data[key].(map[string]any); ok {
		return New(m)
	}
	return New(nil)
}

// Sections returns the list of mappings at key. Elements that are not
// mappings are skipped. ok is false when key is missing or not a list.
func (c Config) Sections(key string) (sections []Config, ok bool) {
	list, ok := c.data[key].([]any)
	if !ok {
		return nil, false
	}
	sections = make([]Config, 0, len(list))
	for _, item := range list {
		if m, isMap := item.(map[string]any); isMap {
			sections = append(sections, New(m))
		}
	}
	return sections, true
}

// Raw returns the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any {
	return c.data
}
