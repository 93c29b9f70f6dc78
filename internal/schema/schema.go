// Package schema validates configuration blocks against declared schemas,
// filling defaults for optional keys and rejecting type mismatches. Every
// stage that consumes a configuration block goes through Validate before
// touching its parameters.
package schema

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Kind enumerates the value types a schema key may declare.
type Kind string

const (
	String Kind = "string"
	Float  Kind = "float"
	Int    Kind = "int"
	Bool   Kind = "bool"
	Floats Kind = "floats" // list of floats, e.g. isobaric level bounds
)

// Key declares one schema entry.
type Key struct {
	Name     string
	Type     Kind
	Required bool
	Default  any
}

// Schema is an ordered set of declared keys for one configuration block.
type Schema struct {
	Name string
	Keys []Key
}

// Record is a fully populated, type-checked configuration block. It contains
// exactly the schema's keys.
type Record struct {
	schema Schema
	values map[string]any
}

// Validate checks doc against the schema. Missing required keys fail with a
// ConfigError; missing optional keys take their declared default and log a
// warning. Present keys are coerced to the declared type where lossless;
// mismatches fail with a ConfigError. Keys in doc that the schema does not
// declare are ignored.
func Validate(doc map[string]any, s Schema, logger *slog.Logger) (Record, error) {
	rec := Record{schema: s, values: make(map[string]any, len(s.Keys))}
	for _, key := range s.Keys {
		raw, present := doc[key.Name]
		if !present || raw == nil {
			if key.Required {
				return Record{}, &domain.ConfigError{
					App:    s.Name,
					Reason: fmt.Sprintf("required key %q is missing", key.Name),
				}
			}
			logger.Warn("schema key missing, using default",
				"schema", s.Name, "key", key.Name, "default", key.Default)
			rec.values[key.Name] = key.Default
			continue
		}
		v, err := coerce(raw, key.Type)
		if err != nil {
			return Record{}, &domain.ConfigError{
				App:    s.Name,
				Reason: fmt.Sprintf("key %q: %v", key.Name, err),
			}
		}
		rec.values[key.Name] = v
	}
	return rec, nil
}

// coerce converts raw to the declared kind, accepting the representations
// yaml.v3 produces (string, int, float64, bool, []any).
func coerce(raw any, kind Kind) (any, error) {
	switch kind {
	case String:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case Float:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err == nil {
				return f, nil
			}
		}
	case Int:
		switch v := raw.(type) {
		case int:
			return v, nil
		case float64:
			if v == float64(int(v)) {
				return int(v), nil
			}
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err == nil {
				return n, nil
			}
		}
	case Bool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err == nil {
				return b, nil
			}
		}
	case Floats:
		switch v := raw.(type) {
		case []any:
			out := make([]float64, len(v))
			for i, e := range v {
				f, err := coerce(e, Float)
				if err != nil {
					return nil, fmt.Errorf("element %d: %v", i, err)
				}
				out[i] = f.(float64)
			}
			return out, nil
		case []float64:
			return v, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %T value %v to %s", raw, raw, kind)
}

// Keys returns the schema's key names in declaration order.
func (r Record) Keys() []string {
	out := make([]string, len(r.schema.Keys))
	for i, k := range r.schema.Keys {
		out[i] = k.Name
	}
	return out
}

// Has reports whether the record carries a non-nil value for name.
func (r Record) Has(name string) bool { return r.values[name] != nil }

// String returns the string value for name, or "" if unset.
func (r Record) String(name string) string {
	s, _ := r.values[name].(string)
	return s
}

// Float returns the float value for name, or 0 if unset.
func (r Record) Float(name string) float64 {
	f, _ := r.values[name].(float64)
	return f
}

// Int returns the int value for name, or 0 if unset.
func (r Record) Int(name string) int {
	n, _ := r.values[name].(int)
	return n
}

// Bool returns the bool value for name, or false if unset.
func (r Record) Bool(name string) bool {
	b, _ := r.values[name].(bool)
	return b
}

// Floats returns the float-list value for name, or nil if unset.
func (r Record) Floats(name string) []float64 {
	fs, _ := r.values[name].([]float64)
	return fs
}

// Table renders the validated record as an aligned two-column text table for
// log observability.
func (r Record) Table() string {
	width := len("Key")
	for _, k := range r.schema.Keys {
		if len(k.Name) > width {
			width = len(k.Name)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  Value\n", width, "Key")
	fmt.Fprintf(&b, "%s  %s\n", strings.Repeat("-", width), strings.Repeat("-", 5))
	for _, k := range r.schema.Keys {
		fmt.Fprintf(&b, "%-*s  %v\n", width, k.Name, r.values[k.Name])
	}
	return b.String()
}
