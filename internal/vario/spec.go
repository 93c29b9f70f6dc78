// Package vario resolves the per-variable configuration table into labeled
// gridded fields: direct reads from analysis files with axis/scale/unit
// bookkeeping, and derived fields evaluated in dependency order.
package vario

import (
	"log/slog"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
	"github.com/couchcryptid/tcdiag-service/internal/schema"
)

// Spec declares how to obtain one named field.
type Spec struct {
	Name  string
	Units string

	// File-sourced attributes.
	File        string
	Variable    string
	ScaleMult   float64
	ScaleAdd    float64
	Squeeze     bool
	SqueezeAxis int
	FlipLat     bool
	FlipZ       bool

	// Derived attributes. Method is non-empty for derived specs.
	Method string
	Inputs []string
}

// Derived reports whether the spec names a derivation method instead of a
// file read.
func (s Spec) Derived() bool { return s.Method != "" }

var fileSchema = schema.Schema{
	Name: "variable",
	Keys: []schema.Key{
		{Name: "ncfile", Type: schema.String, Required: true},
		{Name: "ncvarname", Type: schema.String, Required: true},
		{Name: "units", Type: schema.String, Required: true},
		{Name: "scale_mult", Type: schema.Float, Default: 1.0},
		{Name: "scale_add", Type: schema.Float, Default: 0.0},
		{Name: "squeeze", Type: schema.Bool, Default: false},
		{Name: "squeeze_axis", Type: schema.Int, Default: 0},
		{Name: "flip_lat", Type: schema.Bool, Default: false},
		{Name: "flip_z", Type: schema.Bool, Default: false},
	},
}

var derivedSchema = schema.Schema{
	Name: "derived variable",
	Keys: []schema.Key{
		{Name: "method", Type: schema.String, Required: true},
		{Name: "units", Type: schema.String, Required: true},
	},
}

// ParseSpec validates one raw variable block and returns its Spec. Derived
// blocks are recognized by the presence of a "method" key.
func ParseSpec(name string, doc map[string]any, logger *slog.Logger) (Spec, error) {
	if _, derived := doc["method"]; derived {
		rec, err := schema.Validate(doc, derivedSchema, logger)
		if err != nil {
			return Spec{}, err
		}
		inputs, err := parseInputs(name, doc["inputs"])
		if err != nil {
			return Spec{}, err
		}
		return Spec{
			Name:   name,
			Units:  rec.String("units"),
			Method: rec.String("method"),
			Inputs: inputs,
		}, nil
	}

	rec, err := schema.Validate(doc, fileSchema, logger)
	if err != nil {
		return Spec{}, err
	}
	return Spec{
		Name:        name,
		Units:       rec.String("units"),
		File:        rec.String("ncfile"),
		Variable:    rec.String("ncvarname"),
		ScaleMult:   rec.Float("scale_mult"),
		ScaleAdd:    rec.Float("scale_add"),
		Squeeze:     rec.Bool("squeeze"),
		SqueezeAxis: rec.Int("squeeze_axis"),
		FlipLat:     rec.Bool("flip_lat"),
		FlipZ:       rec.Bool("flip_z"),
	}, nil
}

func parseInputs(name string, raw any) ([]string, error) {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, &domain.ConfigError{
			App:    "variable " + name,
			Reason: "derived spec requires a non-empty inputs list",
		}
	}
	out := make([]string, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, &domain.ConfigError{
				App:    "variable " + name,
				Reason: "inputs must be variable names",
			}
		}
		out[i] = s
	}
	return out, nil
}
