package vario

import (
	"context"
	"fmt"
	"log/slog"

	"bitbucket.org/ctessum/sparse"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
	"github.com/couchcryptid/tcdiag-service/internal/units"
)

// FieldReader reads one named array from a gridded analysis source. The file
// handle is acquired per read and released before returning. Implementations
// return a *domain.MissingVariableError when the name is absent.
type FieldReader interface {
	ReadVar(ctx context.Context, path, name string) (*sparse.DenseArray, error)
}

// Resolver turns Specs into GeoFields. One Resolver serves one orchestrator
// run, so every field it produces shares the same unit system and axis
// orientation convention.
type Resolver struct {
	reader FieldReader
	units  *units.System
	logger *slog.Logger
}

// NewResolver creates a Resolver over the given reader and unit system.
func NewResolver(reader FieldReader, us *units.System, logger *slog.Logger) *Resolver {
	return &Resolver{reader: reader, units: us, logger: logger}
}

// Resolve reads a file-sourced spec and applies, in order: the affine
// scale transform, the squeeze, the axis flips, and the unit conversion to
// canonical SI. The returned field is tagged with the canonical unit.
func (r *Resolver) Resolve(ctx context.Context, spec Spec) (domain.GeoField, error) {
	if spec.Derived() {
		return domain.GeoField{}, &domain.ConfigError{
			App:    "variable " + spec.Name,
			Reason: "derived specs are evaluated after all direct reads, not resolved",
		}
	}

	u, err := r.units.Lookup(spec.Units)
	if err != nil {
		return domain.GeoField{}, err
	}

	r.logger.Info("reading variable",
		"name", spec.Name, "file", spec.File, "variable", spec.Variable)
	data, err := r.reader.ReadVar(ctx, spec.File, spec.Variable)
	if err != nil {
		return domain.GeoField{}, err
	}

	if spec.ScaleMult != 1 || spec.ScaleAdd != 0 {
		for i, v := range data.Elements {
			data.Elements[i] = spec.ScaleMult*v + spec.ScaleAdd
		}
	}
	if spec.Squeeze {
		data, err = squeeze(data, spec.SqueezeAxis)
		if err != nil {
			return domain.GeoField{}, &domain.ConfigError{
				App: "variable " + spec.Name, Reason: err.Error(),
			}
		}
	}
	if spec.FlipZ && len(data.Shape) == 3 {
		r.logger.Debug("flipping array along the vertical axis", "name", spec.Name)
		data = flip(data, 0)
	}
	if spec.FlipLat {
		r.logger.Debug("flipping array along the latitudinal axis", "name", spec.Name)
		data = flip(data, len(data.Shape)-2)
	}

	// Convert once to canonical SI so downstream arithmetic never mixes unit
	// variants of the same quantity.
	if u.Mult != 1 || u.Add != 0 {
		for i, v := range data.Elements {
			data.Elements[i] = u.Mult*v + u.Add
		}
	}

	return domain.GeoField{Name: spec.Name, Units: u.Canonical, Data: data}, nil
}

// squeeze drops the named axis if its length is 1.
func squeeze(in *sparse.DenseArray, axis int) (*sparse.DenseArray, error) {
	if axis < 0 || axis >= len(in.Shape) {
		return nil, fmt.Errorf("squeeze axis %d out of range for %d-d array", axis, len(in.Shape))
	}
	if in.Shape[axis] != 1 {
		return nil, fmt.Errorf("squeeze axis %d has length %d, expected 1", axis, in.Shape[axis])
	}
	shape := make([]int, 0, len(in.Shape)-1)
	for i, n := range in.Shape {
		if i != axis {
			shape = append(shape, n)
		}
	}
	out := sparse.ZerosDense(shape...)
	copy(out.Elements, in.Elements)
	return out, nil
}

// flip reverses the array along one axis.
func flip(in *sparse.DenseArray, axis int) *sparse.DenseArray {
	out := sparse.ZerosDense(in.Shape...)
	idx := make([]int, len(in.Shape))
	var walk func(dim int)
	walk = func(dim int) {
		if dim == len(in.Shape) {
			src := make([]int, len(idx))
			copy(src, idx)
			src[axis] = in.Shape[axis] - 1 - idx[axis]
			out.Set(in.Get(src...), idx...)
			return
		}
		for i := 0; i < in.Shape[dim]; i++ {
			idx[dim] = i
			walk(dim + 1)
		}
	}
	walk(0)
	return out
}

// BroadcastGrid promotes 1-D latitude/longitude coordinate arrays to the 2-D
// grid shape (a no-op when already 2-D) and attaches the mesh to every
// resolved field.
func BroadcastGrid(fields map[string]domain.GeoField, latName, lonName string, logger *slog.Logger) error {
	lat, ok := fields[latName]
	if !ok {
		return &domain.MissingVariableError{Variable: latName, Source: "resolved variables"}
	}
	lon, ok := fields[lonName]
	if !ok {
		return &domain.MissingVariableError{Variable: lonName, Source: "resolved variables"}
	}

	lats, lons := lat.Data, lon.Data
	if len(lats.Shape) == 1 && len(lons.Shape) == 1 {
		logger.Warn("geographic coordinate arrays are 1-dimensional, converting to gridded values")
		ny, nx := lats.Shape[0], lons.Shape[0]
		lat2 := sparse.ZerosDense(ny, nx)
		lon2 := sparse.ZerosDense(ny, nx)
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				lat2.Set(lats.Get(j), j, i)
				lon2.Set(lons.Get(i), j, i)
			}
		}
		lats, lons = lat2, lon2
		lat.Data, lon.Data = lat2, lon2
		fields[latName], fields[lonName] = lat, lon
	}

	for name, f := range fields {
		f.Lats = lats
		f.Lons = lons
		fields[name] = f
	}
	return nil
}
