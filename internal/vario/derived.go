package vario

import (
	"fmt"
	"math"

	"bitbucket.org/ctessum/sparse"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Standard-atmosphere constants used by the hydrostatic derivations.
const (
	gravity    = 9.80665 // m/s²
	dryAirR    = 287.04  // J/(kg·K)
	stdLapse   = 0.0065  // K/m
	stdSfcTemp = 288.0   // K
	stdSfcPres = 101325.0
)

// MethodFunc computes a derived field from already-resolved inputs, in the
// order the spec declares them. Methods are pure.
type MethodFunc func(inputs []domain.GeoField) (*sparse.DenseArray, error)

// methods is the closed registry of derivation routines. Configurations
// select by name; unknown names are a ConfigError, never a dynamic dispatch.
var methods = map[string]MethodFunc{
	"pressure_from_thickness":             pressureFromThickness,
	"height_from_pressure":                heightFromPressure,
	"pressure_to_sealevel":                pressureToSeaLevel,
	"mixing_ratio_from_specific_humidity": mixingRatioFromSpecificHumidity,
	"wind_magnitude":                      windMagnitude,
}

// KnownMethod reports whether name is a registered derivation method.
func KnownMethod(name string) bool {
	_, ok := methods[name]
	return ok
}

// Evaluate dispatches a derived spec to its registered method. The resolved
// map must already contain every declared input.
func Evaluate(spec Spec, resolved map[string]domain.GeoField) (domain.GeoField, error) {
	fn, ok := methods[spec.Method]
	if !ok {
		return domain.GeoField{}, &domain.ConfigError{
			App:    "variable " + spec.Name,
			Reason: fmt.Sprintf("unknown derivation method %q", spec.Method),
		}
	}
	inputs := make([]domain.GeoField, len(spec.Inputs))
	for i, name := range spec.Inputs {
		in, ok := resolved[name]
		if !ok {
			return domain.GeoField{}, &domain.DependencyError{Variable: spec.Name, Input: name}
		}
		inputs[i] = in
	}
	data, err := fn(inputs)
	if err != nil {
		return domain.GeoField{}, fmt.Errorf("derive %s: %w", spec.Name, err)
	}
	out := domain.GeoField{Name: spec.Name, Units: spec.Units, Data: data}
	if len(inputs) > 0 {
		out.Lats = inputs[0].Lats
		out.Lons = inputs[0].Lons
		out.Levels = inputs[0].Levels
	}
	return out, nil
}

// pressureFromThickness integrates a layer-thickness profile top-down into a
// pressure profile. Inputs: pressure thickness (Pa, 3-D), surface pressure
// (Pa, 2-D). Level 0 is the surface.
func pressureFromThickness(inputs []domain.GeoField) (*sparse.DenseArray, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("pressure_from_thickness expects [thickness, surface_pressure], got %d inputs", len(inputs))
	}
	thick, psfc := inputs[0], inputs[1]
	if !thick.Is3D() {
		return nil, fmt.Errorf("thickness must be 3-d, got shape %v", thick.Data.Shape)
	}
	nz, ny, nx := thick.Data.Shape[0], thick.Data.Shape[1], thick.Data.Shape[2]
	pres := thick.Data.Copy()
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			pres.Set(psfc.Data.Get(j, i), 0, j, i)
			for k := nz - 2; k >= 1; k-- {
				pres.Set(pres.Get(k+1, j, i)+thick.Data.Get(k, j, i), k, j, i)
			}
		}
	}
	return pres, nil
}

// heightFromPressure inverts the standard-atmosphere hydrostatic relation to
// geometric height. Input: pressure (Pa). Output shape matches the input.
func heightFromPressure(inputs []domain.GeoField) (*sparse.DenseArray, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("height_from_pressure expects [pressure], got %d inputs", len(inputs))
	}
	pres := inputs[0].Data
	out := sparse.ZerosDense(pres.Shape...)
	exp := dryAirR * stdLapse / gravity
	for i, p := range pres.Elements {
		out.Elements[i] = stdSfcTemp / stdLapse * (1 - math.Pow(p/stdSfcPres, exp))
	}
	return out, nil
}

// pressureToSeaLevel extrapolates surface pressure to sea level using the
// surface temperature as the lapse-corrected column temperature. Inputs:
// surface pressure (Pa, 2-D), surface height (m, 2-D), temperature (K, 3-D;
// level 0 supplies the surface value).
func pressureToSeaLevel(inputs []domain.GeoField) (*sparse.DenseArray, error) {
	if len(inputs) != 3 {
		return nil, fmt.Errorf("pressure_to_sealevel expects [surface_pressure, surface_height, temperature], got %d inputs", len(inputs))
	}
	psfc, zsfc, temp := inputs[0].Data, inputs[1].Data, inputs[2].Data
	ny, nx := psfc.Shape[0], psfc.Shape[1]
	out := sparse.ZerosDense(ny, nx)
	exp := gravity / (dryAirR * stdLapse)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			t := temp.Get(0, j, i)
			z := zsfc.Get(j, i)
			out.Set(psfc.Get(j, i)*math.Pow((t+stdLapse*z)/t, exp), j, i)
		}
	}
	return out, nil
}

// mixingRatioFromSpecificHumidity applies w = q / (1 − q). Input: specific
// humidity (kg/kg). Output shape matches the input.
func mixingRatioFromSpecificHumidity(inputs []domain.GeoField) (*sparse.DenseArray, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("mixing_ratio_from_specific_humidity expects [specific_humidity], got %d inputs", len(inputs))
	}
	q := inputs[0].Data
	out := sparse.ZerosDense(q.Shape...)
	for i, v := range q.Elements {
		out.Elements[i] = v / (1 - v)
	}
	return out, nil
}

// windMagnitude computes sqrt(u² + v²). Inputs: u wind, v wind of identical
// shape.
func windMagnitude(inputs []domain.GeoField) (*sparse.DenseArray, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("wind_magnitude expects [uwind, vwind], got %d inputs", len(inputs))
	}
	u, v := inputs[0].Data, inputs[1].Data
	if len(u.Elements) != len(v.Elements) {
		return nil, fmt.Errorf("wind component shapes differ: %v vs %v", u.Shape, v.Shape)
	}
	out := sparse.ZerosDense(u.Shape...)
	for i := range u.Elements {
		out.Elements[i] = math.Hypot(u.Elements[i], v.Elements[i])
	}
	return out, nil
}
