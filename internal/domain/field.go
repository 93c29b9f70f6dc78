package domain

import (
	"math"
	"time"

	"bitbucket.org/ctessum/sparse"
)

// GeoField is a gridded analysis field tagged with a physical unit and its
// geographic coordinates. Fields are immutable once resolved: downstream
// stages share them read-only and must copy before mutating.
type GeoField struct {
	Name  string
	Units string

	// Data is shaped (level, lat, lon) for 3-D fields or (lat, lon) for
	// 2-D fields.
	Data *sparse.DenseArray

	// Lats and Lons are 2-D (lat, lon) coordinate arrays in degrees.
	Lats *sparse.DenseArray
	Lons *sparse.DenseArray

	// Levels holds vertical coordinate values for 3-D fields, nil otherwise.
	Levels []float64
}

// Is3D reports whether the field carries a vertical dimension.
func (f GeoField) Is3D() bool {
	return f.Data != nil && len(f.Data.Shape) == 3
}

// NLev returns the vertical extent, or 1 for 2-D fields.
func (f GeoField) NLev() int {
	if f.Is3D() {
		return f.Data.Shape[0]
	}
	return 1
}

// NLat returns the latitudinal extent.
func (f GeoField) NLat() int {
	return f.Data.Shape[len(f.Data.Shape)-2]
}

// NLon returns the longitudinal extent.
func (f GeoField) NLon() int {
	return f.Data.Shape[len(f.Data.Shape)-1]
}

// Level returns the 2-D (lat, lon) slice of a 3-D field at vertical index k.
// For 2-D fields it returns a copy of the data regardless of k.
func (f GeoField) Level(k int) *sparse.DenseArray {
	if !f.Is3D() {
		return f.Data.Copy()
	}
	out := sparse.ZerosDense(f.NLat(), f.NLon())
	for j := 0; j < f.NLat(); j++ {
		for i := 0; i < f.NLon(); i++ {
			out.Set(f.Data.Get(k, j, i), j, i)
		}
	}
	return out
}

// TCFix is a tropical cyclone's identified center position.
type TCFix struct {
	ID   string
	Lat  float64 // degrees north
	Lon  float64 // degrees east
	Time time.Time
}

// PolarGrid describes a TC-relative destination grid.
type PolarGrid struct {
	MaxRadius float64 // meters
	DRadius   float64 // meters
	DAzimuth  float64 // radians
}

// Radii returns the radial coordinate array 0..MaxRadius step DRadius.
func (g PolarGrid) Radii() []float64 {
	n := int(g.MaxRadius/g.DRadius) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * g.DRadius
	}
	return out
}

// Azimuths returns the azimuthal coordinate array 0..2π step DAzimuth,
// excluding the 2π endpoint so rings stay periodic.
func (g PolarGrid) Azimuths() []float64 {
	n := int(math.Round(2 * math.Pi / g.DAzimuth))
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * g.DAzimuth
	}
	return out
}

// PolarField is a field re-projected onto a (radius, azimuth) grid centered
// at a TC fix. Data is shaped (radius, azimuth).
type PolarField struct {
	Fix      TCFix
	Units    string
	Radii    []float64 // meters
	Azimuths []float64 // radians, [0, 2π)
	Data     *sparse.DenseArray
}

// WavenumberSpectrum maps azimuthal wavenumber index to its reconstructed
// spatial component, plus the residual of all higher wavenumbers. The sum of
// Components and Residual reconstructs the original field to floating-point
// tolerance.
type WavenumberSpectrum struct {
	MaxWN      int
	Components []*sparse.DenseArray // index = wavenumber, shape (radius, azimuth)
	Residual   *sparse.DenseArray
}

// Total returns the truncated reconstruction Σ Components[0..MaxWN].
func (s WavenumberSpectrum) Total() *sparse.DenseArray {
	out := sparse.ZerosDense(s.Components[0].Shape...)
	for _, c := range s.Components {
		out.AddDense(c)
	}
	return out
}

// SteeringLayer holds the layer-mean wind over one isobaric layer and its
// decomposed and filtered variants. All arrays are 2-D (lat, lon), m/s.
type SteeringLayer struct {
	Top    float64 // Pa, layer top (smaller pressure)
	Bottom float64 // Pa, layer bottom (larger pressure)

	U, V         *sparse.DenseArray // total layer-mean wind
	URot, VRot   *sparse.DenseArray // rotational (nondivergent) component
	UDiv, VDiv   *sparse.DenseArray // divergent (irrotational) component
	UHarm, VHarm *sparse.DenseArray // harmonic residual: total − rot − div
	UFilt, VFilt *sparse.DenseArray // SVD-smoothed steering wind
}
