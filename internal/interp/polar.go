// Package interp contains the grid interpolation stages: the TC-relative
// polar projector, vertical-level interpolation, and the isotherm locator.
package interp

import (
	"math"

	"bitbucket.org/ctessum/sparse"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Project re-projects a 2-D geographic field onto a polar grid centered at
// the TC fix. Each destination cell's geographic coordinate comes from a
// great-circle projection along its azimuth; the source field is sampled
// there by bilinear interpolation on the lat/lon mesh. Cells outside the
// source domain get NaN. The projection is a pure function of its arguments,
// so identical inputs always produce identical output.
func Project(field domain.GeoField, fix domain.TCFix, grid domain.PolarGrid) domain.PolarField {
	radii := grid.Radii()
	azimuths := grid.Azimuths()
	out := sparse.ZerosDense(len(radii), len(azimuths))

	for ri, r := range radii {
		for ai, az := range azimuths {
			lat, lon := domain.BearingGeoloc(fix.Lat, fix.Lon, az*180/math.Pi, r)
			out.Set(Bilinear(field.Data, field.Lats, field.Lons, lat, lon), ri, ai)
		}
	}

	return domain.PolarField{
		Fix:      fix,
		Units:    field.Units,
		Radii:    radii,
		Azimuths: azimuths,
		Data:     out,
	}
}

// Bilinear samples a 2-D field at a geographic point. The coordinate mesh is
// assumed rectilinear: latitude varies along rows only and longitude along
// columns only, in either ascending or descending order. Points outside the
// mesh return NaN.
func Bilinear(data, lats, lons *sparse.DenseArray, lat, lon float64) float64 {
	ny, nx := data.Shape[0], data.Shape[1]

	latAxis := make([]float64, ny)
	for j := 0; j < ny; j++ {
		latAxis[j] = lats.Get(j, 0)
	}
	lonAxis := make([]float64, nx)
	for i := 0; i < nx; i++ {
		lonAxis[i] = lons.Get(0, i)
	}

	j0, wj, ok := bracket(latAxis, lat)
	if !ok {
		return math.NaN()
	}
	i0, wi, ok := bracket(lonAxis, normalizeLon(lon, lonAxis))
	if !ok {
		return math.NaN()
	}

	v00 := data.Get(j0, i0)
	v01 := data.Get(j0, i0+1)
	v10 := data.Get(j0+1, i0)
	v11 := data.Get(j0+1, i0+1)
	return (1-wj)*((1-wi)*v00+wi*v01) + wj*((1-wi)*v10+wi*v11)
}

// bracket finds the interval of a monotonic axis containing v, returning the
// lower index and the fractional position inside the interval.
func bracket(axis []float64, v float64) (int, float64, bool) {
	n := len(axis)
	if n < 2 {
		return 0, 0, false
	}
	ascending := axis[n-1] > axis[0]
	lo, hi := axis[0], axis[n-1]
	if !ascending {
		lo, hi = hi, lo
	}
	if v < lo || v > hi {
		return 0, 0, false
	}
	for i := 0; i < n-1; i++ {
		a, b := axis[i], axis[i+1]
		if ascending && v >= a && v <= b || !ascending && v <= a && v >= b {
			if a == b {
				return i, 0, true
			}
			return i, (v - a) / (b - a), true
		}
	}
	return 0, 0, false
}

// normalizeLon shifts lon by whole turns into the range the axis covers, so
// a 0..360 analysis grid accepts projected longitudes near ±180.
func normalizeLon(lon float64, axis []float64) float64 {
	lo, hi := axis[0], axis[len(axis)-1]
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, cand := range [3]float64{lon, lon + 360, lon - 360} {
		if cand >= lo && cand <= hi {
			return cand
		}
	}
	return lon
}
