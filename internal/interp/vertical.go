package interp

import (
	"math"

	"bitbucket.org/ctessum/sparse"
)

// ToLevel interpolates a 3-D variable to the surface where the 3-D vertical
// coordinate equals level, producing a 2-D field. Columns where level is
// never bracketed get NaN. varin and zarr must share one shape.
func ToLevel(varin, zarr *sparse.DenseArray, level float64) *sparse.DenseArray {
	nz, ny, nx := varin.Shape[0], varin.Shape[1], varin.Shape[2]
	out := sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v := math.NaN()
			for k := 0; k < nz-1; k++ {
				z0, z1 := zarr.Get(k, j, i), zarr.Get(k+1, j, i)
				if !brackets(z0, z1, level) {
					continue
				}
				w := 0.0
				if z1 != z0 {
					w = (level - z0) / (z1 - z0)
				}
				v = (1-w)*varin.Get(k, j, i) + w*varin.Get(k+1, j, i)
				break
			}
			out.Set(v, j, i)
		}
	}
	return out
}

// LocateIsotherm inverts a 1-D (depth, temperature) profile to the depth at
// which temperature equals target. When the profile never brackets the
// target — warmer everywhere or colder everywhere — it returns
// (fill, false) rather than extrapolating a physically meaningless depth.
// interpType is "linear" (default) or "nearest".
func LocateIsotherm(temps, depths []float64, target float64, interpType string, fill float64) (float64, bool) {
	for k := 0; k < len(temps)-1; k++ {
		t0, t1 := temps[k], temps[k+1]
		if math.IsNaN(t0) || math.IsNaN(t1) || !brackets(t0, t1, target) {
			continue
		}
		if interpType == "nearest" {
			if math.Abs(target-t0) <= math.Abs(target-t1) {
				return depths[k], true
			}
			return depths[k+1], true
		}
		w := 0.0
		if t1 != t0 {
			w = (target - t0) / (t1 - t0)
		}
		return depths[k] + w*(depths[k+1]-depths[k]), true
	}
	return fill, false
}

// brackets reports whether v lies in the closed interval [a, b] or [b, a].
func brackets(a, b, v float64) bool {
	return v >= a && v <= b || v >= b && v <= a
}
