package interp

import (
	"math"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// FillAzimuthal replaces missing values in each radius ring by linear
// interpolation between the nearest valid azimuthal neighbors, treating the
// ring as periodic. Rings with no valid samples are left untouched. The
// spectral decomposition requires complete rings, so this runs after
// projection for fixes near the analysis domain edge.
func FillAzimuthal(polar domain.PolarField) domain.PolarField {
	na := len(polar.Azimuths)
	out := polar
	out.Data = polar.Data.Copy()

	for ri := range polar.Radii {
		var valid []int
		for ai := 0; ai < na; ai++ {
			if !math.IsNaN(out.Data.Get(ri, ai)) {
				valid = append(valid, ai)
			}
		}
		if len(valid) == 0 || len(valid) == na {
			continue
		}
		for ai := 0; ai < na; ai++ {
			if !math.IsNaN(out.Data.Get(ri, ai)) {
				continue
			}
			prev, next := neighbors(valid, ai, na)
			gap := float64((next - prev + na) % na)
			w := float64((ai-prev+na)%na) / gap
			v0 := out.Data.Get(ri, prev)
			v1 := out.Data.Get(ri, next)
			out.Data.Set((1-w)*v0+w*v1, ri, ai)
		}
	}
	return out
}

// neighbors returns the nearest valid indices before and after ai on a
// periodic ring.
func neighbors(valid []int, ai, na int) (prev, next int) {
	prev, next = valid[len(valid)-1], valid[0]
	for _, v := range valid {
		if v < ai {
			prev = v
		}
		if v > ai {
			next = v
			break
		}
	}
	return prev, next
}
