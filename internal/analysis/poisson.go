package analysis

import (
	"math"

	"bitbucket.org/ctessum/sparse"
)

const earthRadius = 6371.0e3 // m

// sorIterations and sorTolerance bound the successive over-relaxation solve.
// The boundary condition is Dirichlet zero: the streamfunction and velocity
// potential are anomalies relative to the domain edge, which is sufficient
// for the interior derivatives the wind partition needs.
const (
	sorIterations = 5000
	sorTolerance  = 1e-4
	sorOmega      = 1.7
)

// Vorticity computes the relative vorticity of a 2-D wind field on the
// lat/lon mesh by central differences with spherical metric terms.
func Vorticity(u, v, lats, lons *sparse.DenseArray) *sparse.DenseArray {
	return curlOrDiv(u, v, lats, lons, true)
}

// Divergence computes the horizontal divergence of a 2-D wind field.
func Divergence(u, v, lats, lons *sparse.DenseArray) *sparse.DenseArray {
	return curlOrDiv(u, v, lats, lons, false)
}

func curlOrDiv(u, v, lats, lons *sparse.DenseArray, curl bool) *sparse.DenseArray {
	ny, nx := u.Shape[0], u.Shape[1]
	out := sparse.ZerosDense(ny, nx)
	for j := 1; j < ny-1; j++ {
		phi := lats.Get(j, 0) * math.Pi / 180
		cos := math.Cos(phi)
		dphi := (lats.Get(j+1, 0) - lats.Get(j-1, 0)) * math.Pi / 180
		dlam := (lons.Get(j, 2) - lons.Get(j, 0)) * math.Pi / 180
		for i := 1; i < nx-1; i++ {
			var val float64
			if curl {
				dvdx := (v.Get(j, i+1) - v.Get(j, i-1)) / (earthRadius * cos * dlam)
				dudy := (u.Get(j+1, i) - u.Get(j-1, i)) / (earthRadius * dphi)
				val = dvdx - dudy
			} else {
				dudx := (u.Get(j, i+1) - u.Get(j, i-1)) / (earthRadius * cos * dlam)
				dvdy := (v.Get(j+1, i) - v.Get(j-1, i)) / (earthRadius * dphi)
				val = dudx + dvdy
			}
			out.Set(val, j, i)
		}
	}
	return out
}

// PoissonSOR solves ∇²f = rhs on the lat/lon mesh with successive
// over-relaxation and Dirichlet zero boundaries.
func PoissonSOR(rhs, lats, lons *sparse.DenseArray) *sparse.DenseArray {
	ny, nx := rhs.Shape[0], rhs.Shape[1]
	f := sparse.ZerosDense(ny, nx)

	dphi := math.Abs(lats.Get(1, 0)-lats.Get(0, 0)) * math.Pi / 180
	dlam := math.Abs(lons.Get(0, 1)-lons.Get(0, 0)) * math.Pi / 180
	dy := earthRadius * dphi

	for iter := 0; iter < sorIterations; iter++ {
		var maxDelta, maxF float64
		for j := 1; j < ny-1; j++ {
			phi := lats.Get(j, 0) * math.Pi / 180
			dx := earthRadius * math.Cos(phi) * dlam
			cx, cy := 1/(dx*dx), 1/(dy*dy)
			denom := 2 * (cx + cy)
			for i := 1; i < nx-1; i++ {
				res := cx*(f.Get(j, i+1)+f.Get(j, i-1)) +
					cy*(f.Get(j+1, i)+f.Get(j-1, i)) -
					rhs.Get(j, i)
				next := (1-sorOmega)*f.Get(j, i) + sorOmega*res/denom
				delta := math.Abs(next - f.Get(j, i))
				if delta > maxDelta {
					maxDelta = delta
				}
				if a := math.Abs(next); a > maxF {
					maxF = a
				}
				f.Set(next, j, i)
			}
		}
		if maxF > 0 && maxDelta/maxF < sorTolerance {
			break
		}
	}
	return f
}

// WindPartition decomposes a 2-D wind field into its rotational and
// divergent components via the streamfunction psi and velocity potential chi:
// ∇²psi = vorticity, ∇²chi = divergence, then
//
//	urot = −(1/R) ∂psi/∂φ        vrot = (1/(R cosφ)) ∂psi/∂λ
//	udiv = (1/(R cosφ)) ∂chi/∂λ  vdiv = (1/R) ∂chi/∂φ
//
// The harmonic remainder total − rotational − divergent is left to the
// caller.
func WindPartition(u, v, lats, lons *sparse.DenseArray) (psi, chi, urot, vrot, udiv, vdiv *sparse.DenseArray) {
	psi = PoissonSOR(Vorticity(u, v, lats, lons), lats, lons)
	chi = PoissonSOR(Divergence(u, v, lats, lons), lats, lons)

	ny, nx := u.Shape[0], u.Shape[1]
	urot = sparse.ZerosDense(ny, nx)
	vrot = sparse.ZerosDense(ny, nx)
	udiv = sparse.ZerosDense(ny, nx)
	vdiv = sparse.ZerosDense(ny, nx)

	for j := 1; j < ny-1; j++ {
		phi := lats.Get(j, 0) * math.Pi / 180
		cos := math.Cos(phi)
		dphi := (lats.Get(j+1, 0) - lats.Get(j-1, 0)) * math.Pi / 180
		dlam := (lons.Get(j, 2) - lons.Get(j, 0)) * math.Pi / 180
		for i := 1; i < nx-1; i++ {
			dpsidy := (psi.Get(j+1, i) - psi.Get(j-1, i)) / (earthRadius * dphi)
			dpsidx := (psi.Get(j, i+1) - psi.Get(j, i-1)) / (earthRadius * cos * dlam)
			dchidy := (chi.Get(j+1, i) - chi.Get(j-1, i)) / (earthRadius * dphi)
			dchidx := (chi.Get(j, i+1) - chi.Get(j, i-1)) / (earthRadius * cos * dlam)
			urot.Set(-dpsidy, j, i)
			vrot.Set(dpsidx, j, i)
			udiv.Set(dchidx, j, i)
			vdiv.Set(dchidy, j, i)
		}
	}
	return psi, chi, urot, vrot, udiv, vdiv
}
