package analysis

import (
	"math"
	"testing"

	"bitbucket.org/ctessum/sparse"
	"github.com/stretchr/testify/assert"
)

func testMesh(ny, nx int, lat0, lon0, step float64) (*sparse.DenseArray, *sparse.DenseArray) {
	lats := sparse.ZerosDense(ny, nx)
	lons := sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			lats.Set(lat0+step*float64(j), j, i)
			lons.Set(lon0+step*float64(i), j, i)
		}
	}
	return lats, lons
}

func TestVorticityAndDivergence_ConstantWind(t *testing.T) {
	lats, lons := testMesh(5, 5, 20, -80, 0.5)
	u := sparse.ZerosDense(5, 5)
	v := sparse.ZerosDense(5, 5)
	for i := range u.Elements {
		u.Elements[i] = 12
		v.Elements[i] = -4
	}

	vort := Vorticity(u, v, lats, lons)
	div := Divergence(u, v, lats, lons)
	for i := range vort.Elements {
		assert.InDelta(t, 0, vort.Elements[i], 1e-15)
		assert.InDelta(t, 0, div.Elements[i], 1e-15)
	}
}

func TestVorticity_ShearSign(t *testing.T) {
	// Westerly flow strengthening northward carries negative relative
	// vorticity in the northern hemisphere.
	lats, lons := testMesh(5, 5, 20, -80, 0.5)
	u := sparse.ZerosDense(5, 5)
	v := sparse.ZerosDense(5, 5)
	for j := 0; j < 5; j++ {
		for i := 0; i < 5; i++ {
			u.Set(5*float64(j), j, i)
		}
	}

	vort := Vorticity(u, v, lats, lons)
	assert.Negative(t, vort.Get(2, 2))
	// Boundary rows are left at zero.
	assert.Zero(t, vort.Get(0, 2))
	assert.Zero(t, vort.Get(4, 2))
}

func TestDivergence_StretchingSign(t *testing.T) {
	lats, lons := testMesh(5, 5, 20, -80, 0.5)
	u := sparse.ZerosDense(5, 5)
	v := sparse.ZerosDense(5, 5)
	for j := 0; j < 5; j++ {
		for i := 0; i < 5; i++ {
			u.Set(5*float64(i), j, i)
		}
	}

	div := Divergence(u, v, lats, lons)
	assert.Positive(t, div.Get(2, 2))
}

func TestPoissonSOR_ZeroForcing(t *testing.T) {
	lats, lons := testMesh(7, 7, 20, -80, 0.5)
	rhs := sparse.ZerosDense(7, 7)

	f := PoissonSOR(rhs, lats, lons)
	for i := range f.Elements {
		assert.Zero(t, f.Elements[i])
	}
}

func TestPoissonSOR_SatisfiesDiscreteLaplacian(t *testing.T) {
	ny, nx := 15, 15
	lats, lons := testMesh(ny, nx, 20, -80, 0.5)
	rhs := sparse.ZerosDense(ny, nx)
	rhs.Set(1e-9, 7, 7)

	f := PoissonSOR(rhs, lats, lons)

	dphi := 0.5 * math.Pi / 180
	dlam := 0.5 * math.Pi / 180
	dy := earthRadius * dphi
	for j := 1; j < ny-1; j++ {
		phi := lats.Get(j, 0) * math.Pi / 180
		dx := earthRadius * math.Cos(phi) * dlam
		cx, cy := 1/(dx*dx), 1/(dy*dy)
		for i := 1; i < nx-1; i++ {
			lap := cx*(f.Get(j, i+1)+f.Get(j, i-1)-2*f.Get(j, i)) +
				cy*(f.Get(j+1, i)+f.Get(j-1, i)-2*f.Get(j, i))
			assert.InDelta(t, rhs.Get(j, i), lap, 5e-11)
		}
	}
}

func TestWindPartition_CalmAtmosphere(t *testing.T) {
	lats, lons := testMesh(5, 5, 20, -80, 0.5)
	u := sparse.ZerosDense(5, 5)
	v := sparse.ZerosDense(5, 5)

	psi, chi, urot, vrot, udiv, vdiv := WindPartition(u, v, lats, lons)
	for _, arr := range []*sparse.DenseArray{psi, chi, urot, vrot, udiv, vdiv} {
		for i := range arr.Elements {
			assert.Zero(t, arr.Elements[i])
		}
	}
}
