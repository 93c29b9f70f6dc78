package analysis

import (
	"math"
	"testing"

	"bitbucket.org/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

func polarField(nr, na int, fn func(ri, ai int) float64) domain.PolarField {
	radii := make([]float64, nr)
	azimuths := make([]float64, na)
	data := sparse.ZerosDense(nr, na)
	for ri := 0; ri < nr; ri++ {
		radii[ri] = float64(ri) * 50e3
		for ai := 0; ai < na; ai++ {
			azimuths[ai] = 2 * math.Pi * float64(ai) / float64(na)
			data.Set(fn(ri, ai), ri, ai)
		}
	}
	return domain.PolarField{Radii: radii, Azimuths: azimuths, Data: data}
}

func TestDecompose_Reconstruction(t *testing.T) {
	// Arbitrary smooth field: the retained components plus the residual must
	// rebuild it to floating-point tolerance.
	p := polarField(4, 16, func(ri, ai int) float64 {
		az := 2 * math.Pi * float64(ai) / 16
		return 20 + float64(ri) + 5*math.Cos(az) + 2*math.Sin(3*az+0.4)
	})

	spec, err := Decompose(p, 2)
	require.NoError(t, err)
	require.Len(t, spec.Components, 3)

	total := spec.Total()
	total.AddDense(spec.Residual)
	for i, want := range p.Data.Elements {
		assert.InDelta(t, want, total.Elements[i], 1e-9)
	}
}

func TestDecompose_UniformField(t *testing.T) {
	p := polarField(3, 8, func(ri, ai int) float64 { return 10 })

	spec, err := Decompose(p, 2)
	require.NoError(t, err)

	for _, v := range spec.Components[0].Elements {
		assert.InDelta(t, 10, v, 1e-9)
	}
	for wn := 1; wn <= 2; wn++ {
		for _, v := range spec.Components[wn].Elements {
			assert.InDelta(t, 0, v, 1e-9)
		}
	}
	for _, v := range spec.Residual.Elements {
		assert.InDelta(t, 0, v, 1e-9)
	}
}

func TestDecompose_IsolatesWavenumberOne(t *testing.T) {
	p := polarField(2, 16, func(ri, ai int) float64 {
		az := 2 * math.Pi * float64(ai) / 16
		return 3 * math.Cos(az)
	})

	spec, err := Decompose(p, 1)
	require.NoError(t, err)

	for ai := 0; ai < 16; ai++ {
		az := 2 * math.Pi * float64(ai) / 16
		assert.InDelta(t, 0, spec.Components[0].Get(0, ai), 1e-9)
		assert.InDelta(t, 3*math.Cos(az), spec.Components[1].Get(0, ai), 1e-9)
	}
}

func TestDecompose_RejectsNyquistViolation(t *testing.T) {
	p := polarField(2, 8, func(ri, ai int) float64 { return 0 })

	_, err := Decompose(p, 4)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	_, err = Decompose(p, -1)
	require.ErrorAs(t, err, &cfgErr)

	_, err = Decompose(p, 3)
	assert.NoError(t, err)
}

func TestDecompose_OddAzimuthCount(t *testing.T) {
	// Nine samples support wavenumbers up to four: the bound is samples/2,
	// not the floor of the integer division.
	p := polarField(2, 9, func(ri, ai int) float64 {
		az := 2 * math.Pi * float64(ai) / 9
		return 6 + 2*math.Cos(az)
	})

	spec, err := Decompose(p, 4)
	require.NoError(t, err)
	require.Len(t, spec.Components, 5)

	total := spec.Total()
	total.AddDense(spec.Residual)
	for i, want := range p.Data.Elements {
		assert.InDelta(t, want, total.Elements[i], 1e-9)
	}

	_, err = Decompose(p, 5)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestMaxLocation(t *testing.T) {
	p := polarField(3, 4, func(ri, ai int) float64 { return 1 })
	p.Data.Set(math.NaN(), 0, 0)
	p.Data.Set(9, 2, 3)

	v, r, az := MaxLocation(p)
	assert.Equal(t, 9.0, v)
	assert.Equal(t, 100e3, r)
	assert.InDelta(t, 3*math.Pi/2, az, 1e-12)
}
