package diag

import (
	"math"
	"testing"

	"bitbucket.org/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// coordMesh builds 2-D lat/lon arrays spanning ±span degrees around a center
// at the given step.
func coordMesh(latC, lonC, span, step float64) (*sparse.DenseArray, *sparse.DenseArray) {
	n := int(2*span/step) + 1
	lats := sparse.ZerosDense(n, n)
	lons := sparse.ZerosDense(n, n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			lats.Set(latC-span+step*float64(j), j, i)
			lons.Set(lonC-span+step*float64(i), j, i)
		}
	}
	return lats, lons
}

// uniform3 builds a 3-D field with one constant value per level.
func uniform3(name string, lats, lons *sparse.DenseArray, perLevel ...float64) domain.GeoField {
	ny, nx := lats.Shape[0], lats.Shape[1]
	data := sparse.ZerosDense(len(perLevel), ny, nx)
	for k, v := range perLevel {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				data.Set(v, k, j, i)
			}
		}
	}
	return domain.GeoField{Name: name, Units: "m/s", Data: data, Lats: lats, Lons: lons}
}

func msiInputs() Inputs {
	lats, lons := coordMesh(25, -75, 2, 0.25)
	return Inputs{
		"uwind":  uniform3("uwind", lats, lons, 10, 14),
		"vwind":  uniform3("vwind", lats, lons, 0, 0),
		"height": uniform3("height", lats, lons, 0, 100),
	}
}

func msiOpts() MSIOptions {
	return MSIOptions{
		DRho:      50e3,
		DPhi:      math.Pi / 8,
		MaxRadius: 100e3,
		MaxWN:     3,
	}
}

func TestMultiScale_UniformWind(t *testing.T) {
	fixes := []domain.TCFix{{ID: "13L", Lat: 25, Lon: -75}}

	results, err := MultiScale(msiInputs(), fixes, msiOpts(), discard())
	require.NoError(t, err)
	require.Contains(t, results, "13L")
	m := results["13L"]

	// 10 m wind interpolates between the 0 m and 100 m levels: 10.4 m/s.
	assert.InDelta(t, 10.4, m.VMax, 1e-6)
	assert.Equal(t, 0.0, m.RMW, "uniform field peaks at the first sample, the center")
	assert.InDelta(t, 25, m.LatRMW, 1e-9)
	assert.InDelta(t, -75, m.LonRMW, 1e-9)

	// A uniform field is pure wavenumber zero.
	assert.InDelta(t, 10.4, m.WN0MSI, 1e-6)
	assert.InDelta(t, 0, m.WN1MSI, 1e-6)
	assert.InDelta(t, 10.4, m.WN0P1MSI, 1e-6)
	assert.InDelta(t, 0, m.EpsiMSI, 1e-6)

	require.Len(t, m.Spectrum.Components, 4)
	require.Len(t, m.Wind10m.Radii, 3)
	require.Len(t, m.Wind10m.Azimuths, 16)
}

func TestMultiScale_PerFixResults(t *testing.T) {
	fixes := []domain.TCFix{
		{ID: "13L", Lat: 25, Lon: -75},
		{ID: "14E", Lat: 24.5, Lon: -74.5},
	}

	results, err := MultiScale(msiInputs(), fixes, msiOpts(), discard())
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "14E", results["14E"].Fix.ID)
}

func TestMultiScale_MissingWind(t *testing.T) {
	in := msiInputs()
	delete(in, "vwind")

	_, err := MultiScale(in, nil, msiOpts(), discard())
	var missing *domain.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "vwind", missing.Variable)
}

func TestMultiScale_NyquistViolation(t *testing.T) {
	opts := msiOpts()
	opts.DPhi = math.Pi / 2 // 4 azimuthal samples cannot support wavenumber 3
	_, err := MultiScale(msiInputs(), []domain.TCFix{{ID: "13L", Lat: 25, Lon: -75}}, opts, discard())
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestParseMSIOptions_Defaults(t *testing.T) {
	opts, err := ParseMSIOptions(map[string]any{}, discard())
	require.NoError(t, err)
	assert.Equal(t, 10000.0, opts.DRho)
	assert.InDelta(t, 5*math.Pi/180, opts.DPhi, 1e-12, "degrees convert to radians")
	assert.Equal(t, 1000000.0, opts.MaxRadius)
	assert.Equal(t, 3, opts.MaxWN)
	assert.Equal(t, "tcdiags.tcmsi.%s.nc", opts.OutputFile)
}

func TestWind10m_FallsBackToLowestLevel(t *testing.T) {
	lats, lons := coordMesh(25, -75, 1, 0.5)
	// Lowest model surface already above 10 m: no bracketing interval.
	u := uniform3("uwind", lats, lons, 8, 12)
	v := uniform3("vwind", lats, lons, 6, 0)
	h := uniform3("height", lats, lons, 50, 150)

	f := wind10m(u, v, h)
	assert.InDelta(t, 10, f.Data.Get(0, 0), 1e-12, "hypot of the lowest-level components")
	assert.Equal(t, "m/s", f.Units)
}
