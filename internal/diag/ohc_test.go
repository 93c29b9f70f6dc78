package diag

import (
	"testing"

	"bitbucket.org/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// oceanColumn builds single-column ocean_temperature (kelvin) and depth
// fields from per-level values.
func oceanColumn(tempsC, depths []float64) Inputs {
	nt := sparse.ZerosDense(len(tempsC), 1, 1)
	nd := sparse.ZerosDense(len(depths), 1, 1)
	for k := range tempsC {
		nt.Set(tempsC[k]+273.15, k, 0, 0)
		nd.Set(depths[k], k, 0, 0)
	}
	return Inputs{
		"ocean_temperature": {Name: "ocean_temperature", Units: "K", Data: nt},
		"depth":             {Name: "depth", Units: "m", Data: nd},
	}
}

func ohcOpts() OHCOptions {
	return OHCOptions{DeltaZ: 0.5, FillValue: 0, InterpType: "linear", Isotherm: 26}
}

func TestOceanHeat_WarmColumn(t *testing.T) {
	in := oceanColumn([]float64{28, 27, 26.5, 25, 20}, []float64{0, 25, 50, 75, 100})

	res, err := OceanHeat(in, ohcOpts(), discard())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 26.0, res.Isotherm)

	// 26 C sits a third of the way through the 50-75 m layer.
	assert.InDelta(t, 50+25.0/3, res.IsothermDepth.Get(0, 0), 1e-9)

	// Piecewise-linear excess temperature integrates to 58.33 K·m:
	// (2+1)/2·25 + (1+0.5)/2·25 + 0.5/2·(25/3).
	want := seawaterDensity * seawaterCp * (37.5 + 18.75 + 25.0/12)
	assert.InDelta(t, want, res.TCHP.Get(0, 0), want*1e-4)
}

func TestOceanHeat_IsothermNeverBracketed(t *testing.T) {
	in := oceanColumn([]float64{29, 28.5, 28}, []float64{0, 50, 100})
	opts := ohcOpts()
	opts.FillValue = -99

	res, err := OceanHeat(in, opts, discard())
	require.NoError(t, err)
	assert.Equal(t, -99.0, res.IsothermDepth.Get(0, 0))
	assert.Equal(t, 0.0, res.TCHP.Get(0, 0))

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.IsothermNotFoundWarning, res.Warnings[0].Kind)
	assert.Contains(t, res.Warnings[0].Message, "1 of 1 columns")
}

func TestOceanHeat_IsothermAtSurface(t *testing.T) {
	in := oceanColumn([]float64{26, 24, 22}, []float64{0, 50, 100})

	res, err := OceanHeat(in, ohcOpts(), discard())
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.IsothermDepth.Get(0, 0))
	assert.Equal(t, 0.0, res.TCHP.Get(0, 0), "no water warmer than the isotherm above it")
}

func TestOceanHeat_NearestInterp(t *testing.T) {
	in := oceanColumn([]float64{28, 27, 26.5, 25, 20}, []float64{0, 25, 50, 75, 100})
	opts := ohcOpts()
	opts.InterpType = "nearest"

	res, err := OceanHeat(in, opts, discard())
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.IsothermDepth.Get(0, 0))
}

func TestOceanHeat_MissingVariable(t *testing.T) {
	in := oceanColumn([]float64{28}, []float64{0})
	delete(in, "depth")

	_, err := OceanHeat(in, ohcOpts(), discard())
	var missing *domain.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "depth", missing.Variable)
}

func TestParseOHCOptions_Defaults(t *testing.T) {
	opts, err := ParseOHCOptions(map[string]any{}, discard())
	require.NoError(t, err)
	assert.Equal(t, 0.5, opts.DeltaZ)
	assert.Equal(t, 0.0, opts.FillValue)
	assert.Equal(t, "linear", opts.InterpType)
	assert.Equal(t, 26.0, opts.Isotherm)
}

func TestParseOHCOptions_Invalid(t *testing.T) {
	var cfgErr *domain.ConfigError

	_, err := ParseOHCOptions(map[string]any{"interp_type": "cubic"}, discard())
	require.ErrorAs(t, err, &cfgErr)

	_, err = ParseOHCOptions(map[string]any{"deltaz": -1.0}, discard())
	require.ErrorAs(t, err, &cfgErr)
}
