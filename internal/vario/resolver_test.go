package vario

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"bitbucket.org/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
	"github.com/couchcryptid/tcdiag-service/internal/units"
)

// fakeReader serves arrays by variable name, ignoring the file path.
type fakeReader struct {
	vars map[string]*sparse.DenseArray
}

func (f *fakeReader) ReadVar(_ context.Context, path, name string) (*sparse.DenseArray, error) {
	arr, ok := f.vars[name]
	if !ok {
		return nil, &domain.MissingVariableError{Variable: name, Source: path}
	}
	return arr.Copy(), nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResolver(vars map[string]*sparse.DenseArray) *Resolver {
	return NewResolver(&fakeReader{vars: vars}, units.NewSystem(), discard())
}

func arr2(vals [][]float64) *sparse.DenseArray {
	a := sparse.ZerosDense(len(vals), len(vals[0]))
	for j, row := range vals {
		for i, v := range row {
			a.Set(v, j, i)
		}
	}
	return a
}

func TestResolve_ScaleAndUnitConversion(t *testing.T) {
	r := newResolver(map[string]*sparse.DenseArray{
		"pres": arr2([][]float64{{1000, 1010}, {990, 995}}),
	})

	// scale_mult applies before the hPa-to-Pa conversion.
	f, err := r.Resolve(context.Background(), Spec{
		Name: "pressure", Units: "hPa", File: "a.nc", Variable: "pres",
		ScaleMult: 1, ScaleAdd: 3.25,
	})
	require.NoError(t, err)

	assert.Equal(t, "Pa", f.Units)
	assert.InDelta(t, 100325, f.Data.Get(0, 0), 1e-6)
	assert.InDelta(t, 101325, f.Data.Get(0, 1), 1e-6)
}

func TestResolve_Squeeze(t *testing.T) {
	data := sparse.ZerosDense(1, 2, 2)
	for i := range data.Elements {
		data.Elements[i] = float64(i)
	}
	r := newResolver(map[string]*sparse.DenseArray{"tmp": data})

	f, err := r.Resolve(context.Background(), Spec{
		Name: "temperature", Units: "K", File: "a.nc", Variable: "tmp",
		ScaleMult: 1, Squeeze: true, SqueezeAxis: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, f.Data.Shape)
	assert.InDelta(t, 3, f.Data.Get(1, 1), 1e-12)
}

func TestResolve_SqueezeWrongLength(t *testing.T) {
	r := newResolver(map[string]*sparse.DenseArray{
		"tmp": sparse.ZerosDense(2, 2, 2),
	})
	_, err := r.Resolve(context.Background(), Spec{
		Name: "temperature", Units: "K", File: "a.nc", Variable: "tmp",
		ScaleMult: 1, Squeeze: true, SqueezeAxis: 0,
	})
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolve_FlipLat(t *testing.T) {
	r := newResolver(map[string]*sparse.DenseArray{
		"tmp": arr2([][]float64{{1, 2}, {3, 4}}),
	})
	f, err := r.Resolve(context.Background(), Spec{
		Name: "temperature", Units: "K", File: "a.nc", Variable: "tmp",
		ScaleMult: 1, FlipLat: true,
	})
	require.NoError(t, err)
	assert.InDelta(t, 3, f.Data.Get(0, 0), 1e-12)
	assert.InDelta(t, 1, f.Data.Get(1, 0), 1e-12)
}

func TestResolve_FlipZ(t *testing.T) {
	data := sparse.ZerosDense(2, 1, 1)
	data.Set(10, 0, 0, 0)
	data.Set(20, 1, 0, 0)
	r := newResolver(map[string]*sparse.DenseArray{"tmp": data})

	f, err := r.Resolve(context.Background(), Spec{
		Name: "temperature", Units: "K", File: "a.nc", Variable: "tmp",
		ScaleMult: 1, FlipZ: true,
	})
	require.NoError(t, err)
	assert.InDelta(t, 20, f.Data.Get(0, 0, 0), 1e-12)
	assert.InDelta(t, 10, f.Data.Get(1, 0, 0), 1e-12)
}

func TestResolve_UnknownUnit(t *testing.T) {
	r := newResolver(nil)
	_, err := r.Resolve(context.Background(), Spec{
		Name: "temperature", Units: "furlong", File: "a.nc", Variable: "tmp", ScaleMult: 1,
	})
	var unitErr *domain.UnitError
	require.ErrorAs(t, err, &unitErr)
}

func TestResolve_MissingVariable(t *testing.T) {
	r := newResolver(nil)
	_, err := r.Resolve(context.Background(), Spec{
		Name: "temperature", Units: "K", File: "a.nc", Variable: "tmp", ScaleMult: 1,
	})
	var missing *domain.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "tmp", missing.Variable)
}

func TestBroadcastGrid(t *testing.T) {
	lat := sparse.ZerosDense(2)
	lat.Elements[0], lat.Elements[1] = 25, 24
	lon := sparse.ZerosDense(3)
	lon.Elements[0], lon.Elements[1], lon.Elements[2] = -75, -74, -73

	fields := map[string]domain.GeoField{
		"latitude":  {Name: "latitude", Data: lat},
		"longitude": {Name: "longitude", Data: lon},
		"temperature": {
			Name: "temperature", Data: sparse.ZerosDense(2, 3),
		},
	}
	require.NoError(t, BroadcastGrid(fields, "latitude", "longitude", discard()))

	tmp := fields["temperature"]
	require.Equal(t, []int{2, 3}, tmp.Lats.Shape)
	assert.InDelta(t, 25, tmp.Lats.Get(0, 2), 1e-12)
	assert.InDelta(t, 24, tmp.Lats.Get(1, 0), 1e-12)
	assert.InDelta(t, -73, tmp.Lons.Get(1, 2), 1e-12)

	// The coordinate fields themselves are promoted to 2-D.
	assert.Equal(t, []int{2, 3}, fields["latitude"].Data.Shape)
}

func TestBroadcastGrid_MissingCoordinate(t *testing.T) {
	err := BroadcastGrid(map[string]domain.GeoField{}, "latitude", "longitude", discard())
	var missing *domain.MissingVariableError
	require.ErrorAs(t, err, &missing)
}
