package diag

import (
	"log/slog"
	"math"

	"bitbucket.org/ctessum/sparse"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
	"github.com/couchcryptid/tcdiag-service/internal/schema"
)

// Thermodynamic constants for the potential-intensity estimate.
const (
	cpd       = 1005.7  // J/(kg·K), dry air specific heat
	latentVap = 2.555e6 // J/kg, latent heat of vaporization
	rd        = 287.04  // J/(kg·K)
	epsilonWV = 0.622   // Rd/Rv
	ckOverCd  = 0.9     // exchange coefficient ratio, BE2002
)

// PIOptions are the potential-intensity parameters.
type PIOptions struct {
	MSLPMax     float64 // Pa, cap on the reported minimum pressure
	ZMax        float64 // m, terrain cutoff: columns above this get NaN
	WriteOutput bool
	OutputFile  string
}

var piSchema = schema.Schema{
	Name: "tcpi",
	Keys: []schema.Key{
		{Name: "mslp_max", Type: schema.Float, Default: 1013.25},
		{Name: "zmax", Type: schema.Float, Default: 10.0},
		{Name: "write_output", Type: schema.Bool, Default: false},
		{Name: "output_file", Type: schema.String, Default: "tcdiags.tcpi.nc"},
	},
}

// ParsePIOptions validates the tcpi parameter block. mslp_max is declared in
// hPa, matching operational convention, and converted here.
func ParsePIOptions(doc map[string]any, logger *slog.Logger) (PIOptions, error) {
	rec, err := schema.Validate(doc, piSchema, logger)
	if err != nil {
		return PIOptions{}, err
	}
	logger.Info("validated tcpi options\n" + rec.Table())
	return PIOptions{
		MSLPMax:     rec.Float("mslp_max") * 100,
		ZMax:        rec.Float("zmax"),
		WriteOutput: rec.Bool("write_output"),
		OutputFile:  rec.String("output_file"),
	}, nil
}

// PotentialIntensity computes the Bister-Emanuel metrics for every grid
// column at or below the terrain cutoff. Columns above it get NaN.
func PotentialIntensity(in Inputs, opts PIOptions, logger *slog.Logger) (*domain.PotentialIntensity, error) {
	temp, err := in.get("temperature")
	if err != nil {
		return nil, err
	}
	pres, err := in.get("pressure")
	if err != nil {
		return nil, err
	}
	mixr, err := in.get("mixing_ratio")
	if err != nil {
		return nil, err
	}
	pslp, err := in.get("sea_level_pressure")
	if err != nil {
		return nil, err
	}
	zsfc, err := in.get("surface_height")
	if err != nil {
		return nil, err
	}

	ny, nx := temp.NLat(), temp.NLon()
	nz := temp.NLev()
	logger.Info("computing potential intensity", "columns", ny*nx, "levels", nz)

	out := &domain.PotentialIntensity{
		VMax:       sparse.ZerosDense(ny, nx),
		PMin:       sparse.ZerosDense(ny, nx),
		TOut:       sparse.ZerosDense(ny, nx),
		POut:       sparse.ZerosDense(ny, nx),
		ComputedAt: domain.Now(),
	}

	tcol := make([]float64, nz)
	pcol := make([]float64, nz)
	qcol := make([]float64, nz)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			if zsfc.Data.Get(j, i) > opts.ZMax {
				out.VMax.Set(math.NaN(), j, i)
				out.PMin.Set(math.NaN(), j, i)
				out.TOut.Set(math.NaN(), j, i)
				out.POut.Set(math.NaN(), j, i)
				continue
			}
			for k := 0; k < nz; k++ {
				tcol[k] = temp.Data.Get(k, j, i)
				pcol[k] = pres.Data.Get(k, j, i)
				qcol[k] = mixr.Data.Get(k, j, i)
			}
			vmax, pmin, tout, pout := piColumn(tcol[0], pslp.Data.Get(j, i), tcol, pcol, qcol)
			if pmin > opts.MSLPMax {
				pmin = opts.MSLPMax
			}
			out.VMax.Set(vmax, j, i)
			out.PMin.Set(pmin, j, i)
			out.TOut.Set(tout, j, i)
			out.POut.Set(pout, j, i)
		}
	}
	return out, nil
}

// piColumn evaluates the BE2002 potential intensity for one column:
//
//	vmax² = (Ck/Cd) · Ts/To · (Ts − To)/To · (k*s − k)
//
// with k*s the saturation moist enthalpy at the sea surface, k the boundary
// layer moist enthalpy, and To the outflow temperature taken as the coldest
// level of the sounding. pmin follows from the cyclostrophic pressure drop.
func piColumn(sst, slp float64, temp, pres, mixr []float64) (vmax, pmin, tout, pout float64) {
	tout = temp[0]
	pout = pres[0]
	for k := range temp {
		if temp[k] < tout {
			tout = temp[k]
			pout = pres[k]
		}
	}
	if tout >= sst || tout <= 0 {
		return math.NaN(), math.NaN(), tout, pout
	}

	qs := satMixingRatio(sst, slp)
	kSat := cpd*sst + latentVap*qs
	kAir := cpd*temp[0] + latentVap*mixr[0]
	disequilibrium := kSat - kAir
	if disequilibrium <= 0 {
		return 0, slp, tout, pout
	}

	efficiency := (sst - tout) / tout
	v2 := ckOverCd * efficiency * disequilibrium * sst / tout
	vmax = math.Sqrt(v2)
	pmin = slp * math.Exp(-v2/(2*rd*sst))
	return vmax, pmin, tout, pout
}

// satMixingRatio returns the saturation mixing ratio over water at
// temperature t (K) and pressure p (Pa), from the Bolton (1980) saturation
// vapor pressure fit.
func satMixingRatio(t, p float64) float64 {
	tc := t - 273.15
	es := 611.2 * math.Exp(17.67*tc/(tc+243.5))
	return epsilonWV * es / (p - es)
}
