package diag

import (
	"log/slog"
	"math"

	"bitbucket.org/ctessum/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/tcdiag-service/internal/analysis"
	"github.com/couchcryptid/tcdiag-service/internal/domain"
	"github.com/couchcryptid/tcdiag-service/internal/interp"
	"github.com/couchcryptid/tcdiag-service/internal/schema"
)

// SteeringOptions are the steering-flow parameters.
type SteeringOptions struct {
	IsoLevels     []float64 // Pa, isobaric level boundaries, surface first
	Distance      float64   // m, radius of the TC window removed from the environment
	RelaxDistance float64   // m, outer edge of the linear relaxation zone
	NCoeffs       int       // singular triplets retained by the spatial filter
}

var steeringSchema = schema.Schema{
	Name: "tcstrflw",
	Keys: []schema.Key{
		{Name: "isolevels", Type: schema.Floats, Default: []float64{850, 700, 500, 300, 200}},
		{Name: "distance", Type: schema.Float, Default: 800000.0},
		{Name: "relax_distance", Type: schema.Float, Default: 1200000.0},
		{Name: "ncoeffs", Type: schema.Int, Default: 5},
	},
}

// ParseSteeringOptions validates the tcstrflw parameter block. isolevels are
// declared in hPa and converted.
func ParseSteeringOptions(doc map[string]any, logger *slog.Logger) (SteeringOptions, error) {
	rec, err := schema.Validate(doc, steeringSchema, logger)
	if err != nil {
		return SteeringOptions{}, err
	}
	logger.Info("validated tcstrflw options\n" + rec.Table())
	levels := rec.Floats("isolevels")
	out := SteeringOptions{
		IsoLevels:     make([]float64, len(levels)),
		Distance:      rec.Float("distance"),
		RelaxDistance: rec.Float("relax_distance"),
		NCoeffs:       rec.Int("ncoeffs"),
	}
	for i, l := range levels {
		out.IsoLevels[i] = l * 100
	}
	if len(out.IsoLevels) < 2 {
		return SteeringOptions{}, &domain.ConfigError{
			App: "tcstrflw", Reason: "isolevels needs at least two boundaries",
		}
	}
	if out.RelaxDistance < out.Distance {
		return SteeringOptions{}, &domain.ConfigError{
			App: "tcstrflw", Reason: "relax_distance must be at least distance",
		}
	}
	return out, nil
}

// Steering computes the TC-filtered environmental steering flow: winds on
// the requested isobaric levels with the circulation near every fix replaced
// by its SVD-smoothed variant, layer-mean winds per consecutive level pair,
// and the rotational/divergent/harmonic partition of each layer mean.
func Steering(in Inputs, fixes []domain.TCFix, opts SteeringOptions, logger *slog.Logger) (*domain.SteeringFlow, error) {
	uwind, err := in.get("uwind")
	if err != nil {
		return nil, err
	}
	vwind, err := in.get("vwind")
	if err != nil {
		return nil, err
	}
	pressure, err := in.get("pressure")
	if err != nil {
		return nil, err
	}
	lats, lons := uwind.Lats, uwind.Lons

	// Interpolate the wind components to the isobaric levels.
	nlev := len(opts.IsoLevels)
	uIso := make([]*sparse.DenseArray, nlev)
	vIso := make([]*sparse.DenseArray, nlev)
	for k, level := range opts.IsoLevels {
		uIso[k] = interp.ToLevel(uwind.Data, pressure.Data, level)
		vIso[k] = interp.ToLevel(vwind.Data, pressure.Data, level)
	}

	mask := tcMask(fixes, lats, lons, opts.Distance, opts.RelaxDistance, logger)

	result := &domain.SteeringFlow{ComputedAt: domain.Now()}
	uFilt, warnU, err := filterWindow(uIso, mask, opts.NCoeffs)
	if err != nil {
		return nil, err
	}
	vFilt, warnV, err := filterWindow(vIso, mask, opts.NCoeffs)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warnU...)
	result.Warnings = append(result.Warnings, warnV...)
	for _, w := range result.Warnings {
		logger.Warn("steering-flow filter fallback", "kind", string(w.Kind), "detail", w.Message)
	}

	// Streamfunction and velocity potential per isobaric level, from the
	// filtered winds.
	ny, nx := lats.Shape[0], lats.Shape[1]
	result.Psi = sparse.ZerosDense(nlev, ny, nx)
	result.Chi = sparse.ZerosDense(nlev, ny, nx)
	for k := 0; k < nlev; k++ {
		psi := analysis.PoissonSOR(analysis.Vorticity(uFilt[k], vFilt[k], lats, lons), lats, lons)
		chi := analysis.PoissonSOR(analysis.Divergence(uFilt[k], vFilt[k], lats, lons), lats, lons)
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				result.Psi.Set(psi.Get(j, i), k, j, i)
				result.Chi.Set(chi.Get(j, i), k, j, i)
			}
		}
	}

	// Layer means between consecutive boundaries, with the wind partition of
	// each layer-mean field.
	for li := 0; li < nlev-1; li++ {
		bottom, top := opts.IsoLevels[li], opts.IsoLevels[li+1]
		if bottom < top {
			bottom, top = top, bottom
		}
		layer := domain.SteeringLayer{
			Top:    top,
			Bottom: bottom,
			U:      layerMean(uIso, opts.IsoLevels, top, bottom),
			V:      layerMean(vIso, opts.IsoLevels, top, bottom),
			UFilt:  layerMean(uFilt, opts.IsoLevels, top, bottom),
			VFilt:  layerMean(vFilt, opts.IsoLevels, top, bottom),
		}
		_, _, urot, vrot, udiv, vdiv := analysis.WindPartition(layer.UFilt, layer.VFilt, lats, lons)
		layer.URot, layer.VRot = urot, vrot
		layer.UDiv, layer.VDiv = udiv, vdiv
		layer.UHarm = harmonic(layer.UFilt, urot, udiv)
		layer.VHarm = harmonic(layer.VFilt, vrot, vdiv)
		result.Layers = append(result.Layers, layer)

		logger.Info("steering layer computed",
			"top_hpa", top/100, "bottom_hpa", bottom/100,
			"mean_u_mps", meanValid(layer.UFilt), "mean_v_mps", meanValid(layer.VFilt))
	}

	return result, nil
}

// tcMask builds the environment mask: 0 within distance of any fix, 1 beyond
// relax, linear ramp between.
func tcMask(fixes []domain.TCFix, lats, lons *sparse.DenseArray, distance, relax float64, logger *slog.Logger) *sparse.DenseArray {
	mask := sparse.ZerosDense(lats.Shape...)
	for i := range mask.Elements {
		mask.Elements[i] = 1
	}
	for _, fix := range fixes {
		logger.Info("masking TC circulation",
			"tcid", fix.ID, "lat", fix.Lat, "lon", fix.Lon, "distance_m", distance)
		raddist := domain.RadialDistance(fix, lats, lons)
		for i, d := range raddist.Elements {
			switch {
			case d <= distance:
				mask.Elements[i] = 0
			case d < relax:
				ramp := (d - distance) / (relax - distance)
				if ramp < mask.Elements[i] {
					mask.Elements[i] = ramp
				}
			}
		}
	}
	return mask
}

// filterWindow applies the truncated-SVD spatial filter inside the TC
// window. The windowed cells of every level form a (levels × points) matrix;
// the leading ncoeffs singular triplets reconstruct the smoothed field,
// which replaces the original blended by the relaxation mask.
func filterWindow(levels []*sparse.DenseArray, mask *sparse.DenseArray, ncoeffs int) ([]*sparse.DenseArray, []domain.Warning, error) {
	var window []int
	for i, m := range mask.Elements {
		if m < 1 {
			window = append(window, i)
		}
	}

	out := make([]*sparse.DenseArray, len(levels))
	for k := range levels {
		out[k] = levels[k].Copy()
	}
	if len(window) == 0 {
		return out, nil, nil
	}

	m := mat.NewDense(len(levels), len(window), nil)
	for k := range levels {
		for c, idx := range window {
			v := levels[k].Elements[idx]
			if math.IsNaN(v) {
				v = 0
			}
			m.Set(k, c, v)
		}
	}

	smooth, warnings, err := analysis.TruncateSVD(m, ncoeffs)
	if err != nil {
		return nil, warnings, err
	}

	for k := range levels {
		for c, idx := range window {
			orig := levels[k].Elements[idx]
			if math.IsNaN(orig) {
				continue
			}
			w := mask.Elements[idx]
			out[k].Elements[idx] = w*orig + (1-w)*smooth.At(k, c)
		}
	}
	return out, warnings, nil
}

// layerMean computes the pressure-weighted (trapezoidal) mean of the
// isobaric-level fields within [top, bottom]. Weights accumulate per point so
// a NaN level drops out of that column's mean instead of diluting it.
func layerMean(levels []*sparse.DenseArray, plevs []float64, top, bottom float64) *sparse.DenseArray {
	out := sparse.ZerosDense(levels[0].Shape...)
	weights := make([]float64, len(out.Elements))
	for k, p := range plevs {
		if p < top || p > bottom {
			continue
		}
		w := levelWeight(plevs, k, top, bottom)
		for i, v := range levels[k].Elements {
			if !math.IsNaN(v) {
				out.Elements[i] += w * v
				weights[i] += w
			}
		}
	}
	for i := range out.Elements {
		if weights[i] > 0 {
			out.Elements[i] /= weights[i]
		} else {
			out.Elements[i] = math.NaN()
		}
	}
	return out
}

// levelWeight is the trapezoidal pressure weight of level k clipped to the
// layer bounds.
func levelWeight(plevs []float64, k int, top, bottom float64) float64 {
	lo, hi := plevs[k], plevs[k]
	if k > 0 {
		lo = (plevs[k] + plevs[k-1]) / 2
	}
	if k < len(plevs)-1 {
		hi = (plevs[k] + plevs[k+1]) / 2
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo < top {
		lo = top
	}
	if hi > bottom {
		hi = bottom
	}
	if hi < lo {
		return 0
	}
	d := hi - lo
	if d == 0 {
		d = 1
	}
	return d
}

func harmonic(total, rot, div *sparse.DenseArray) *sparse.DenseArray {
	out := total.Copy()
	for i := range out.Elements {
		out.Elements[i] -= rot.Elements[i] + div.Elements[i]
	}
	return out
}

func meanValid(a *sparse.DenseArray) float64 {
	sum, n := 0.0, 0
	for _, v := range a.Elements {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
