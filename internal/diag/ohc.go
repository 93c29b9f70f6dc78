package diag

import (
	"fmt"
	"log/slog"
	"math"

	"bitbucket.org/ctessum/sparse"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
	"github.com/couchcryptid/tcdiag-service/internal/interp"
	"github.com/couchcryptid/tcdiag-service/internal/schema"
)

// Seawater constants for the heat-content integral.
const (
	seawaterDensity = 1026.0 // kg/m³
	seawaterCp      = 3990.0 // J/(kg·K)
)

// OHCOptions are the ocean-heat-content parameters.
type OHCOptions struct {
	DeltaZ     float64 // m, integration step
	FillValue  float64 // substituted isotherm depth for non-convergent columns
	InterpType string  // "linear" or "nearest"
	Isotherm   float64 // degC, target isotherm
}

var ohcSchema = schema.Schema{
	Name: "tcohc",
	Keys: []schema.Key{
		{Name: "deltaz", Type: schema.Float, Default: 0.5},
		{Name: "fill_value", Type: schema.Float, Default: 0.0},
		{Name: "interp_type", Type: schema.String, Default: "linear"},
		{Name: "isotherm", Type: schema.Float, Default: 26.0},
	},
}

// ParseOHCOptions validates the tcohc parameter block.
func ParseOHCOptions(doc map[string]any, logger *slog.Logger) (OHCOptions, error) {
	rec, err := schema.Validate(doc, ohcSchema, logger)
	if err != nil {
		return OHCOptions{}, err
	}
	logger.Info("validated tcohc options\n" + rec.Table())
	out := OHCOptions{
		DeltaZ:     rec.Float("deltaz"),
		FillValue:  rec.Float("fill_value"),
		InterpType: rec.String("interp_type"),
		Isotherm:   rec.Float("isotherm"),
	}
	if out.InterpType != "linear" && out.InterpType != "nearest" {
		return OHCOptions{}, &domain.ConfigError{
			App:    "tcohc",
			Reason: fmt.Sprintf("interp_type %q is not one of linear, nearest", out.InterpType),
		}
	}
	if out.DeltaZ <= 0 {
		return OHCOptions{}, &domain.ConfigError{App: "tcohc", Reason: "deltaz must be positive"}
	}
	return out, nil
}

// OceanHeat locates the target isotherm per grid column and integrates the
// tropical cyclone heat potential from the surface down to it.
func OceanHeat(in Inputs, opts OHCOptions, logger *slog.Logger) (*domain.OceanHeatContent, error) {
	otemp, err := in.get("ocean_temperature")
	if err != nil {
		return nil, err
	}
	depth, err := in.get("depth")
	if err != nil {
		return nil, err
	}

	nz, ny, nx := otemp.Data.Shape[0], otemp.Data.Shape[1], otemp.Data.Shape[2]
	isoK := opts.Isotherm + 273.15 // resolved temperatures are kelvin

	logger.Info("computing tropical cyclone heat potential",
		"isotherm_degc", opts.Isotherm, "columns", ny*nx)

	out := &domain.OceanHeatContent{
		Isotherm:      opts.Isotherm,
		IsothermDepth: sparse.ZerosDense(ny, nx),
		TCHP:          sparse.ZerosDense(ny, nx),
		ComputedAt:    domain.Now(),
	}

	temps := make([]float64, nz)
	depths := make([]float64, nz)
	unfilled := 0
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			for k := 0; k < nz; k++ {
				temps[k] = otemp.Data.Get(k, j, i)
				depths[k] = depth.Data.Get(k, j, i)
			}
			isoDepth, found := interp.LocateIsotherm(temps, depths, isoK, opts.InterpType, opts.FillValue)
			out.IsothermDepth.Set(isoDepth, j, i)
			if !found {
				unfilled++
				out.TCHP.Set(0, j, i)
				continue
			}
			out.TCHP.Set(columnTCHP(temps, depths, isoK, isoDepth, opts.DeltaZ), j, i)
		}
	}

	if unfilled > 0 {
		w := domain.Warning{
			Kind: domain.IsothermNotFoundWarning,
			Message: fmt.Sprintf("%d of %d columns never bracket the %.1f C isotherm; fill value %.1f substituted",
				unfilled, ny*nx, opts.Isotherm, opts.FillValue),
		}
		out.Warnings = append(out.Warnings, w)
		logger.Warn("isotherm fill value substituted", "columns", unfilled, "fill_value", opts.FillValue)
	}
	return out, nil
}

// columnTCHP integrates ρ·cp·(T − T_iso) from the surface to the isotherm
// depth in deltaz steps, prorating the partial final increment so the
// integral stops exactly at the isotherm.
func columnTCHP(temps, depths []float64, isoK, isoDepth, deltaz float64) float64 {
	if isoDepth <= depths[0] {
		return 0
	}
	total := 0.0
	for z := depths[0]; z < isoDepth; z += deltaz {
		dz := deltaz
		if z+dz > isoDepth {
			dz = isoDepth - z
		}
		t := profileAt(temps, depths, z+dz/2)
		if math.IsNaN(t) {
			continue
		}
		excess := t - isoK
		if excess > 0 {
			total += seawaterDensity * seawaterCp * excess * dz
		}
	}
	return total
}

// profileAt linearly interpolates the (depth, temperature) profile at z.
func profileAt(temps, depths []float64, z float64) float64 {
	for k := 0; k < len(depths)-1; k++ {
		if z >= depths[k] && z <= depths[k+1] {
			w := 0.0
			if depths[k+1] != depths[k] {
				w = (z - depths[k]) / (depths[k+1] - depths[k])
			}
			return (1-w)*temps[k] + w*temps[k+1]
		}
	}
	return math.NaN()
}
