package diag

import (
	"log/slog"
	"math"

	"bitbucket.org/ctessum/sparse"

	"github.com/couchcryptid/tcdiag-service/internal/analysis"
	"github.com/couchcryptid/tcdiag-service/internal/domain"
	"github.com/couchcryptid/tcdiag-service/internal/interp"
	"github.com/couchcryptid/tcdiag-service/internal/schema"
)

// MSIOptions are the multi-scale intensity parameters.
type MSIOptions struct {
	DRho      float64 // m, radial resolution
	DPhi      float64 // radians, azimuthal resolution
	MaxRadius float64 // m
	MaxWN     int

	WriteOutput bool
	OutputFile  string // %s expands to the TC identifier
}

var msiSchema = schema.Schema{
	Name: "tcmsi",
	Keys: []schema.Key{
		{Name: "drho", Type: schema.Float, Default: 10000.0},
		{Name: "dphi", Type: schema.Float, Default: 5.0},
		{Name: "max_radius", Type: schema.Float, Default: 1000000.0},
		{Name: "max_wn", Type: schema.Int, Default: 3},
		{Name: "write_output", Type: schema.Bool, Default: false},
		{Name: "output_file", Type: schema.String, Default: "tcdiags.tcmsi.%s.nc"},
	},
}

// ParseMSIOptions validates the tcmsi parameter block. dphi is declared in
// degrees and converted to radians.
func ParseMSIOptions(doc map[string]any, logger *slog.Logger) (MSIOptions, error) {
	rec, err := schema.Validate(doc, msiSchema, logger)
	if err != nil {
		return MSIOptions{}, err
	}
	logger.Info("validated tcmsi options\n" + rec.Table())
	return MSIOptions{
		DRho:        rec.Float("drho"),
		DPhi:        rec.Float("dphi") * math.Pi / 180,
		MaxRadius:   rec.Float("max_radius"),
		MaxWN:       rec.Int("max_wn"),
		WriteOutput: rec.Bool("write_output"),
		OutputFile:  rec.String("output_file"),
	}, nil
}

// MultiScale computes the wavenumber decomposition of the 10-meter wind
// field for every TC fix.
func MultiScale(in Inputs, fixes []domain.TCFix, opts MSIOptions, logger *slog.Logger) (map[string]*domain.MultiScaleIntensity, error) {
	uwind, err := in.get("uwind")
	if err != nil {
		return nil, err
	}
	vwind, err := in.get("vwind")
	if err != nil {
		return nil, err
	}
	height, err := in.get("height")
	if err != nil {
		return nil, err
	}

	logger.Info("computing the 10-meter wind field magnitude")
	wnd10m := wind10m(uwind, vwind, height)
	grid := domain.PolarGrid{MaxRadius: opts.MaxRadius, DRadius: opts.DRho, DAzimuth: opts.DPhi}

	results := make(map[string]*domain.MultiScaleIntensity, len(fixes))
	for _, fix := range fixes {
		logger.Info("projecting 10-meter winds to TC-relative polar grid",
			"tcid", fix.ID, "lat", fix.Lat, "lon", fix.Lon)
		polar := interp.FillAzimuthal(interp.Project(wnd10m, fix, grid))

		spec, err := analysis.Decompose(polar, opts.MaxWN)
		if err != nil {
			return nil, err
		}

		results[fix.ID] = msiMetrics(fix, polar, spec)
		logMSITable(logger, results[fix.ID])
	}
	return results, nil
}

// wind10m builds the wind magnitude interpolated to 10 m elevation. Columns
// where the 10 m surface is below the lowest model level fall back to the
// lowest-level magnitude.
func wind10m(uwind, vwind, height domain.GeoField) domain.GeoField {
	mag := sparse.ZerosDense(uwind.Data.Shape...)
	for i := range mag.Elements {
		mag.Elements[i] = math.Hypot(uwind.Data.Elements[i], vwind.Data.Elements[i])
	}
	at10m := interp.ToLevel(mag, height.Data, 10.0)
	ny, nx := at10m.Shape[0], at10m.Shape[1]
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			if math.IsNaN(at10m.Get(j, i)) {
				at10m.Set(mag.Get(0, j, i), j, i)
			}
		}
	}
	return domain.GeoField{
		Name:  "wnds10m",
		Units: "m/s",
		Data:  at10m,
		Lats:  uwind.Lats,
		Lons:  uwind.Lons,
	}
}

// msiMetrics extracts the scalar summary attributes from the un-truncated
// polar field and its spectrum.
func msiMetrics(fix domain.TCFix, polar domain.PolarField, spec domain.WavenumberSpectrum) *domain.MultiScaleIntensity {
	vmax, rmw, azRad := analysis.MaxLocation(polar)
	azDeg := azRad * 180 / math.Pi
	latRMW, lonRMW := domain.BearingGeoloc(fix.Lat, fix.Lon, azDeg, rmw)

	wnMax := make([]float64, len(spec.Components))
	for wn, c := range spec.Components {
		wnMax[wn] = maxElement(c.Elements)
	}

	wn0p1 := spec.Components[0].Copy()
	if len(spec.Components) > 1 {
		wn0p1.AddDense(spec.Components[1])
	}
	wn0p1Max := maxElement(wn0p1.Elements)

	out := &domain.MultiScaleIntensity{
		Fix:        fix,
		Wind10m:    polar,
		Spectrum:   spec,
		VMax:       vmax,
		RMW:        rmw,
		AzimuthRMW: azDeg,
		LatRMW:     latRMW,
		LonRMW:     lonRMW,
		WN0MSI:     wnMax[0],
		WN0P1MSI:   wn0p1Max,
		EpsiMSI:    vmax - wn0p1Max,
		WNMax:      wnMax,
		ComputedAt: domain.Now(),
	}
	if len(wnMax) > 1 {
		out.WN1MSI = wnMax[1]
	}
	return out
}

func maxElement(vals []float64) float64 {
	out := math.Inf(-1)
	for _, v := range vals {
		if !math.IsNaN(v) && v > out {
			out = v
		}
	}
	return out
}

func logMSITable(logger *slog.Logger, m *domain.MultiScaleIntensity) {
	logger.Info("multi-scale intensity summary",
		"tcid", m.Fix.ID,
		"vmax_mps", m.VMax,
		"rmw_m", m.RMW,
		"azimuth_rmw_deg", m.AzimuthRMW,
		"lat_rmw", m.LatRMW,
		"lon_rmw", m.LonRMW,
		"wn0_msi", m.WN0MSI,
		"wn1_msi", m.WN1MSI,
		"wn0p1_msi", m.WN0P1MSI,
		"epsi_msi", m.EpsiMSI,
	)
}
