package domain

import (
	"time"

	"bitbucket.org/ctessum/sparse"
)

// PotentialIntensity holds the Bister-Emanuel (2002) metrics on the analysis
// grid. All arrays are 2-D (lat, lon); columns above the terrain cutoff are
// NaN.
type PotentialIntensity struct {
	VMax *sparse.DenseArray // maximum potential wind speed, m/s
	PMin *sparse.DenseArray // minimum central pressure, Pa
	TOut *sparse.DenseArray // outflow temperature, K
	POut *sparse.DenseArray // outflow level pressure, Pa

	ComputedAt time.Time
}

// MultiScaleIntensity holds the Vukicevic et al. (2014) wavenumber metrics
// for one TC fix.
type MultiScaleIntensity struct {
	Fix TCFix

	// Wind10m is the 10-meter wind magnitude on the TC-relative polar grid.
	Wind10m PolarField

	// Spectrum is the azimuthal wavenumber decomposition of Wind10m.
	Spectrum WavenumberSpectrum

	VMax       float64 // maximum 10-m wind speed, m/s
	RMW        float64 // radius of maximum wind, m
	AzimuthRMW float64 // azimuth of maximum wind, degrees clockwise from north
	LatRMW     float64 // geographic latitude of the RMW, degrees
	LonRMW     float64 // geographic longitude of the RMW, degrees

	WN0MSI   float64 // wavenumber-0 maximum wind speed, m/s
	WN1MSI   float64 // wavenumber-1 maximum wind speed, m/s
	WN0P1MSI float64 // wavenumber (0+1) maximum wind speed, m/s
	EpsiMSI  float64 // residual wind speed vmax − wn0p1, m/s

	// WNMax holds the per-wavenumber maximum magnitudes for the summary table.
	WNMax []float64

	ComputedAt time.Time
}

// SteeringFlow holds the Velden-Leslie (1991) steering diagnostics: the
// filtered environmental wind partitioned per requested isobaric layer, plus
// the full-field streamfunction and velocity potential.
type SteeringFlow struct {
	Layers []SteeringLayer

	Psi *sparse.DenseArray // streamfunction per level, (level, lat, lon), m²/s
	Chi *sparse.DenseArray // velocity potential per level, (level, lat, lon), m²/s

	Warnings []Warning

	ComputedAt time.Time
}

// OceanHeatContent holds the Leipper-Volgenau (1972) upper-ocean metrics.
// Arrays are 2-D (lat, lon).
type OceanHeatContent struct {
	Isotherm      float64            // target isotherm, degC
	IsothermDepth *sparse.DenseArray // depth of the isotherm, m, fill value where not found
	TCHP          *sparse.DenseArray // tropical cyclone heat potential, J/m²

	Warnings []Warning

	ComputedAt time.Time
}

// TCDiagnostics aggregates the computed applications for one orchestrator
// run, keyed by TC identifier where the diagnostic is TC-relative.
type TCDiagnostics struct {
	PotentialIntensity *PotentialIntensity
	MultiScale         map[string]*MultiScaleIntensity
	Steering           *SteeringFlow
	OceanHeat          *OceanHeatContent

	// Failed records per-application errors; a failed application leaves its
	// result nil without aborting the rest of the run.
	Failed map[string]error
}
