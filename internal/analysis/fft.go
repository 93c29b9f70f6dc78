// Package analysis wraps the spectral and statistical decompositions the
// diagnostics use: azimuthal Fourier analysis, singular-value truncation
// filtering, and the finite-difference Poisson inversion behind the
// streamfunction / velocity-potential wind partition.
package analysis

import (
	"fmt"
	"math"

	"bitbucket.org/ctessum/sparse"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Decompose performs, per radius ring, a forward DFT over the azimuthal
// samples and reconstructs a real spatial component per retained wavenumber
// 0..maxWN. The residual is original minus the sum of retained components,
// which holds to floating-point tolerance by the linearity of the transform.
// maxWN at or above the Nyquist limit (nAzimuth/2) is rejected.
func Decompose(polar domain.PolarField, maxWN int) (domain.WavenumberSpectrum, error) {
	nr := len(polar.Radii)
	na := len(polar.Azimuths)
	if maxWN < 0 || float64(maxWN) >= float64(na)/2 {
		return domain.WavenumberSpectrum{}, &domain.ConfigError{
			App:    "spectral decomposition",
			Reason: fmt.Sprintf("max_wn %d violates the Nyquist limit for %d azimuthal samples", maxWN, na),
		}
	}

	spec := domain.WavenumberSpectrum{
		MaxWN:      maxWN,
		Components: make([]*sparse.DenseArray, maxWN+1),
		Residual:   polar.Data.Copy(),
	}
	for wn := range spec.Components {
		spec.Components[wn] = sparse.ZerosDense(nr, na)
	}

	fft := fourier.NewFFT(na)
	ring := make([]float64, na)
	recon := make([]float64, na)
	for ri := 0; ri < nr; ri++ {
		for ai := 0; ai < na; ai++ {
			ring[ai] = polar.Data.Get(ri, ai)
		}
		coeffs := fft.Coefficients(nil, ring)

		for wn := 0; wn <= maxWN; wn++ {
			keep := make([]complex128, len(coeffs))
			keep[wn] = coeffs[wn]
			// Sequence is unnormalized: scale by 1/na to invert.
			recon = fft.Sequence(recon, keep)
			for ai := 0; ai < na; ai++ {
				v := recon[ai] / float64(na)
				spec.Components[wn].Set(v, ri, ai)
				spec.Residual.Set(spec.Residual.Get(ri, ai)-v, ri, ai)
			}
		}
	}

	return spec, nil
}

// MaxLocation returns the maximum magnitude of a polar field and the
// (radius, azimuth) coordinates where it occurs.
func MaxLocation(polar domain.PolarField) (maxVal, radius, azimuth float64) {
	maxVal = math.Inf(-1)
	for ri, r := range polar.Radii {
		for ai, az := range polar.Azimuths {
			if v := polar.Data.Get(ri, ai); !math.IsNaN(v) && v > maxVal {
				maxVal, radius, azimuth = v, r, az
			}
		}
	}
	return maxVal, radius, azimuth
}
