package dataset

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"bitbucket.org/ctessum/sparse"
	"github.com/fhs/go-netcdf/netcdf"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Writer persists diagnostic results as netCDF files under a base directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// WritePotentialIntensity writes the gridded potential intensity metrics with
// their coordinate meshes.
func (w *Writer) WritePotentialIntensity(name string, res *domain.PotentialIntensity, lats, lons *sparse.DenseArray) error {
	path := filepath.Join(w.dir, name)
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer ds.Close()

	nlat := res.VMax.Shape[0]
	nlon := res.VMax.Shape[1]

	latDim, err := ds.AddDim("lat", uint64(nlat))
	if err != nil {
		return err
	}
	lonDim, err := ds.AddDim("lon", uint64(nlon))
	if err != nil {
		return err
	}
	grid := []netcdf.Dim{latDim, lonDim}

	vars := []struct {
		name string
		data *sparse.DenseArray
	}{
		{"lat", lats},
		{"lon", lons},
		{"vmax", res.VMax},
		{"pmin", res.PMin},
		{"tout", res.TOut},
		{"pout", res.POut},
	}
	for _, spec := range vars {
		v, err := ds.AddVar(spec.name, netcdf.DOUBLE, grid)
		if err != nil {
			return err
		}
		if err := v.WriteFloat64s(spec.data.Elements); err != nil {
			return fmt.Errorf("write %s to %s: %w", spec.name, path, err)
		}
	}

	w.logger.Info("potential intensity output written", "file", path)
	return nil
}

// WriteMultiScale writes one TC's polar wind field, its wavenumber
// components, and the scalar intensity metrics.
func (w *Writer) WriteMultiScale(name string, res *domain.MultiScaleIntensity) error {
	path := filepath.Join(w.dir, name)
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer ds.Close()

	radDim, err := ds.AddDim("radius", uint64(len(res.Wind10m.Radii)))
	if err != nil {
		return err
	}
	aziDim, err := ds.AddDim("azimuth", uint64(len(res.Wind10m.Azimuths)))
	if err != nil {
		return err
	}
	wnDim, err := ds.AddDim("wavenumber", uint64(len(res.Spectrum.Components)))
	if err != nil {
		return err
	}

	radVar, err := ds.AddVar("radius", netcdf.DOUBLE, []netcdf.Dim{radDim})
	if err != nil {
		return err
	}
	if err := radVar.WriteFloat64s(res.Wind10m.Radii); err != nil {
		return err
	}
	aziVar, err := ds.AddVar("azimuth", netcdf.DOUBLE, []netcdf.Dim{aziDim})
	if err != nil {
		return err
	}
	if err := aziVar.WriteFloat64s(res.Wind10m.Azimuths); err != nil {
		return err
	}

	windVar, err := ds.AddVar("wind10m", netcdf.DOUBLE, []netcdf.Dim{radDim, aziDim})
	if err != nil {
		return err
	}
	if err := windVar.WriteFloat64s(res.Wind10m.Data.Elements); err != nil {
		return err
	}

	compVar, err := ds.AddVar("wind10m_wn", netcdf.DOUBLE, []netcdf.Dim{wnDim, radDim, aziDim})
	if err != nil {
		return err
	}
	comps := make([]float64, 0, len(res.Spectrum.Components)*len(res.Wind10m.Radii)*len(res.Wind10m.Azimuths))
	for _, c := range res.Spectrum.Components {
		comps = append(comps, c.Elements...)
	}
	if err := compVar.WriteFloat64s(comps); err != nil {
		return err
	}

	residVar, err := ds.AddVar("wind10m_residual", netcdf.DOUBLE, []netcdf.Dim{radDim, aziDim})
	if err != nil {
		return err
	}
	if err := residVar.WriteFloat64s(res.Spectrum.Residual.Elements); err != nil {
		return err
	}

	scalars := []struct {
		name  string
		value float64
	}{
		{"vmax", res.VMax},
		{"rmw", res.RMW},
		{"azimuth_rmw", res.AzimuthRMW},
		{"lat_rmw", res.LatRMW},
		{"lon_rmw", res.LonRMW},
		{"wn0_msi", res.WN0MSI},
		{"wn1_msi", res.WN1MSI},
		{"wn0p1_msi", res.WN0P1MSI},
		{"epsi_msi", res.EpsiMSI},
	}
	for _, s := range scalars {
		v, err := ds.AddVar(s.name, netcdf.DOUBLE, nil)
		if err != nil {
			return err
		}
		if err := v.WriteFloat64s([]float64{s.value}); err != nil {
			return fmt.Errorf("write %s to %s: %w", s.name, path, err)
		}
	}

	w.logger.Info("multiscale intensity output written", "file", path, "tcid", res.Fix.ID)
	return nil
}
