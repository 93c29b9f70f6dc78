// Package dataset adapts netCDF analysis files to the resolver's field
// reader and persists gridded diagnostic output.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"bitbucket.org/ctessum/sparse"
	"github.com/fhs/go-netcdf/netcdf"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Reader reads variables from netCDF files under a base directory.
type Reader struct {
	dir    string
	logger *slog.Logger
}

// NewReader creates a Reader rooted at dir. Absolute paths in variable
// blocks bypass the root.
func NewReader(dir string, logger *slog.Logger) *Reader {
	return &Reader{dir: dir, logger: logger}
}

// ReadVar reads one variable from the named file into a dense array with the
// variable's on-disk shape. A variable absent from the file is reported as a
// MissingVariableError.
func (r *Reader) ReadVar(ctx context.Context, path, name string) (*sparse.DenseArray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(r.dir, path)
	}

	ds, err := netcdf.OpenFile(full, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", full, err)
	}
	defer ds.Close()

	v, err := ds.Var(name)
	if err != nil {
		return nil, &domain.MissingVariableError{Variable: name, Source: full}
	}

	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("read dimensions of %s in %s: %w", name, full, err)
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("read dimension length of %s in %s: %w", name, full, err)
		}
		shape[i] = int(n)
	}

	arr := sparse.ZerosDense(shape...)
	if err := v.ReadFloat64s(arr.Elements); err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", name, full, err)
	}

	r.logger.Debug("variable read", "file", full, "variable", name, "shape", shape)
	return arr, nil
}
