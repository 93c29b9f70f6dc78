package dataset

import (
	"context"

	"bitbucket.org/ctessum/sparse"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Memory is an in-memory field reader keyed by variable name. Paths are
// ignored, which keeps fixtures small in tests and in the validate tool.
type Memory struct {
	Vars map[string]*sparse.DenseArray
}

// ReadVar returns a copy of the stored array so callers can mutate freely.
func (m *Memory) ReadVar(ctx context.Context, path, name string) (*sparse.DenseArray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	arr, ok := m.Vars[name]
	if !ok {
		return nil, &domain.MissingVariableError{Variable: name, Source: path}
	}
	return arr.Copy(), nil
}
