package diag

import (
	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Coordinate mesh names shared with the resolver's grid broadcast.
const (
	VarLatitude  = "latitude"
	VarLongitude = "longitude"
)

// Inputs is the read-only resolved-variable mapping shared by all
// applications in one run.
type Inputs map[string]domain.GeoField

// get fetches a variable by well-known name.
func (in Inputs) get(name string) (domain.GeoField, error) {
	f, ok := in[name]
	if !ok {
		return domain.GeoField{}, &domain.MissingVariableError{
			Variable: name,
			Source:   "resolved variables",
		}
	}
	return f, nil
}
