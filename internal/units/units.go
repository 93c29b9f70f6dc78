// Package units implements the unit bookkeeping for resolved variables: a
// registry of recognized unit strings with affine conversions to a canonical
// SI unit. The registry is scoped to one orchestrator run and passed by
// reference into each resolver call.
package units

import (
	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Unit describes one recognized unit string: the canonical SI unit it reduces
// to and the affine transform si = Mult*v + Add.
type Unit struct {
	Name      string
	Canonical string
	Mult      float64
	Add       float64
}

// System is a registry of recognized unit strings.
type System struct {
	units map[string]Unit
}

// NewSystem returns a registry populated with every unit string the analysis
// configurations use. Aliases map to the same canonical unit.
func NewSystem() *System {
	s := &System{units: make(map[string]Unit)}
	add := func(canonical string, mult, add float64, names ...string) {
		for _, n := range names {
			s.units[n] = Unit{Name: n, Canonical: canonical, Mult: mult, Add: add}
		}
	}

	add("K", 1, 0, "K", "kelvin", "degK")
	add("K", 1, 273.15, "degC", "celsius", "C")
	add("Pa", 1, 0, "Pa", "pascal")
	add("Pa", 100, 0, "hPa", "mb", "millibar", "hectopascal")
	add("m", 1, 0, "m", "meter", "meters")
	add("m", 1000, 0, "km", "kilometer")
	add("m/s", 1, 0, "m/s", "mps", "meter_per_second", "m s-1")
	add("m/s", 0.514444, 0, "knot", "kt")
	add("kg/kg", 1, 0, "kg/kg", "kg kg-1", "gram/gram")
	add("kg/kg", 1e-3, 0, "g/kg")
	add("degree", 1, 0, "degree", "degrees", "deg", "degrees_north", "degrees_east")
	add("m2/s2", 1, 0, "m2/s2", "m2 s-2", "gpm2/s2")
	add("1", 1, 0, "1", "none", "dimensionless")
	add("psu", 1, 0, "psu", "practical_salinity_unit")
	add("J/m2", 1, 0, "J/m2", "J m-2")

	return s
}

// Lookup returns the unit for name, or a UnitError if the string is not
// recognized.
func (s *System) Lookup(name string) (Unit, error) {
	u, ok := s.units[name]
	if !ok {
		return Unit{}, &domain.UnitError{Unit: name}
	}
	return u, nil
}

// ToSI converts a value declared in unit name to its canonical SI unit.
func (s *System) ToSI(v float64, name string) (float64, string, error) {
	u, err := s.Lookup(name)
	if err != nil {
		return 0, "", err
	}
	return u.Mult*v + u.Add, u.Canonical, nil
}

// Convert converts a value between two recognized units. The units must
// reduce to the same canonical unit; otherwise a UnitError naming the target
// is returned, since converting across dimensions is always a config mistake.
func (s *System) Convert(v float64, from, to string) (float64, error) {
	uf, err := s.Lookup(from)
	if err != nil {
		return 0, err
	}
	ut, err := s.Lookup(to)
	if err != nil {
		return 0, err
	}
	if uf.Canonical != ut.Canonical {
		return 0, &domain.UnitError{Unit: from + " -> " + to}
	}
	si := uf.Mult*v + uf.Add
	return (si - ut.Add) / ut.Mult, nil
}
