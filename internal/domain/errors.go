package domain

import "fmt"

// ConfigError reports a schema violation, invalid parameter combination, or
// Nyquist violation. It is fatal for the affected application only.
type ConfigError struct {
	App    string // application or schema name, may be empty
	Reason string
}

func (e *ConfigError) Error() string {
	if e.App == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config %s: %s", e.App, e.Reason)
}

// MissingVariableError reports a variable name absent from its source file.
// It aborts any application depending on the variable.
type MissingVariableError struct {
	Variable string
	Source   string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("variable %q not found in %s", e.Variable, e.Source)
}

// DependencyError reports a derived-field input that can never be satisfied,
// either because no spec declares it or because the declarations cycle.
type DependencyError struct {
	Variable string // the derived field
	Input    string // the unsatisfiable input
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("derived field %q: input %q cannot be resolved", e.Variable, e.Input)
}

// UnitError reports a unit string the unit system does not recognize. It is
// fatal since downstream arithmetic assumes consistent units.
type UnitError struct {
	Unit string
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unrecognized unit %q", e.Unit)
}

// WarningKind labels the non-fatal fallback policies.
type WarningKind string

const (
	// RankDeficiencyWarning marks an SVD filter request for more singular
	// triplets than the windowed region supports; ncoeffs was clamped.
	RankDeficiencyWarning WarningKind = "rank_deficiency"

	// IsothermNotFoundWarning marks a column whose temperature profile never
	// brackets the target isotherm; the fill value was substituted.
	IsothermNotFoundWarning WarningKind = "isotherm_not_found"
)

// Warning records a non-fatal fallback applied during a diagnostic
// computation. Warnings are surfaced to the caller but never stop execution.
type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return string(w.Kind) + ": " + w.Message
}
