package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
	"github.com/couchcryptid/tcdiag-service/internal/vario"
)

// Application names accepted in an experiment document.
const (
	AppPotentialIntensity = "tcpi"
	AppMultiScale         = "tcmsi"
	AppSteering           = "tcstrflw"
	AppOceanHeat          = "tcohc"
)

// Experiment is a parsed experiment document: the variable table, the TC
// fixes, and the per-application parameter blocks.
type Experiment struct {
	Apps      []string
	Variables []vario.Spec
	Fixes     []domain.TCFix

	// AppDocs holds the raw parameter blocks keyed by application name;
	// each application validates its own block against its schema.
	AppDocs map[string]map[string]any
}

// rawExperiment mirrors the YAML document layout.
type rawExperiment struct {
	Apps      []string                  `yaml:"apps"`
	Variables map[string]map[string]any `yaml:"variables"`
	TCVitals  map[string]rawFix         `yaml:"tcvitals"`
	TCPI      map[string]any            `yaml:"tcpi"`
	TCMSI     map[string]any            `yaml:"tcmsi"`
	TCStrFlw  map[string]any            `yaml:"tcstrflw"`
	TCOHC     map[string]any            `yaml:"tcohc"`
}

type rawFix struct {
	LatDeg float64 `yaml:"lat_deg"`
	LonDeg float64 `yaml:"lon_deg"`
	Time   string  `yaml:"time"`
}

// LoadExperiment reads and parses an experiment YAML file.
func LoadExperiment(path string, logger *slog.Logger) (Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experiment{}, fmt.Errorf("read experiment document: %w", err)
	}
	return ParseExperiment(data, logger)
}

// ParseExperiment parses an experiment document. Variable blocks are
// schema-validated here; application blocks are validated by their
// applications. Fixes are ordered by TC identifier for deterministic runs.
func ParseExperiment(data []byte, logger *slog.Logger) (Experiment, error) {
	var raw rawExperiment
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Experiment{}, fmt.Errorf("parse experiment document: %w", err)
	}
	if len(raw.Apps) == 0 {
		return Experiment{}, &domain.ConfigError{Reason: "experiment requests no applications"}
	}
	for _, app := range raw.Apps {
		switch app {
		case AppPotentialIntensity, AppMultiScale, AppSteering, AppOceanHeat:
		default:
			return Experiment{}, &domain.ConfigError{
				Reason: fmt.Sprintf("unknown application %q", app),
			}
		}
	}

	exp := Experiment{
		Apps: raw.Apps,
		AppDocs: map[string]map[string]any{
			AppPotentialIntensity: raw.TCPI,
			AppMultiScale:         raw.TCMSI,
			AppSteering:           raw.TCStrFlw,
			AppOceanHeat:          raw.TCOHC,
		},
	}

	names := make([]string, 0, len(raw.Variables))
	for name := range raw.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec, err := vario.ParseSpec(name, raw.Variables[name], logger)
		if err != nil {
			return Experiment{}, err
		}
		exp.Variables = append(exp.Variables, spec)
	}

	tcids := make([]string, 0, len(raw.TCVitals))
	for tcid := range raw.TCVitals {
		tcids = append(tcids, tcid)
	}
	sort.Strings(tcids)
	for _, tcid := range tcids {
		rf := raw.TCVitals[tcid]
		fix := domain.TCFix{ID: tcid, Lat: rf.LatDeg, Lon: rf.LonDeg}
		if rf.Time != "" {
			t, err := time.Parse(time.RFC3339, rf.Time)
			if err != nil {
				return Experiment{}, &domain.ConfigError{
					Reason: fmt.Sprintf("tcvitals %s: bad time %q", tcid, rf.Time),
				}
			}
			fix.Time = t
		}
		exp.Fixes = append(exp.Fixes, fix)
	}

	return exp, nil
}
