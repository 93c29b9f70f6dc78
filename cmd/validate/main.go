// Command validate checks an experiment document before a diagnostics run:
// it parses the document, validates every application parameter block,
// verifies the derived-variable dependency closure, confirms each requested
// application has its required input variables, and optionally probes that
// the referenced analysis files exist on disk.
//
// Usage:
//
//	go run ./cmd/validate -experiment experiment.yaml -dataset-dir /data/analyses
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/tcdiag-service/internal/diag"
	"github.com/couchcryptid/tcdiag-service/internal/pipeline"
	"github.com/couchcryptid/tcdiag-service/internal/vario"
)

// requiredInputs maps each application to the well-known variable names it
// reads. Coordinate meshes are required by every application.
var requiredInputs = map[string][]string{
	pipeline.AppPotentialIntensity: {"temperature", "pressure", "mixing_ratio", "sea_level_pressure", "surface_height"},
	pipeline.AppMultiScale:         {"uwind", "vwind", "height"},
	pipeline.AppSteering:           {"uwind", "vwind", "pressure"},
	pipeline.AppOceanHeat:          {"ocean_temperature", "depth"},
}

// fixesRequired lists the TC-relative applications, which need at least one
// tcvitals entry.
var fixesRequired = map[string]bool{
	pipeline.AppMultiScale: true,
	pipeline.AppSteering:   true,
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	experiment := flag.String("experiment", "", "path to the experiment YAML document")
	datasetDir := flag.String("dataset-dir", "", "directory containing the referenced analysis files (skip file checks when empty)")
	flag.Parse()

	if *experiment == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*experiment, *datasetDir); code != 0 {
		os.Exit(code)
	}
}

func run(experimentPath, datasetDir string) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fmt.Println("=== Experiment Document Validation ===")
	fmt.Println()

	exp, err := pipeline.LoadExperiment(experimentPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateAppBlocks(exp, logger),
		validateVariableClosure(exp),
		validateAppInputs(exp),
	}
	if datasetDir != "" {
		phases = append(phases, validateDatasetFiles(exp, datasetDir))
	}

	fmt.Printf("Document: %d applications, %d variables, %d fixes\n", len(exp.Apps), len(exp.Variables), len(exp.Fixes))
	fmt.Println()

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Application Blocks ──
// Each requested application's parameter block must validate against its
// schema.

func validateAppBlocks(exp pipeline.Experiment, logger *slog.Logger) *phase {
	p := &phase{name: "Phase 1: Application Parameter Blocks"}

	for _, app := range exp.Apps {
		doc := exp.AppDocs[app]
		var err error
		switch app {
		case pipeline.AppPotentialIntensity:
			_, err = diag.ParsePIOptions(doc, logger)
		case pipeline.AppMultiScale:
			_, err = diag.ParseMSIOptions(doc, logger)
		case pipeline.AppSteering:
			_, err = diag.ParseSteeringOptions(doc, logger)
		case pipeline.AppOceanHeat:
			_, err = diag.ParseOHCOptions(doc, logger)
		}
		if err != nil {
			p.errorf("%s: %v", app, err)
		}
	}
	return p
}

// ── Phase 2: Variable Closure ──
// Every derived variable must name a registered method, and its inputs must
// close over the declared variable table without cycles.

func validateVariableClosure(exp pipeline.Experiment) *phase {
	p := &phase{name: "Phase 2: Derived-Variable Closure"}

	declared := make(map[string]bool, len(exp.Variables))
	for _, spec := range exp.Variables {
		declared[spec.Name] = true
	}

	for _, spec := range exp.Variables {
		if !spec.Derived() {
			continue
		}
		if !vario.KnownMethod(spec.Method) {
			p.errorf("%s: unknown derivation method %q", spec.Name, spec.Method)
		}
		for _, input := range spec.Inputs {
			if !declared[input] {
				p.errorf("%s: input %q is not a declared variable", spec.Name, input)
			}
		}
	}

	checkAcyclic(p, exp.Variables)
	return p
}

// checkAcyclic runs the resolver's pass discipline over the spec names only:
// repeatedly satisfy derived specs whose inputs are available, and report the
// stragglers of a stalled pass as cyclic.
func checkAcyclic(p *phase, specs []vario.Spec) {
	available := make(map[string]bool)
	for _, s := range specs {
		if !s.Derived() {
			available[s.Name] = true
		}
	}

	pending := make([]vario.Spec, 0)
	for _, s := range specs {
		if s.Derived() {
			pending = append(pending, s)
		}
	}

	for len(pending) > 0 {
		progress := false
		next := pending[:0]
		for _, s := range pending {
			satisfied := true
			for _, input := range s.Inputs {
				if !available[input] {
					satisfied = false
					break
				}
			}
			if satisfied {
				available[s.Name] = true
				progress = true
				continue
			}
			next = append(next, s)
		}
		pending = next
		if !progress {
			names := make([]string, len(pending))
			for i, s := range pending {
				names[i] = s.Name
			}
			sort.Strings(names)
			p.errorf("dependency cycle or unresolvable inputs among: %v", names)
			return
		}
	}
}

// ── Phase 3: Application Inputs ──
// Each requested application must find its well-known variables in the
// table, and TC-relative applications need fixes.

func validateAppInputs(exp pipeline.Experiment) *phase {
	p := &phase{name: "Phase 3: Application Input Variables"}

	declared := make(map[string]bool, len(exp.Variables))
	for _, spec := range exp.Variables {
		declared[spec.Name] = true
	}

	for _, coord := range []string{diag.VarLatitude, diag.VarLongitude} {
		if !declared[coord] {
			p.errorf("coordinate variable %q is not declared", coord)
		}
	}

	for _, app := range exp.Apps {
		for _, name := range requiredInputs[app] {
			if !declared[name] {
				p.errorf("%s: required variable %q is not declared", app, name)
			}
		}
		if fixesRequired[app] && len(exp.Fixes) == 0 {
			p.errorf("%s: no tcvitals entries declared", app)
		}
	}
	return p
}

// ── Phase 4: Dataset Files ──
// Every file-sourced variable's analysis file must exist under the dataset
// directory.

func validateDatasetFiles(exp pipeline.Experiment, dir string) *phase {
	p := &phase{name: "Phase 4: Analysis Files"}

	checked := make(map[string]bool)
	for _, spec := range exp.Variables {
		if spec.Derived() || checked[spec.File] {
			continue
		}
		checked[spec.File] = true

		path := spec.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			p.errorf("%s: %v", spec.Name, err)
		}
	}
	return p
}
