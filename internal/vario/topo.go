package vario

import (
	"context"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// ResolveAll resolves every file-sourced spec, then evaluates the derived
// specs in dependency order. Derived evaluation is an explicit topological
// pass over the declared input graph: a spec is evaluated once all of its
// inputs are present, and a pass that makes no progress means some input is
// missing from the table or the declarations cycle, which fails fast with a
// DependencyError naming the offending input.
func ResolveAll(ctx context.Context, r *Resolver, specs []Spec) (map[string]domain.GeoField, error) {
	resolved := make(map[string]domain.GeoField, len(specs))

	var pending, direct []Spec
	for _, spec := range specs {
		if spec.Derived() {
			pending = append(pending, spec)
			continue
		}
		f, err := r.Resolve(ctx, spec)
		if err != nil {
			return nil, err
		}
		resolved[spec.Name] = f
		direct = append(direct, spec)
	}
	warnAxisMismatch(r, direct, resolved)

	for len(pending) > 0 {
		var stalled []Spec
		progressed := false
		for _, spec := range pending {
			if !inputsReady(spec, resolved) {
				stalled = append(stalled, spec)
				continue
			}
			f, err := Evaluate(spec, resolved)
			if err != nil {
				return nil, err
			}
			resolved[spec.Name] = f
			progressed = true
		}
		if !progressed {
			spec := stalled[0]
			return nil, &domain.DependencyError{
				Variable: spec.Name,
				Input:    firstUnsatisfied(spec, resolved),
			}
		}
		pending = stalled
	}

	return resolved, nil
}

// warnAxisMismatch flags file-sourced specs whose flip declarations disagree.
// Every field in a run must end up in one shared axis orientation; mixed
// flip_lat on gridded variables, or mixed flip_z on 3-D variables, almost
// always means one spec forgot its flag.
func warnAxisMismatch(r *Resolver, specs []Spec, resolved map[string]domain.GeoField) {
	var latFlipped, latKept, zFlipped, zKept []string
	for _, spec := range specs {
		dims := len(resolved[spec.Name].Data.Shape)
		if dims >= 2 {
			if spec.FlipLat {
				latFlipped = append(latFlipped, spec.Name)
			} else {
				latKept = append(latKept, spec.Name)
			}
		}
		if dims == 3 {
			if spec.FlipZ {
				zFlipped = append(zFlipped, spec.Name)
			} else {
				zKept = append(zKept, spec.Name)
			}
		}
	}
	if len(latFlipped) > 0 && len(latKept) > 0 {
		r.logger.Warn("flip_lat differs across gridded variables",
			"flipped", latFlipped, "unflipped", latKept)
	}
	if len(zFlipped) > 0 && len(zKept) > 0 {
		r.logger.Warn("flip_z differs across 3-D variables",
			"flipped", zFlipped, "unflipped", zKept)
	}
}

func inputsReady(spec Spec, resolved map[string]domain.GeoField) bool {
	for _, in := range spec.Inputs {
		if _, ok := resolved[in]; !ok {
			return false
		}
	}
	return true
}

func firstUnsatisfied(spec Spec, resolved map[string]domain.GeoField) string {
	for _, in := range spec.Inputs {
		if _, ok := resolved[in]; !ok {
			return in
		}
	}
	return ""
}
