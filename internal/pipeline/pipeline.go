package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"bitbucket.org/ctessum/sparse"

	"github.com/couchcryptid/tcdiag-service/internal/diag"
	"github.com/couchcryptid/tcdiag-service/internal/domain"
	"github.com/couchcryptid/tcdiag-service/internal/observability"
	"github.com/couchcryptid/tcdiag-service/internal/vario"
)

// SummaryPublisher writes diagnostic summaries to the sink, returning the
// number of records published.
type SummaryPublisher interface {
	PublishSummaries(ctx context.Context, diags *domain.TCDiagnostics) (int, error)
}

// OutputWriter persists gridded diagnostic output files.
type OutputWriter interface {
	WritePotentialIntensity(name string, res *domain.PotentialIntensity, lats, lons *sparse.DenseArray) error
	WriteMultiScale(name string, res *domain.MultiScaleIntensity) error
}

// Orchestrator resolves the variable table and runs the requested diagnostic
// applications against it. Application failures are isolated: a failed
// application is recorded and the rest of the run continues.
type Orchestrator struct {
	resolver  *vario.Resolver
	publisher SummaryPublisher
	writer    OutputWriter
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	last      atomic.Pointer[domain.TCDiagnostics]
}

// New creates an Orchestrator. publisher and writer may be nil when the
// corresponding output is disabled.
func New(resolver *vario.Resolver, publisher SummaryPublisher, writer OutputWriter, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		resolver:  resolver,
		publisher: publisher,
		writer:    writer,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one diagnostics run has completed,
// or an error describing why the service is not yet ready.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("no diagnostics run has completed yet")
	}
	return nil
}

// LastDiagnostics returns the most recent completed run, or nil before the
// first run finishes.
func (o *Orchestrator) LastDiagnostics() *domain.TCDiagnostics {
	return o.last.Load()
}

// Run executes one resolve-compute-publish cycle for the experiment.
// Resolution failures are fatal; application failures are collected in the
// returned diagnostics.
func (o *Orchestrator) Run(ctx context.Context, exp Experiment) (*domain.TCDiagnostics, error) {
	start := time.Now()
	o.logger.Info("diagnostics run started", "apps", exp.Apps, "fixes", len(exp.Fixes))
	o.metrics.PipelineRunning.Set(1)
	defer o.metrics.PipelineRunning.Set(0)

	fields, err := vario.ResolveAll(ctx, o.resolver, exp.Variables)
	if err != nil {
		return nil, fmt.Errorf("resolve variables: %w", err)
	}
	if err := vario.BroadcastGrid(fields, diag.VarLatitude, diag.VarLongitude, o.logger); err != nil {
		return nil, err
	}
	o.metrics.FieldsResolved.Add(float64(len(fields)))

	in := diag.Inputs(fields)
	diags := &domain.TCDiagnostics{Failed: make(map[string]error)}

	for _, app := range exp.Apps {
		appStart := time.Now()
		err := o.runApp(ctx, app, in, exp, diags)
		o.metrics.AppDuration.WithLabelValues(app).Observe(time.Since(appStart).Seconds())

		if err != nil {
			o.logger.Error("application failed", "app", app, "error", err)
			o.metrics.AppRuns.WithLabelValues(app, "error").Inc()
			diags.Failed[app] = err
			continue
		}
		o.metrics.AppRuns.WithLabelValues(app, "success").Inc()
	}

	o.countWarnings(diags)

	if o.publisher != nil {
		n, err := o.publisher.PublishSummaries(ctx, diags)
		if err != nil {
			o.logger.Error("publish summaries failed", "error", err)
		}
		o.metrics.SummariesPublished.Add(float64(n))
	}

	if len(diags.Failed) < len(exp.Apps) {
		o.ready.Store(true)
	}
	o.last.Store(diags)
	o.metrics.RunDuration.Observe(time.Since(start).Seconds())
	o.logger.Info("diagnostics run finished",
		"duration", time.Since(start),
		"failed", len(diags.Failed),
	)
	return diags, nil
}

// runApp dispatches one application by name. The context is checked first so
// a cancelled run stops between applications rather than mid-computation.
func (o *Orchestrator) runApp(ctx context.Context, app string, in diag.Inputs, exp Experiment, diags *domain.TCDiagnostics) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch app {
	case AppPotentialIntensity:
		return o.runPI(in, exp.AppDocs[app], diags)
	case AppMultiScale:
		return o.runMSI(in, exp.Fixes, exp.AppDocs[app], diags)
	case AppSteering:
		return o.runSteering(in, exp.Fixes, exp.AppDocs[app], diags)
	case AppOceanHeat:
		return o.runOHC(in, exp.AppDocs[app], diags)
	default:
		return &domain.ConfigError{App: app, Reason: "unknown application"}
	}
}

func (o *Orchestrator) runPI(in diag.Inputs, doc map[string]any, diags *domain.TCDiagnostics) error {
	opts, err := diag.ParsePIOptions(doc, o.logger)
	if err != nil {
		return err
	}
	res, err := diag.PotentialIntensity(in, opts, o.logger)
	if err != nil {
		return err
	}
	diags.PotentialIntensity = res

	if opts.WriteOutput && o.writer != nil {
		lat, lon := in[diag.VarLatitude], in[diag.VarLongitude]
		if err := o.writer.WritePotentialIntensity(opts.OutputFile, res, lat.Data, lon.Data); err != nil {
			return fmt.Errorf("write potential intensity output: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) runMSI(in diag.Inputs, fixes []domain.TCFix, doc map[string]any, diags *domain.TCDiagnostics) error {
	opts, err := diag.ParseMSIOptions(doc, o.logger)
	if err != nil {
		return err
	}
	res, err := diag.MultiScale(in, fixes, opts, o.logger)
	if err != nil {
		return err
	}
	diags.MultiScale = res

	if opts.WriteOutput && o.writer != nil {
		for tcid, msi := range res {
			name := fmt.Sprintf(opts.OutputFile, tcid)
			if err := o.writer.WriteMultiScale(name, msi); err != nil {
				return fmt.Errorf("write multiscale output for %s: %w", tcid, err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) runSteering(in diag.Inputs, fixes []domain.TCFix, doc map[string]any, diags *domain.TCDiagnostics) error {
	opts, err := diag.ParseSteeringOptions(doc, o.logger)
	if err != nil {
		return err
	}
	res, err := diag.Steering(in, fixes, opts, o.logger)
	if err != nil {
		return err
	}
	diags.Steering = res
	return nil
}

func (o *Orchestrator) runOHC(in diag.Inputs, doc map[string]any, diags *domain.TCDiagnostics) error {
	opts, err := diag.ParseOHCOptions(doc, o.logger)
	if err != nil {
		return err
	}
	res, err := diag.OceanHeat(in, opts, o.logger)
	if err != nil {
		return err
	}
	diags.OceanHeat = res
	return nil
}

func (o *Orchestrator) countWarnings(diags *domain.TCDiagnostics) {
	n := 0
	if diags.Steering != nil {
		n += len(diags.Steering.Warnings)
	}
	if diags.OceanHeat != nil {
		n += len(diags.OceanHeat.Warnings)
	}
	if n > 0 {
		o.metrics.DiagnosticWarnings.Add(float64(n))
	}
}
