// Package orchestrator sequences loaders for a full graph rebuild
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	fernerrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Runner executes one loader
type Runner interface {
	Run(ctx context.Context, def loader.Definition, opts loader.Options) *models.RunResult
}

// ConstraintStore declares the uniqueness constraints loaders rely on
type ConstraintStore interface {
	EnsureConstraints(ctx context.Context, variants ...graph.NodeVariant) map[string]error
}

// Options select and tune the loaders of one orchestrated run
type Options struct {
	RunID     string
	BatchSize int
	// Only restricts the run to the named loaders; catalogue order is kept
	Only []string
	// SkipConstraints leaves the graph schema untouched
	SkipConstraints bool
}

// Report is the outcome of an orchestrated run
type Report struct {
	RunID    string
	Results  []*models.RunResult
	Skipped  []string
	Warnings []string
	Err      error
	Duration time.Duration
}

// OK reports whether every selected loader completed
func (r *Report) OK() bool {
	return r.Err == nil
}

// Orchestrator runs the catalogue: constraints first, node loaders (published before phantom), then edges
type Orchestrator struct {
	runner      Runner
	constraints ConstraintStore
	catalogue   []loader.Definition
	logger      ectologger.Logger
}

// New creates a new orchestrator over the loader catalogue
func New(runner Runner, constraints ConstraintStore, logger ectologger.Logger) *Orchestrator {
	return &Orchestrator{
		runner:      runner,
		constraints: constraints,
		catalogue:   loader.Catalogue(),
		logger:      logger,
	}
}

// Select returns the loaders to run in orchestration order. Unknown names are a config error.
func (o *Orchestrator) Select(only []string) ([]loader.Definition, error) {
	if len(only) == 0 {
		return o.catalogue, nil
	}

	wanted := map[string]bool{}
	for _, name := range only {
		name = strings.TrimSpace(name)
		if name != "" {
			wanted[name] = true
		}
	}

	selected := make([]loader.Definition, 0, len(wanted))
	for _, def := range o.catalogue {
		if wanted[def.Name] {
			selected = append(selected, def)
			delete(wanted, def.Name)
		}
	}
	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for name := range wanted {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		return nil, fernerrors.NewLoadErrorf(fernerrors.KindConfig, "unknown loader(s): %s", strings.Join(unknown, ", "))
	}
	return selected, nil
}

// Run executes the selected loaders in order and stops at the first one that aborts
func (o *Orchestrator) Run(ctx context.Context, opts Options) *Report {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.Orchestrator.Run")
	defer span.End()

	started := time.Now()
	report := &Report{RunID: opts.RunID}
	log := o.logger.WithContext(ctx).WithField("run_id", opts.RunID)

	defs, err := o.Select(opts.Only)
	if err != nil {
		report.Err = err
		return report
	}

	if opts.SkipConstraints {
		log.Info("Skipping uniqueness constraints")
	} else {
		report.Warnings = append(report.Warnings, o.ensureConstraints(ctx, defs)...)
	}

	for i, def := range defs {
		if err := ctx.Err(); err != nil {
			report.Err = fernerrors.NewLoadErrorf(fernerrors.KindInterrupted, "run interrupted: %w", err)
			report.Skipped = names(defs[i:])
			break
		}

		res := o.runner.Run(ctx, def, loader.Options{RunID: opts.RunID, BatchSize: opts.BatchSize})
		report.Results = append(report.Results, res)
		log.Info(loader.Describe(res))

		if res.State != models.RunStateDone {
			report.Err = res.Err
			if report.Err == nil {
				report.Err = fernerrors.NewLoadErrorf(fernerrors.KindBatch, "loader %s ended in state %s", def.Name, res.State)
			}
			report.Skipped = names(defs[i+1:])
			break
		}
	}

	report.Duration = time.Since(started)
	fields := map[string]any{
		"loaders":  len(report.Results),
		"skipped":  report.Skipped,
		"duration": report.Duration.String(),
	}
	if report.Err != nil {
		log.WithFields(fields).WithError(report.Err).Error("Graph load aborted")
	} else {
		log.WithFields(fields).Info("Graph load completed")
	}
	return report
}

// ensureConstraints is best effort; failures become warnings
func (o *Orchestrator) ensureConstraints(ctx context.Context, defs []loader.Definition) []string {
	seen := map[string]bool{}
	variants := []graph.NodeVariant{}
	for _, def := range defs {
		for _, v := range def.Variants() {
			if !seen[v.Label] {
				seen[v.Label] = true
				variants = append(variants, v)
			}
		}
	}
	if len(variants) == 0 {
		return nil
	}

	failures := o.constraints.EnsureConstraints(ctx, variants...)
	labels := make([]string, 0, len(failures))
	for label := range failures {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	warnings := make([]string, 0, len(labels))
	for _, label := range labels {
		warnings = append(warnings, fmt.Sprintf("constraint on %s not ensured: %v", label, failures[label]))
	}
	return warnings
}

func names(defs []loader.Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}
