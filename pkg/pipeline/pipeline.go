package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/reticula/pkg/export"
	"github.com/aretw0/reticula/pkg/network"
	"github.com/aretw0/reticula/pkg/newick"
	"github.com/aretw0/reticula/pkg/quartet"
	"github.com/aretw0/reticula/pkg/resolve"
	"github.com/aretw0/reticula/pkg/rooting"
	"github.com/aretw0/reticula/pkg/tree"
)

const instrumentationName = "github.com/aretw0/reticula/pkg/pipeline"

// Stage names one step of an inference run.
type Stage string

const (
	StageParse   Stage = "parse"
	StageExtract Stage = "extract"
	StageResolve Stage = "resolve"
	StageRoot    Stage = "root"
)

// StageEvent describes a stage as it starts and ends. Counters are filled
// in as the stage learns them; Duration and Err are set on end.
type StageEvent struct {
	Stage         Stage
	Started       time.Time
	Duration      time.Duration
	Trees         int
	Taxa          int
	Quartets      int
	Reticulations int
	Err           error
}

// Hooks are lifecycle callbacks for observability.
type Hooks struct {
	OnStageStart func(context.Context, *StageEvent)
	OnStageEnd   func(context.Context, *StageEvent)
}

// Result is the outcome of one inference.
type Result struct {
	// Network is the rooted network.
	Network *network.Network
	Trees   int
	Taxa    []string
	// Quartets is the number of distinct quartet keys observed.
	Quartets       int
	Irreconcilable int
	// Reticulations counts reticulation nodes in Network.
	Reticulations int
	Policy        rooting.Policy
	// Resolution holds the unrooted network and its per-signal detail.
	Resolution *resolve.Result
}

// Newick renders the network as extended Newick.
func (r *Result) Newick() string {
	return export.Export(r.Network)
}

// Pipeline runs parse, extract, resolve and root in sequence.
type Pipeline struct {
	outgroup  string
	workers   int
	threshold float64
	logger    *slog.Logger
	hooks     Hooks
	tracer    trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOutgroup roots the network on the pendant edge of taxon.
func WithOutgroup(taxon string) Option {
	return func(p *Pipeline) {
		p.outgroup = taxon
	}
}

// WithWorkers caps concurrent tree processing during extraction.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// WithConflictThreshold sets the relative weight at which an alternative
// quartet topology counts as conflicting signal.
func WithConflictThreshold(f float64) Option {
	return func(p *Pipeline) {
		p.threshold = f
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(p *Pipeline) {
		p.hooks = h
	}
}

// WithTracerProvider sets the provider for stage spans. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		p.tracer = tp.Tracer(instrumentationName)
	}
}

// New returns a Pipeline with the given options applied.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{threshold: resolve.DefaultConflictThreshold}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(instrumentationName)
	}
	return p
}

// Infer runs a default pipeline.
func Infer(ctx context.Context, input string) (*Result, error) {
	return New().Infer(ctx, input)
}

// Fingerprint identifies the options that change the output, for use in
// cache keys.
func (p *Pipeline) Fingerprint() string {
	return "outgroup=" + p.outgroup + ";threshold=" + strconv.FormatFloat(p.threshold, 'g', -1, 64)
}

// Infer parses input as one or more Newick trees and returns the rooted
// network. Syntax errors wrap *newick.SyntaxError; rooting errors wrap the
// rooting sentinels. ctx is checked between stages and during extraction.
func (p *Pipeline) Infer(ctx context.Context, input string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "reticula.Infer",
		trace.WithAttributes(attribute.Int("reticula.input_bytes", len(input))),
	)
	defer span.End()

	start := time.Now()
	res := &Result{}

	var trees []*tree.Tree
	err := p.stage(ctx, StageParse, func(ctx context.Context, ev *StageEvent) error {
		var err error
		trees, err = newick.ParseAll(input)
		ev.Trees = len(trees)
		return err
	})
	if err != nil {
		return nil, p.fail(span, err)
	}
	res.Trees = len(trees)

	var tab *quartet.Table
	err = p.stage(ctx, StageExtract, func(ctx context.Context, ev *StageEvent) error {
		var err error
		x := quartet.NewExtractor(quartet.WithWorkers(p.workers), quartet.WithLogger(p.logger))
		if tab, err = x.Extract(ctx, trees); err != nil {
			return err
		}
		ev.Trees, ev.Taxa, ev.Quartets = tab.Trees(), len(tab.Taxa()), tab.Len()
		return nil
	})
	if err != nil {
		return nil, p.fail(span, err)
	}
	res.Taxa = tab.Taxa()
	res.Quartets = tab.Len()

	err = p.stage(ctx, StageResolve, func(ctx context.Context, ev *StageEvent) error {
		r := resolve.New(resolve.WithConflictThreshold(p.threshold), resolve.WithLogger(p.logger))
		res.Resolution = r.Resolve(tab)
		ev.Taxa = len(res.Resolution.Taxa)
		ev.Reticulations = len(res.Resolution.Network.Reticulations())
		return nil
	})
	if err != nil {
		return nil, p.fail(span, err)
	}
	res.Irreconcilable = res.Resolution.Irreconcilable

	err = p.stage(ctx, StageRoot, func(ctx context.Context, ev *StageEvent) error {
		var opts []rooting.Option
		if p.outgroup != "" {
			opts = append(opts, rooting.WithOutgroup(p.outgroup))
		}
		opts = append(opts, rooting.WithLogger(p.logger))
		n, policy, err := rooting.New(opts...).Root(res.Resolution.Network)
		if err != nil {
			return err
		}
		res.Network, res.Policy = n, policy
		ev.Reticulations = len(n.Reticulations())
		return nil
	})
	if err != nil {
		return nil, p.fail(span, err)
	}
	res.Reticulations = len(res.Network.Reticulations())

	span.SetAttributes(
		attribute.Int("reticula.trees", res.Trees),
		attribute.Int("reticula.taxa", len(res.Taxa)),
		attribute.Int("reticula.reticulations", res.Reticulations),
	)
	p.logger.Info("network inferred",
		"trees", res.Trees,
		"taxa", len(res.Taxa),
		"quartets", res.Quartets,
		"irreconcilable", res.Irreconcilable,
		"reticulations", res.Reticulations,
		"root", string(res.Policy),
		"duration", time.Since(start),
	)
	return res, nil
}

// stage runs fn inside its own span and hook pair.
func (p *Pipeline) stage(ctx context.Context, s Stage, fn func(context.Context, *StageEvent) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := p.tracer.Start(ctx, "reticula."+string(s))
	defer span.End()

	ev := &StageEvent{Stage: s, Started: time.Now()}
	if p.hooks.OnStageStart != nil {
		p.hooks.OnStageStart(ctx, ev)
	}

	err := fn(ctx, ev)
	if err != nil {
		err = fmt.Errorf("%s: %w", s, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	ev.Duration = time.Since(ev.Started)
	ev.Err = err
	span.SetAttributes(
		attribute.Int("reticula.trees", ev.Trees),
		attribute.Int("reticula.taxa", ev.Taxa),
		attribute.Int("reticula.quartets", ev.Quartets),
		attribute.Int("reticula.reticulations", ev.Reticulations),
	)

	if p.hooks.OnStageEnd != nil {
		p.hooks.OnStageEnd(ctx, ev)
	}
	p.logger.Debug("stage finished", "stage", string(s), "duration", ev.Duration)
	return err
}

func (p *Pipeline) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.logger.Error("inference failed", "error", err)
	return err
}
