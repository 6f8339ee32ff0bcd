package reticula

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/reticula/pkg/network"
	"github.com/aretw0/reticula/pkg/newick"
	"github.com/aretw0/reticula/pkg/pipeline"
	"github.com/aretw0/reticula/pkg/ports"
)

// Version is the release of the library and the CLI.
const Version = "0.4.0"

// ErrInternal reports a broken invariant inside the engine. It is never
// expected; seeing it means a bug.
var ErrInternal = errors.New("reticula: internal error")

// Inference is the outcome of Engine.Infer.
type Inference struct {
	// Newick is the rooted network in extended Newick.
	Newick  string
	Network *network.Network

	Trees          int
	Taxa           int
	Quartets       int
	Reticulations  int
	Irreconcilable int
	// Root names the rooting policy that placed the root.
	Root string

	// Cached reports whether the result came from the ResultCache.
	Cached bool
	// Key is the cache key of the input and options.
	Key string
}

// Engine is the high-level entry point for the Reticula library.
// It wraps the inference pipeline with optional result caching.
type Engine struct {
	pipeline *pipeline.Pipeline
	pipeOpts []pipeline.Option
	cache    ports.ResultCache
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	maxInput int
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCache stores every result in c and answers repeated inputs from it.
func WithCache(c ports.ResultCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithLocker serialises computation of the same key across processes.
// It only takes effect together with WithCache.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithMaxInputSize rejects inputs longer than n bytes with ErrInputTooLarge.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		e.maxInput = n
	}
}

// WithHooks registers pipeline lifecycle hooks.
func WithHooks(h pipeline.Hooks) Option {
	return func(e *Engine) {
		e.pipeOpts = append(e.pipeOpts, pipeline.WithHooks(h))
	}
}

// WithOutgroup roots networks on the pendant edge of taxon.
func WithOutgroup(taxon string) Option {
	return func(e *Engine) {
		e.pipeOpts = append(e.pipeOpts, pipeline.WithOutgroup(taxon))
	}
}

// WithWorkers caps concurrent tree processing.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.pipeOpts = append(e.pipeOpts, pipeline.WithWorkers(n))
	}
}

// WithConflictThreshold sets the relative weight at which an alternative
// quartet topology is treated as conflicting signal.
func WithConflictThreshold(f float64) Option {
	return func(e *Engine) {
		e.pipeOpts = append(e.pipeOpts, pipeline.WithConflictThreshold(f))
	}
}

// WithTracerProvider sets the OpenTelemetry provider for pipeline spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.pipeOpts = append(e.pipeOpts, pipeline.WithTracerProvider(tp))
	}
}

// New initializes an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{lockTTL: 30 * time.Second}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.pipeline = pipeline.New(append([]pipeline.Option{pipeline.WithLogger(e.logger)}, e.pipeOpts...)...)
	return e
}

// Key returns the cache key for input under the engine's options.
func (e *Engine) Key(input string) string {
	h := sha256.New()
	h.Write([]byte(e.pipeline.Fingerprint()))
	h.Write([]byte{0})
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}

// Infer parses input as Newick trees and returns the rooted network.
// Errors wrap *newick.SyntaxError or the rooting sentinels; cache failures
// are logged and never fail the call.
func (e *Engine) Infer(ctx context.Context, input string) (inf *Inference, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("inference panicked", "panic", r)
			inf, err = nil, fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	if err := CheckInput(input, e.maxInput); err != nil {
		return nil, err
	}

	key := e.Key(input)
	if e.cache == nil {
		return e.compute(ctx, key, input)
	}
	if hit, ok := e.lookup(ctx, key); ok {
		return hit, nil
	}

	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, key, e.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock %s: %w", key, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("unlock failed", "key", key, "error", err)
			}
		}()
		// Another replica may have finished while we waited.
		if hit, ok := e.lookup(ctx, key); ok {
			return hit, nil
		}
	}

	inf, err = e.compute(ctx, key, input)
	if err != nil {
		return nil, err
	}
	entry := &ports.CachedResult{
		Newick:         inf.Newick,
		Trees:          inf.Trees,
		Taxa:           inf.Taxa,
		Quartets:       inf.Quartets,
		Reticulations:  inf.Reticulations,
		Irreconcilable: inf.Irreconcilable,
		Root:           inf.Root,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.cache.Put(ctx, key, entry); err != nil {
		e.logger.Warn("cache put failed", "key", key, "error", err)
	}
	return inf, nil
}

func (e *Engine) compute(ctx context.Context, key, input string) (*Inference, error) {
	res, err := e.pipeline.Infer(ctx, input)
	if err != nil {
		return nil, err
	}
	return &Inference{
		Newick:         res.Newick(),
		Network:        res.Network,
		Trees:          res.Trees,
		Taxa:           len(res.Taxa),
		Quartets:       res.Quartets,
		Reticulations:  res.Reticulations,
		Irreconcilable: res.Irreconcilable,
		Root:           string(res.Policy),
		Key:            key,
	}, nil
}

func (e *Engine) lookup(ctx context.Context, key string) (*Inference, bool) {
	hit, err := e.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			e.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	n, err := newick.ParseNetwork(hit.Newick)
	if err != nil {
		e.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	e.logger.Debug("cache hit", "key", key)
	return &Inference{
		Newick:         hit.Newick,
		Network:        n,
		Trees:          hit.Trees,
		Taxa:           hit.Taxa,
		Quartets:       hit.Quartets,
		Reticulations:  hit.Reticulations,
		Irreconcilable: hit.Irreconcilable,
		Root:           hit.Root,
		Cached:         true,
		Key:            key,
	}, true
}

// Infer runs the default pipeline on text and returns the extended Newick
// network. It reports every failure as an error and never panics.
func Infer(text string) (string, error) {
	inf, err := New().Infer(context.Background(), text)
	if err != nil {
		return "", err
	}
	return inf.Newick, nil
}
