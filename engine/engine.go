// Package engine is the public facade over the formula evaluation core: it
// wires the Evaluation Orchestrator, the Storage collaborator, and
// telemetry into the functional-options constructor shape the teacher's
// own package root (gosonata.go) uses, and exposes the Host-facing
// begin_cycle/update/end_cycle contract plus between-cycle reads,
// configuration export, and hot reload (§6 EXTERNAL INTERFACES).
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/LegoTypes/synthformula/internal/compilecache"
	"github.com/LegoTypes/synthformula/internal/host"
	"github.com/LegoTypes/synthformula/internal/orchestrator"
	"github.com/LegoTypes/synthformula/internal/storage"
	"github.com/LegoTypes/synthformula/internal/telemetry"
	"github.com/LegoTypes/synthformula/internal/types"
)

// Options configures an Engine, following the teacher's functional-options
// shape (pkg/evaluator/evaluator.go's EvalOptions/EvalOption).
type Options struct {
	Logger       *slog.Logger
	CompileCache *compilecache.Cache
	Metrics      *telemetry.Metrics
	Tracer       *telemetry.Tracer
	OnChange     func(key string, value types.Scalar)
}

// Option mutates Options during New.
type Option func(*Options)

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithCompileCache supplies a compilation cache shared across engines
// (§5 "single-flight guarantees at-most-one parse per formula text across
// concurrent sensor sets sharing the cache").
func WithCompileCache(c *compilecache.Cache) Option {
	return func(o *Options) { o.CompileCache = c }
}

// WithMetrics attaches a Prometheus-backed Metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithTracer attaches an OpenTelemetry Tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(o *Options) { o.Tracer = t }
}

// WithOnChange registers the Sensor change notifier (§6 "Consumed: Sensor
// change notifier... called by the orchestrator at end_cycle").
func WithOnChange(fn func(key string, value types.Scalar)) Option {
	return func(o *Options) { o.OnChange = fn }
}

// Engine drives one SensorSet's repeated evaluation cycles and serves
// between-cycle reads, guarded by a mutex so a configuration reload
// triggered by the Storage watcher never races a Host-driven Update.
type Engine struct {
	mu      sync.RWMutex
	orch    *orchestrator.Orchestrator
	set     types.SensorSet
	catalog host.Catalog
	ds      host.DataSource

	logger       *slog.Logger
	options      []orchestrator.Option
	compileCache *compilecache.Cache
	metrics      *telemetry.Metrics
	tracer       *telemetry.Tracer

	store   *storage.Store
	watcher *storage.Watcher
	cycles  uint64
}

// New builds an Engine from an in-memory SensorSet (§6 "Exposed:
// Configuration ingest").
func New(set types.SensorSet, catalog host.Catalog, dataSource host.DataSource, opts ...Option) (*Engine, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	cache := options.CompileCache
	if cache == nil {
		cache = compilecache.New(0)
	}

	// baseOpts excludes the compile cache: Reload threads e.compileCache in
	// explicitly, so the same cache survives a configuration reload instead
	// of silently starting cold.
	baseOpts := []orchestrator.Option{orchestrator.WithLogger(options.Logger)}
	if options.OnChange != nil {
		baseOpts = append(baseOpts, orchestrator.WithOnChange(options.OnChange))
	}

	orchOpts := append(append([]orchestrator.Option{}, baseOpts...), orchestrator.WithCompileCache(cache))
	orch, err := orchestrator.New(set, catalog, dataSource, orchOpts...)
	if err != nil {
		return nil, err
	}

	return &Engine{
		orch:         orch,
		set:          set,
		catalog:      catalog,
		ds:           dataSource,
		logger:       options.Logger,
		options:      baseOpts,
		compileCache: cache,
		metrics:      options.Metrics,
		tracer:       options.Tracer,
	}, nil
}

// Open builds an Engine from a YAML sensor-set file on disk (§6 Storage
// collaborator binding), and keeps a Store bound to path for later Export
// and WatchConfig calls.
func Open(path string, catalog host.Catalog, dataSource host.DataSource, opts ...Option) (*Engine, error) {
	store := storage.NewStore(path)
	set, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("engine: loading sensor set from %s: %w", path, err)
	}
	e, err := New(set, catalog, dataSource, opts...)
	if err != nil {
		return nil, err
	}
	e.store = store
	return e, nil
}

// CompileCacheStats reports the shared compilation cache's statistics
// (§4.2 stats()), also pushing them through Metrics if one is attached.
func (e *Engine) CompileCacheStats() compilecache.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stats := e.orch.CompileCacheStats()
	if e.metrics != nil {
		e.metrics.ObserveCacheStats(stats)
	}
	return stats
}

// Export renders the engine's currently loaded sensor set back to YAML,
// rewriting cross-sensor references to host external ids (§4.11, §6).
func (e *Engine) Export() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return storage.Encode(e.set)
}
