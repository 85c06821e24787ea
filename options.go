package flatgo

import (
	"log/slog"

	"github.com/hupe1980/flatgo/backend"
	"github.com/hupe1980/flatgo/engine"
	"github.com/hupe1980/flatgo/persistence"
	"github.com/hupe1980/flatgo/resource"
	"github.com/hupe1980/flatgo/scheduler"
)

// DefaultFallback names the backend that runs small workloads and retries
// failed ranges when the default backends are used.
const DefaultFallback = "cpu"

type options struct {
	backends         []backend.Backend
	fallback         *string
	policy           scheduler.Policy
	threshold        int
	mergeWorkers     int
	capacity         int
	memoryBudget     int64
	engineWorkers    int
	resources        *resource.Controller
	compression      persistence.Compression
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures an Index.
type Option func(*options)

// WithBackends replaces the default backends (host CPU reference kernel and
// gonum BLAS). Backend names must be unique.
func WithBackends(backends ...backend.Backend) Option {
	return func(o *options) {
		o.backends = backends
	}
}

// WithFallback names the backend that serves small workloads and retries
// ranges of failed backends. An empty name disables retries.
//
// Defaults to DefaultFallback when the default backends are used, and to no
// fallback otherwise.
func WithFallback(name string) Option {
	return func(o *options) {
		o.fallback = &name
	}
}

// WithPolicy sets the policy that splits rows across backends.
// Default: scheduler.EvenPolicy.
func WithPolicy(p scheduler.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithSmallWorkloadThreshold sets the queries x rows product below which a
// search runs on the fallback backend alone. Negative values always fan out.
// Default: scheduler.DefaultSmallWorkloadThreshold.
func WithSmallWorkloadThreshold(n int) Option {
	return func(o *options) {
		o.threshold = n
	}
}

// WithMergeWorkers bounds the number of goroutines merging partial results.
func WithMergeWorkers(n int) Option {
	return func(o *options) {
		o.mergeWorkers = n
	}
}

// WithInitialCapacity preallocates room for n vectors.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithMemoryBudget sets the per-search score buffer budget of the default
// backends. Default: engine.DefaultMemoryBudget.
func WithMemoryBudget(bytes int64) Option {
	return func(o *options) {
		o.memoryBudget = bytes
	}
}

// WithEngineWorkers sets the number of query block workers of the default
// backends. Default: GOMAXPROCS.
func WithEngineWorkers(n int) Option {
	return func(o *options) {
		o.engineWorkers = n
	}
}

// WithResources attaches a resource controller. It bounds engine score
// buffers and concurrent partial searches, and throttles snapshot streams.
func WithResources(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithCompression sets the stream compression used by SaveBlob. Files written
// by Save are never compressed.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &flatgo.BasicMetricsCollector{}
//	idx, _ := flatgo.New(128, flatgo.MetricL2, flatgo.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

// defaultBackends builds the host backends, wired to the index logger and
// resource controller.
func (o *options) defaultBackends() []backend.Backend {
	engineOpts := []func(*engine.Options){
		engine.WithLogger(o.logger.Logger),
		engine.WithResources(o.resources),
	}
	if o.memoryBudget > 0 {
		engineOpts = append(engineOpts, engine.WithMemoryBudget(o.memoryBudget))
	}
	if o.engineWorkers > 0 {
		engineOpts = append(engineOpts, engine.WithWorkers(o.engineWorkers))
	}

	return []backend.Backend{
		backend.NewCPU(backend.WithEngineOptions(engineOpts...)),
		backend.NewBLAS(backend.WithEngineOptions(engineOpts...)),
	}
}
