package engine

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/flatgo/resource"
)

const (
	// DefaultMemoryBudget bounds the per-worker working set of one tile.
	DefaultMemoryBudget = 16 << 20

	// MaxQueryBlock caps the number of queries in a tile.
	MaxQueryBlock = 4096
)

// Options configures an Engine.
type Options struct {
	// MemoryBudget is the tile working set in bytes. Defaults to
	// DefaultMemoryBudget.
	MemoryBudget int64

	// Workers is the number of goroutines processing query blocks.
	// Defaults to GOMAXPROCS.
	Workers int

	// Resources, if set, accounts score buffers against its memory budget.
	Resources *resource.Controller

	// Logger receives debug output. nil discards.
	Logger *slog.Logger
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		MemoryBudget: DefaultMemoryBudget,
		Workers:      runtime.GOMAXPROCS(0),
	}
}

func (o *Options) normalize() {
	if o.MemoryBudget <= 0 {
		o.MemoryBudget = DefaultMemoryBudget
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// WithMemoryBudget sets the tile working set in bytes.
func WithMemoryBudget(bytes int64) func(*Options) {
	return func(o *Options) { o.MemoryBudget = bytes }
}

// WithWorkers sets the number of block workers.
func WithWorkers(n int) func(*Options) {
	return func(o *Options) { o.Workers = n }
}

// WithResources attaches a resource controller.
func WithResources(rc *resource.Controller) func(*Options) {
	return func(o *Options) { o.Resources = rc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}
