package scheduler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/hupe1980/flatgo/model"
	"github.com/hupe1980/flatgo/resource"
)

// DefaultSmallWorkloadThreshold is the query x row count below which a
// search runs on the fallback backend alone.
const DefaultSmallWorkloadThreshold = 10000

// PartialEvent describes one completed partial search.
type PartialEvent struct {
	Backend  string
	Range    model.Range
	Queries  int
	Duration time.Duration
	Err      error

	// Retry is set when the partial search re-ran a failed range.
	Retry bool
}

// Observer receives partial search events. Implementations must be safe for
// concurrent use.
type Observer interface {
	OnPartial(PartialEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(PartialEvent)

// OnPartial implements Observer.
func (f ObserverFunc) OnPartial(e PartialEvent) { f(e) }

type noopObserver struct{}

func (noopObserver) OnPartial(PartialEvent) {}

// Options configures a Scheduler.
type Options struct {
	// Policy partitions rows across backends. Defaults to EvenPolicy.
	Policy Policy

	// Fallback names the backend small workloads run on and failed ranges
	// are retried on. Empty disables retries; small workloads then use the
	// first backend.
	Fallback string

	// SmallWorkloadThreshold defaults to DefaultSmallWorkloadThreshold.
	// A negative value always fans out.
	SmallWorkloadThreshold int

	// MergeWorkers bounds merge parallelism. Defaults to GOMAXPROCS.
	MergeWorkers int

	// Resources, if set, bounds concurrently running partial searches.
	Resources *resource.Controller

	Observer Observer
	Logger   *slog.Logger
}

func (o *Options) normalize() {
	if o.Policy == nil {
		o.Policy = EvenPolicy{}
	}
	if o.SmallWorkloadThreshold == 0 {
		o.SmallWorkloadThreshold = DefaultSmallWorkloadThreshold
	}
	if o.MergeWorkers <= 0 {
		o.MergeWorkers = runtime.GOMAXPROCS(0)
	}
	if o.Observer == nil {
		o.Observer = noopObserver{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// WithPolicy sets the partition policy.
func WithPolicy(p Policy) func(*Options) {
	return func(o *Options) { o.Policy = p }
}

// WithFallback sets the fallback backend by name.
func WithFallback(name string) func(*Options) {
	return func(o *Options) { o.Fallback = name }
}

// WithSmallWorkloadThreshold sets the synchronous mode threshold.
func WithSmallWorkloadThreshold(n int) func(*Options) {
	return func(o *Options) { o.SmallWorkloadThreshold = n }
}

// WithMergeWorkers bounds merge parallelism.
func WithMergeWorkers(n int) func(*Options) {
	return func(o *Options) { o.MergeWorkers = n }
}

// WithResources attaches a resource controller.
func WithResources(rc *resource.Controller) func(*Options) {
	return func(o *Options) { o.Resources = rc }
}

// WithObserver sets the partial search observer.
func WithObserver(obs Observer) func(*Options) {
	return func(o *Options) { o.Observer = obs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}
