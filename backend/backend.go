package backend

import (
	"context"

	"github.com/hupe1980/flatgo/engine"
	"github.com/hupe1980/flatgo/kernel"
	"github.com/hupe1980/flatgo/model"
)

// Backend computes partial top-k results on one device.
type Backend interface {
	// Name identifies the backend within an index. Names must be unique.
	Name() string

	// Device describes the hardware the backend runs on.
	Device() Device

	// ComputeTopK writes the top req.K hits of each query over req's data
	// rows into res (exactly NumQueries*K slots, indices shifted by
	// req.Offset) and returns the number of real hits per row.
	ComputeTopK(ctx context.Context, req model.Request, res model.Result) (int, error)
}

// Options configures a kernel-driven backend.
type Options struct {
	// Name defaults to the device name.
	Name string

	// Engine holds options for the backend's distance engine.
	Engine []func(*engine.Options)
}

// Option configures a kernel-driven backend.
type Option func(*Options)

// WithName sets the backend name.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithEngineOptions forwards options to the distance engine.
func WithEngineOptions(fns ...func(*engine.Options)) Option {
	return func(o *Options) { o.Engine = append(o.Engine, fns...) }
}

// KernelBackend runs the blocked engine on a kernel.
type KernelBackend struct {
	name   string
	device Device
	engine *engine.Engine
}

var _ Backend = (*KernelBackend)(nil)

// New creates a backend driving k on device.
func New(device Device, k kernel.Kernel, optFns ...Option) *KernelBackend {
	opts := Options{Name: device.Name}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Name == "" {
		opts.Name = k.Name()
	}

	return &KernelBackend{
		name:   opts.Name,
		device: device,
		engine: engine.New(k, opts.Engine...),
	}
}

// NewCPU creates the portable host CPU backend, named "cpu".
func NewCPU(optFns ...Option) *KernelBackend {
	return New(HostCPU(), kernel.Reference{}, append([]Option{WithName("cpu")}, optFns...)...)
}

// NewBLAS creates a host backend on gonum's BLAS, named "blas".
func NewBLAS(optFns ...Option) *KernelBackend {
	return New(HostCPU(), kernel.BLAS{}, append([]Option{WithName("blas")}, optFns...)...)
}

// Name implements Backend.
func (b *KernelBackend) Name() string { return b.name }

// Device implements Backend.
func (b *KernelBackend) Device() Device { return b.device }

// Engine returns the backend's distance engine.
func (b *KernelBackend) Engine() *engine.Engine { return b.engine }

// ComputeTopK implements Backend.
func (b *KernelBackend) ComputeTopK(ctx context.Context, req model.Request, res model.Result) (int, error) {
	return b.engine.Search(ctx, req, res)
}
