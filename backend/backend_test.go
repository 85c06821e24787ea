package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/engine"
	"github.com/hupe1980/flatgo/kernel"
	"github.com/hupe1980/flatgo/model"
)

type failingKernel struct{ kernel.Reference }

func (failingKernel) Name() string { return "failing" }

func (failingKernel) Gemm(bool, bool, kernel.Matrix, kernel.Matrix, kernel.Matrix) error {
	return errors.New("device lost")
}

func TestHostCPU(t *testing.T) {
	d := HostCPU()
	assert.Equal(t, KindCPU, d.Kind)
	assert.NotEmpty(t, d.Name)
	assert.Contains(t, d.String(), "cpu#0")
	assert.False(t, d.HasFeature("no-such-feature"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "cpu", KindCPU.String())
	assert.Equal(t, "gpu", KindGPU.String())
	assert.Equal(t, "accelerator", KindAccelerator.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestNew_Naming(t *testing.T) {
	assert.Equal(t, "cpu", NewCPU().Name())
	assert.Equal(t, "blas", NewBLAS().Name())
	assert.Equal(t, "custom", NewCPU(WithName("custom")).Name())

	gpu := New(Device{ID: 1, Kind: KindGPU, Name: "gpu0"}, kernel.Reference{})
	assert.Equal(t, "gpu0", gpu.Name())
	assert.Equal(t, KindGPU, gpu.Device().Kind)

	anon := New(Device{Kind: KindAccelerator}, kernel.BLAS{})
	assert.Equal(t, "blas", anon.Name())
}

func TestComputeTopK(t *testing.T) {
	b := NewBLAS(WithEngineOptions(engine.WithWorkers(2)))
	assert.Equal(t, 2, b.Engine().Options().Workers)

	req := model.Request{
		Metric:     distance.MetricInnerProduct,
		Dim:        2,
		K:          2,
		Queries:    []float32{1, 0},
		NumQueries: 1,
		Data:       []float32{0, 1, 3, 0, 2, 0},
		NumData:    3,
		Offset:     10,
	}
	res := model.NewResult(1, 2)

	found, err := b.ComputeTopK(context.Background(), req, res)
	require.NoError(t, err)
	assert.Equal(t, 2, found)
	assert.Equal(t, []int64{11, 12}, res.Indices)
	assert.Equal(t, []float32{3, 2}, res.Distances)
}

func TestComputeTopK_KernelFailure(t *testing.T) {
	b := New(Device{Kind: KindGPU, Name: "gpu0"}, failingKernel{})

	req := model.Request{
		Metric:     distance.MetricInnerProduct,
		Dim:        1,
		K:          1,
		Queries:    []float32{1},
		NumQueries: 1,
		Data:       []float32{1},
		NumData:    1,
	}
	_, err := b.ComputeTopK(context.Background(), req, model.NewResult(1, 1))
	assert.ErrorContains(t, err, "device lost")
}
