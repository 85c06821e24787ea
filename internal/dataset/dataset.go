// Package dataset generates synthetic vector collections.
package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/flatgo/distance"
)

// Names lists the datasets Generate accepts.
var Names = []string{"uniform", "gaussian", "unit", "integer", "circle", "line"}

// Planar reports whether the dataset always has dimension 2.
func Planar(name string) bool {
	return name == "circle" || name == "line"
}

// Generator produces deterministic datasets from a seed. It is not safe for
// concurrent use.
type Generator struct {
	rand *rand.Rand
}

// New creates a generator seeded with seed.
func New(seed int64) *Generator {
	return &Generator{rand: rand.New(rand.NewSource(seed))}
}

// Generate returns n vectors of the named dataset and their dimension.
// Planar datasets ignore dim.
func (g *Generator) Generate(name string, n, dim int) ([]float32, int, error) {
	switch name {
	case "uniform":
		return g.Uniform(n, dim), dim, nil
	case "gaussian":
		return g.Gaussian(n, dim), dim, nil
	case "unit":
		return g.Unit(n, dim), dim, nil
	case "integer":
		return g.Integer(n, dim, 8), dim, nil
	case "circle":
		return Circle(n), 2, nil
	case "line":
		return Line(n, 0.01), 2, nil
	}
	return nil, 0, fmt.Errorf("unknown dataset %q, want one of %v", name, Names)
}

// Uniform returns n*dim components in [0, 1).
func (g *Generator) Uniform(n, dim int) []float32 {
	data := make([]float32, n*dim)
	for i := range data {
		data[i] = g.rand.Float32()
	}
	return data
}

// Gaussian returns n*dim standard normal components.
func (g *Generator) Gaussian(n, dim int) []float32 {
	data := make([]float32, n*dim)
	for i := range data {
		data[i] = float32(g.rand.NormFloat64())
	}
	return data
}

// Unit returns gaussian vectors scaled to unit length.
func (g *Generator) Unit(n, dim int) []float32 {
	data := g.Gaussian(n, dim)
	distance.RenormL2(data, dim)
	return data
}

// Integer returns components drawn from [-bound, bound]. Scores of such
// vectors are exact in float32 while dim*bound*bound < 2^24.
func (g *Generator) Integer(n, dim, bound int) []float32 {
	data := make([]float32, n*dim)
	for i := range data {
		data[i] = float32(g.rand.Intn(2*bound+1) - bound)
	}
	return data
}

// Circle returns n points evenly spaced on the unit circle, starting at (1, 0).
func Circle(n int) []float32 {
	data := make([]float32, 2*n)
	for i := range n {
		theta := 2 * math.Pi * float64(i) / float64(n)
		data[2*i] = float32(math.Cos(theta))
		data[2*i+1] = float32(math.Sin(theta))
	}
	return data
}

// Line returns n points (i*step, 0).
func Line(n int, step float32) []float32 {
	data := make([]float32, 2*n)
	for i := range n {
		data[2*i] = float32(i) * step
	}
	return data
}
