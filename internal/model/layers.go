package model

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// layerNormEps matches the usual LayerNorm default.
const layerNormEps = 1e-5

// Param is a named trainable tensor stored flat, with its gradient.
type Param struct {
	Name string
	Data []float64
	Grad []float64
}

func newParam(name string, n int) *Param {
	return &Param{Name: name, Data: make([]float64, n), Grad: make([]float64, n)}
}

// linear is a fully connected layer with a row-major Out x In weight matrix.
type linear struct {
	in, out int
	w, b    *Param
}

// newLinear initializes weights and bias from U(-1/sqrt(in), 1/sqrt(in)).
func newLinear(name string, in, out int, rng *rand.Rand) *linear {
	l := &linear{in: in, out: out, w: newParam(name+".weight", in*out), b: newParam(name+".bias", out)}
	bound := 1 / math.Sqrt(float64(in))
	for i := range l.w.Data {
		l.w.Data[i] = (rng.Float64()*2 - 1) * bound
	}
	for i := range l.b.Data {
		l.b.Data[i] = (rng.Float64()*2 - 1) * bound
	}
	return l
}

func (l *linear) row(i int) []float64 { return l.w.Data[i*l.in : (i+1)*l.in] }

func (l *linear) forward(x []float64) []float64 {
	y := make([]float64, l.out)
	for i := range y {
		y[i] = floats.Dot(l.row(i), x) + l.b.Data[i]
	}
	return y
}

// backward accumulates parameter gradients for input x and returns dL/dx.
func (l *linear) backward(x, dy []float64) []float64 {
	dx := make([]float64, l.in)
	for i, g := range dy {
		if g == 0 {
			continue
		}
		floats.AddScaled(l.w.Grad[i*l.in:(i+1)*l.in], g, x)
		l.b.Grad[i] += g
		floats.AddScaled(dx, g, l.row(i))
	}
	return dx
}

func (l *linear) params() []*Param { return []*Param{l.w, l.b} }

// block is Linear -> ReLU -> LayerNorm -> Dropout.
type block struct {
	lin     *linear
	gamma   *Param
	beta    *Param
	dropout float64
}

func newBlock(name string, in, out int, dropout float64, rng *rand.Rand) *block {
	b := &block{
		lin:     newLinear(name+".0", in, out, rng),
		gamma:   newParam(name+".2.weight", out),
		beta:    newParam(name+".2.bias", out),
		dropout: dropout,
	}
	for i := range b.gamma.Data {
		b.gamma.Data[i] = 1
	}
	return b
}

func (b *block) params() []*Param {
	return append(b.lin.params(), b.gamma, b.beta)
}

// blockTape holds the intermediates of one forward pass needed by backward.
type blockTape struct {
	x      []float64
	z      []float64
	xhat   []float64
	invStd float64
	mask   []float64
}

// forward runs the block. With rng set, dropout is active (inverted scaling).
func (b *block) forward(x []float64, rng *rand.Rand) ([]float64, *blockTape) {
	z := b.lin.forward(x)
	n := float64(len(z))

	r := make([]float64, len(z))
	for i, v := range z {
		r[i] = math.Max(v, 0)
	}
	mean := floats.Sum(r) / n
	var variance float64
	for _, v := range r {
		variance += (v - mean) * (v - mean)
	}
	variance /= n
	invStd := 1 / math.Sqrt(variance+layerNormEps)

	xhat := make([]float64, len(r))
	y := make([]float64, len(r))
	mask := make([]float64, len(r))
	keep := 1 / (1 - b.dropout)
	for i, v := range r {
		xhat[i] = (v - mean) * invStd
		mask[i] = 1
		if rng != nil && b.dropout > 0 {
			if rng.Float64() < b.dropout {
				mask[i] = 0
			} else {
				mask[i] = keep
			}
		}
		y[i] = (b.gamma.Data[i]*xhat[i] + b.beta.Data[i]) * mask[i]
	}
	return y, &blockTape{x: x, z: z, xhat: xhat, invStd: invStd, mask: mask}
}

func (b *block) backward(t *blockTape, dOut []float64) []float64 {
	n := float64(len(dOut))
	dxhat := make([]float64, len(dOut))
	var sumD, sumDX float64
	for i, g := range dOut {
		dy := g * t.mask[i]
		b.gamma.Grad[i] += dy * t.xhat[i]
		b.beta.Grad[i] += dy
		dxhat[i] = dy * b.gamma.Data[i]
		sumD += dxhat[i]
		sumDX += dxhat[i] * t.xhat[i]
	}
	dz := make([]float64, len(dOut))
	for i := range dz {
		if t.z[i] <= 0 {
			continue
		}
		dz[i] = t.invStd / n * (n*dxhat[i] - sumD - t.xhat[i]*sumDX)
	}
	return b.lin.backward(t.x, dz)
}
