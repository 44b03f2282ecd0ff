// Package model implements the slot scoring network: two encoders (movable event
// features and fixed-context features) fused by a combining layer and read out by
// one linear head per scheduling criterion.
package model

import (
	"fmt"
	"math/rand/v2"

	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
)

// Config sizes the network.
type Config struct {
	InputDim   int
	MovableDim int
	HiddenDim  int
	Dropout    float64
}

// DefaultConfig returns the production network shape.
func DefaultConfig() Config {
	return Config{InputDim: 57, MovableDim: 28, HiddenDim: 32, Dropout: 0.1}
}

// Validate checks the shape.
func (c Config) Validate() error {
	if c.MovableDim <= 0 || c.MovableDim >= c.InputDim {
		return fmt.Errorf("%w: movable dim %d must be in (0, %d)", domain.ErrInvalidDimension, c.MovableDim, c.InputDim)
	}
	if c.HiddenDim <= 0 {
		return fmt.Errorf("%w: hidden dim must be positive", domain.ErrInvalidDimension)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("%w: dropout must be in [0, 1)", domain.ErrInvalidRequest)
	}
	return nil
}

var headNames = [schedule.NumCriteria]string{"out_date", "out_time", "out_schedule", "out_weekday"}

// Model is the scoring network. It is not safe for concurrent use.
type Model struct {
	cfg      Config
	movable  *block
	fixed    *block
	combined *block
	heads    [schedule.NumCriteria]*linear
	rng      *rand.Rand
}

// New builds a freshly initialized model. rng drives initialization and dropout.
func New(cfg Config, rng *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := cfg.HiddenDim
	m := &Model{
		cfg:      cfg,
		movable:  newBlock("movable_encoder", cfg.MovableDim, h, cfg.Dropout, rng),
		fixed:    newBlock("fixed_encoder", cfg.InputDim-cfg.MovableDim, h, cfg.Dropout, rng),
		combined: newBlock("combined_layer", 2*h, h, cfg.Dropout, rng),
		rng:      rng,
	}
	for i, name := range headNames {
		m.heads[i] = newLinear(name, h, 1, rng)
	}
	return m, nil
}

// Config returns the network shape.
func (m *Model) Config() Config { return m.cfg }

// Params returns every trainable parameter in a stable order.
func (m *Model) Params() []*Param {
	out := append(m.movable.params(), m.fixed.params()...)
	out = append(out, m.combined.params()...)
	for _, h := range m.heads {
		out = append(out, h.params()...)
	}
	return out
}

// ZeroGrad clears accumulated gradients.
func (m *Model) ZeroGrad() {
	for _, p := range m.Params() {
		clear(p.Grad)
	}
}

type tape struct {
	movable, fixed, combined *blockTape
	hidden                   []float64
}

func (m *Model) forward(x []float64, train bool) (schedule.Criteria, *tape) {
	if len(x) != m.cfg.InputDim {
		padded := make([]float64, m.cfg.InputDim)
		copy(padded, x)
		x = padded
	}
	var rng *rand.Rand
	if train {
		rng = m.rng
	}
	mv, mt := m.movable.forward(x[:m.cfg.MovableDim], rng)
	fx, ft := m.fixed.forward(x[m.cfg.MovableDim:], rng)
	hidden, ct := m.combined.forward(append(mv, fx...), rng)

	var out schedule.Criteria
	for i, head := range m.heads {
		out[i] = head.forward(hidden)[0]
	}
	return out, &tape{movable: mt, fixed: ft, combined: ct, hidden: hidden}
}

// Predict scores one feature vector with dropout disabled.
func (m *Model) Predict(x []float64) schedule.Criteria {
	out, _ := m.forward(x, false)
	return out
}

// Backward runs a training-mode forward pass over the batch and accumulates the gradient of
//
//	loss = mean_{b,k} weights[k] * (out[b][k] + noise[b][k] - targets[b][k])^2
//
// noise may be nil. It returns the noiseless outputs and the loss.
func (m *Model) Backward(batch [][]float64, targets, noise []schedule.Criteria, weights schedule.Criteria) ([]schedule.Criteria, float64) {
	outputs := make([]schedule.Criteria, len(batch))
	if len(batch) == 0 {
		return outputs, 0
	}
	denom := float64(len(batch) * schedule.NumCriteria)
	var loss float64
	h := m.cfg.HiddenDim

	for b, x := range batch {
		out, t := m.forward(x, true)
		outputs[b] = out

		dHidden := make([]float64, h)
		for k, head := range m.heads {
			diff := out[k] - targets[b][k]
			if noise != nil {
				diff += noise[b][k]
			}
			loss += weights[k] * diff * diff
			g := 2 * weights[k] * diff / denom
			dh := head.backward(t.hidden, []float64{g})
			for i := range dHidden {
				dHidden[i] += dh[i]
			}
		}

		dCat := m.combined.backward(t.combined, dHidden)
		m.movable.backward(t.movable, dCat[:h])
		m.fixed.backward(t.fixed, dCat[h:])
	}
	return outputs, loss / denom
}

// Loss evaluates the weighted squared error with dropout disabled and no noise.
func (m *Model) Loss(batch [][]float64, targets []schedule.Criteria, weights schedule.Criteria) float64 {
	if len(batch) == 0 {
		return 0
	}
	var loss float64
	for b, x := range batch {
		out := m.Predict(x)
		for k := range out {
			d := out[k] - targets[b][k]
			loss += weights[k] * d * d
		}
	}
	return loss / float64(len(batch)*schedule.NumCriteria)
}
