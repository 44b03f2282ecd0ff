package model

import (
	"errors"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
)

func newTestModel(t *testing.T, cfg Config, seed uint64) *Model {
	t.Helper()
	m, err := New(cfg, rand.New(rand.NewPCG(seed, seed+1)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func randomBatch(rng *rand.Rand, n, dim int) ([][]float64, []schedule.Criteria) {
	batch := make([][]float64, n)
	targets := make([]schedule.Criteria, n)
	for i := range batch {
		batch[i] = make([]float64, dim)
		for j := range batch[i] {
			batch[i][j] = rng.Float64()*2 - 1
		}
		for k := range targets[i] {
			targets[i][k] = rng.Float64()
		}
	}
	return batch, targets
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"movable too large", Config{InputDim: 4, MovableDim: 4, HiddenDim: 2}, true},
		{"no hidden", Config{InputDim: 4, MovableDim: 2}, true},
		{"dropout one", Config{InputDim: 4, MovableDim: 2, HiddenDim: 2, Dropout: 1}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestModel_ParamShapes(t *testing.T) {
	m := newTestModel(t, DefaultConfig(), 1)
	want := map[string]int{
		"movable_encoder.0.weight": 28 * 32,
		"movable_encoder.0.bias":   32,
		"movable_encoder.2.weight": 32,
		"fixed_encoder.0.weight":   29 * 32,
		"combined_layer.0.weight":  64 * 32,
		"out_weekday.weight":       32,
		"out_weekday.bias":         1,
	}
	state := m.StateDict()
	if len(state) != 3*4+4*2 {
		t.Errorf("param count = %d, want 20", len(state))
	}
	for name, n := range want {
		if got := len(state[name]); got != n {
			t.Errorf("%s: len = %d, want %d", name, got, n)
		}
	}
	for _, v := range state["movable_encoder.0.weight"] {
		if math.Abs(v) > 1/math.Sqrt(28) {
			t.Fatalf("init out of bounds: %v", v)
		}
	}
}

func TestModel_PredictDeterministic(t *testing.T) {
	m := newTestModel(t, DefaultConfig(), 7)
	x := make([]float64, 57)
	x[3], x[40] = 0.5, -0.25
	a, b := m.Predict(x), m.Predict(x)
	if a != b {
		t.Errorf("Predict is not deterministic in eval mode: %v vs %v", a, b)
	}
	if short := m.Predict(x[:10]); math.IsNaN(short[0]) {
		t.Error("short input should be zero padded")
	}
}

func TestModel_GradientCheck(t *testing.T) {
	cfg := Config{InputDim: 7, MovableDim: 3, HiddenDim: 5, Dropout: 0}
	m := newTestModel(t, cfg, 42)
	batch, targets := randomBatch(rand.New(rand.NewPCG(3, 4)), 4, cfg.InputDim)
	weights := schedule.LossWeights

	m.ZeroGrad()
	_, loss := m.Backward(batch, targets, nil, weights)
	if math.Abs(loss-m.Loss(batch, targets, weights)) > 1e-12 {
		t.Fatalf("Backward loss %v != Loss %v", loss, m.Loss(batch, targets, weights))
	}

	const h = 1e-6
	for _, p := range m.Params() {
		for _, i := range []int{0, len(p.Data) / 2, len(p.Data) - 1} {
			orig := p.Data[i]
			p.Data[i] = orig + h
			up := m.Loss(batch, targets, weights)
			p.Data[i] = orig - h
			down := m.Loss(batch, targets, weights)
			p.Data[i] = orig

			numeric := (up - down) / (2 * h)
			if diff := math.Abs(numeric - p.Grad[i]); diff > 1e-5+1e-3*math.Abs(numeric) {
				t.Errorf("%s[%d]: analytic %.8f, numeric %.8f", p.Name, i, p.Grad[i], numeric)
			}
		}
	}
}

func TestAdam_ReducesLoss(t *testing.T) {
	cfg := Config{InputDim: 7, MovableDim: 3, HiddenDim: 8, Dropout: 0}
	m := newTestModel(t, cfg, 11)
	batch, targets := randomBatch(rand.New(rand.NewPCG(5, 6)), 16, cfg.InputDim)
	opt := NewAdam(0.01)

	before := m.Loss(batch, targets, schedule.LossWeights)
	for range 200 {
		m.ZeroGrad()
		m.Backward(batch, targets, nil, schedule.LossWeights)
		opt.Step(m.Params())
	}
	after := m.Loss(batch, targets, schedule.LossWeights)
	if after >= before {
		t.Errorf("loss did not decrease: %v -> %v", before, after)
	}
	if opt.Steps() != 200 {
		t.Errorf("Steps() = %d", opt.Steps())
	}
}

func TestModel_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "slot_model.json")
	src := newTestModel(t, DefaultConfig(), 1)
	if err := src.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := newTestModel(t, DefaultConfig(), 99)
	report, err := dst.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !report.Complete() || len(report.Loaded) != 20 {
		t.Errorf("report = %+v", report)
	}
	x := make([]float64, 57)
	x[0] = 1
	if src.Predict(x) != dst.Predict(x) {
		t.Error("loaded model predicts differently")
	}
}

func TestModel_LoadToleratesShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.json")
	small := newTestModel(t, Config{InputDim: 57, MovableDim: 28, HiddenDim: 16, Dropout: 0.1}, 1)
	if err := small.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m := newTestModel(t, DefaultConfig(), 2)
	before := m.StateDict()
	report, err := m.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(report.Loaded) != 4 {
		// Only the head biases keep their shape.
		t.Errorf("loaded = %v", report.Loaded)
	}
	after := m.StateDict()
	for _, name := range report.Skipped {
		for i := range before[name] {
			if before[name][i] != after[name][i] {
				t.Fatalf("%s changed despite shape mismatch", name)
			}
		}
	}
}

func TestModel_LoadErrors(t *testing.T) {
	m := newTestModel(t, DefaultConfig(), 1)
	if _, err := m.Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, domain.ErrModelLoad) {
		t.Errorf("missing file: err = %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(bad); !errors.Is(err, domain.ErrModelLoad) {
		t.Errorf("corrupt file: err = %v", err)
	}
}
