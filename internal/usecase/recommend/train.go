package recommend

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
	"github.com/kailas-cloud/slotdex/internal/metrics"
	"github.com/kailas-cloud/slotdex/internal/model"
)

// Train stores one (features, target) observation in the replay memory and, once the
// memory holds a full batch, runs one optimizer step on a random mini-batch.
// It reports whether an update was applied.
func (r *Recommender) Train(features []float64, target schedule.Criteria) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.memory = append(r.memory, sample{features: append([]float64(nil), features...), target: target})
	if len(r.memory) > r.cfg.MemoryLimit {
		r.memory = r.memory[len(r.memory)-r.cfg.MemoryLimit:]
	}
	if len(r.memory) < r.cfg.BatchSize {
		return false
	}

	idx := r.rng.Perm(len(r.memory))[:r.cfg.BatchSize]
	batch := make([][]float64, len(idx))
	targets := make([]schedule.Criteria, len(idx))
	noise := make([]schedule.Criteria, len(idx))
	for i, j := range idx {
		batch[i] = r.memory[j].features
		targets[i] = r.memory[j].target
		for k := range noise[i] {
			noise[i][k] = r.rng.NormFloat64() * r.cfg.ExplorationStd
		}
	}

	r.model.ZeroGrad()
	outputs, loss := r.model.Backward(batch, targets, noise, schedule.LossWeights)
	r.opt.Step(r.model.Params())

	metrics.TrainingStepsTotal.Inc()
	metrics.TrainingLoss.Set(loss)
	r.logDiagnostics(loss, outputs, targets)
	return true
}

// MemoryLen returns the replay memory size.
func (r *Recommender) MemoryLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.memory)
}

// Steps returns the number of optimizer updates applied since construction.
func (r *Recommender) Steps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opt.Steps()
}

// diagnostics are observational batch statistics computed on noiseless outputs.
type diagnostics struct {
	rmse, mae               schedule.Criteria
	overallRMSE, overallMAE float64
	baseline, advantage     schedule.Criteria
}

func computeDiagnostics(outputs, targets []schedule.Criteria) diagnostics {
	var d diagnostics
	n := float64(len(targets))
	if n == 0 {
		return d
	}
	var se, ae schedule.Criteria
	for b := range targets {
		for k := range se {
			diff := outputs[b][k] - targets[b][k]
			se[k] += diff * diff
			ae[k] += math.Abs(diff)
			d.baseline[k] += targets[b][k] / n
		}
	}
	var totalSE, totalAE float64
	for k := range se {
		d.rmse[k] = math.Sqrt(se[k] / n)
		d.mae[k] = ae[k] / n
		totalSE += se[k]
		totalAE += ae[k]
	}
	d.overallRMSE = math.Sqrt(totalSE / (n * schedule.NumCriteria))
	d.overallMAE = totalAE / (n * schedule.NumCriteria)
	for b := range targets {
		for k := range d.advantage {
			d.advantage[k] += (targets[b][k] - d.baseline[k]) / n
		}
	}
	return d
}

func (r *Recommender) logDiagnostics(loss float64, outputs, targets []schedule.Criteria) {
	d := computeDiagnostics(outputs, targets)
	r.logger.Info("Mini-batch update",
		zap.Float64("loss", loss),
		zap.Float64("overall_rmse", d.overallRMSE),
		zap.Float64("overall_mae", d.overallMAE),
		zap.Float64s("rmse", d.rmse[:]),
		zap.Float64s("mae", d.mae[:]),
		zap.Float64s("baseline", d.baseline[:]),
		zap.Float64s("mean_advantage", d.advantage[:]),
		zap.Int("step", r.opt.Steps()),
	)
}

// Save checkpoints the model.
func (r *Recommender) Save(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.model.Save(path); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Load restores model parameters non-strictly; unmatched parameters keep their
// initialized values.
func (r *Recommender) Load(path string) (model.LoadReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, err := r.model.Load(path)
	if err != nil {
		return report, err
	}
	if !report.Complete() {
		r.logger.Warn("Model loaded partially, some parameters keep their initial values",
			zap.String("path", path),
			zap.Strings("skipped", report.Skipped),
		)
	}
	return report, nil
}
