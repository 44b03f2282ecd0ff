package recommend

import (
	"context"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
)

// FeatureExtractor maps an event to the model input vector.
type FeatureExtractor interface {
	Extract(ctx context.Context, e event.Event) []float64
}

// Scorer predicts the per-criterion quality of a candidate.
type Scorer interface {
	Predict(x []float64) schedule.Criteria
}

// Config tunes the recommender and its training loop.
type Config struct {
	LearningRate   float64
	BatchSize      int
	MemoryLimit    int
	HiddenDim      int
	ExplorationStd float64
	// Seed fixes slot sampling, dropout and initialization. Zero picks a time-based seed.
	Seed uint64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		LearningRate:   0.01,
		BatchSize:      32,
		MemoryLimit:    1000,
		HiddenDim:      32,
		ExplorationStd: 0.01,
	}
}
