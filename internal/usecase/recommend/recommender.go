// Package recommend schedules movable events (coupons) into free slots around fixed events.
package recommend

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
	"github.com/kailas-cloud/slotdex/internal/metrics"
	"github.com/kailas-cloud/slotdex/internal/model"
	"github.com/kailas-cloud/slotdex/internal/usecase/features"
)

// Recommender owns one model, its optimizer and the replay memory.
// All methods serialize on an internal mutex.
type Recommender struct {
	mu       sync.Mutex
	cfg      Config
	model    *model.Model
	opt      *model.Adam
	scorer   Scorer
	features FeatureExtractor
	rng      *rand.Rand
	used     map[string]struct{}
	memory   []sample
	logger   *zap.Logger
}

type sample struct {
	features []float64
	target   schedule.Criteria
}

// New creates a recommender with a freshly initialized model.
func New(cfg Config, fx FeatureExtractor, logger *zap.Logger) (*Recommender, error) {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MemoryLimit < cfg.BatchSize {
		cfg.MemoryLimit = max(def.MemoryLimit, cfg.BatchSize)
	}
	if cfg.HiddenDim <= 0 {
		cfg.HiddenDim = def.HiddenDim
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	mcfg := model.DefaultConfig()
	mcfg.InputDim = features.Dim
	mcfg.MovableDim = features.MovableDim
	mcfg.HiddenDim = cfg.HiddenDim
	m, err := model.New(mcfg, rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	return &Recommender{
		cfg:      cfg,
		model:    m,
		opt:      model.NewAdam(cfg.LearningRate),
		scorer:   m,
		features: fx,
		rng:      rng,
		used:     make(map[string]struct{}),
		logger:   logger,
	}, nil
}

// WithScorer replaces the model as the scoring function. Training still updates the model.
func (r *Recommender) WithScorer(s Scorer) *Recommender {
	r.scorer = s
	return r
}

// Recommend assigns a slot to every eligible movable event and returns the slots by
// descending mean predicted score. Events already recommended by this instance, events
// past windowEnd and events with no days remaining are skipped.
func (r *Recommender) Recommend(
	ctx context.Context, movable, fixed []event.Event, windowStart, windowEnd time.Time,
) []schedule.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := day(windowStart)
	end := day(windowEnd)
	var out []schedule.Slot
	for _, e := range movable {
		key := usedKey(e)
		if _, ok := r.used[key]; ok {
			continue
		}
		date, _ := e.Date(start)
		date = day(date)
		remaining := daysBetween(start, date)
		if remaining <= 0 || date.After(end) {
			continue
		}

		x := r.features.Extract(ctx, e)
		crit := r.scorer.Predict(x)
		minutes := r.pickSlot(conflicts(fixed, date, start))

		out = append(out, schedule.Slot{
			EventID:       e.ID(),
			Date:          date,
			Time:          event.FormatClock(minutes),
			Title:         e.Title(),
			Brand:         e.String(event.FieldBrand),
			Type:          e.String(event.FieldType),
			Score:         crit.Mean(),
			Criteria:      crit,
			DaysRemaining: remaining,
			Features:      x,
		})
		r.used[key] = struct{}{}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	metrics.RecommendationsTotal.Add(float64(len(out)))
	r.logger.Debug("Recommended slots",
		zap.Int("movable", len(movable)),
		zap.Int("fixed", len(fixed)),
		zap.Int("slots", len(out)),
	)
	return out
}

// ResetUsed forgets which events were already recommended.
func (r *Recommender) ResetUsed() {
	r.mu.Lock()
	r.used = make(map[string]struct{})
	r.mu.Unlock()
}

// pickSlot draws uniformly among grid slots clear of every forbidden interval, or among
// all grid slots when none is clear.
func (r *Recommender) pickSlot(forbidden [][2]int) int {
	grid := schedule.Grid()
	allowed := make([]int, 0, len(grid))
	for _, m := range grid {
		if !inAny(m, forbidden) {
			allowed = append(allowed, m)
		}
	}
	if len(allowed) == 0 {
		allowed = grid
	}
	return allowed[r.rng.IntN(len(allowed))]
}

// conflicts returns the inclusive forbidden intervals that timed fixed events on date
// impose, clipped to the grid. Undated fixed events count as happening on fallback.
func conflicts(fixed []event.Event, date, fallback time.Time) [][2]int {
	var out [][2]int
	for _, f := range fixed {
		d, _ := f.Date(fallback)
		if !day(d).Equal(date) {
			continue
		}
		m, ok := event.ParseClock(f.Clock())
		if !ok {
			continue
		}
		out = append(out, [2]int{
			max(schedule.GridStart, m-schedule.ConflictMargin),
			min(schedule.GridEnd, m+schedule.ConflictMargin),
		})
	}
	return out
}

func inAny(m int, intervals [][2]int) bool {
	for _, iv := range intervals {
		if iv[0] <= m && m <= iv[1] {
			return true
		}
	}
	return false
}

// usedKey identifies an event across calls: its id, or its title when it has none.
func usedKey(e event.Event) string {
	if id := e.ID(); id != "" {
		return "id:" + id
	}
	return "title:" + e.Title()
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b; both must be day() values.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
