// Package inference turns grouped analyzer output into a unified schedule of
// recommended and fixed items.
package inference

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
	"github.com/kailas-cloud/slotdex/internal/model"
)

// SlotRecommender schedules movable events around fixed ones.
type SlotRecommender interface {
	Recommend(ctx context.Context, movable, fixed []event.Event, windowStart, windowEnd time.Time) []schedule.Slot
	Load(path string) (model.LoadReport, error)
}

// Factory builds a fresh recommender for one inference call.
type Factory func() (SlotRecommender, error)

// Orchestrator runs one inference per call with a freshly loaded model.
type Orchestrator struct {
	factory   Factory
	modelPath string
	now       func() time.Time
	logger    *zap.Logger
}

// New creates an orchestrator. modelPath may be empty to always use fresh weights.
func New(factory Factory, modelPath string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{factory: factory, modelPath: modelPath, now: time.Now, logger: logger}
}

// WithClock overrides the source of "today".
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Infer recommends slots for the coupons valid within the next days and returns them
// first, followed by the fixed events of the same window. It never fails: a missing or
// unreadable model falls back to initialized weights.
func (o *Orchestrator) Infer(ctx context.Context, groups event.Groups, days int) []schedule.Item {
	now := o.now()
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := base.AddDate(0, 0, days)

	var fixed []event.Event
	for _, c := range groups.Categories() {
		if !c.IsFixed() {
			continue
		}
		fixed = append(fixed, inWindow(groups[c], base, end)...)
	}
	movable := inWindow(groups[event.Coupon], base, end)
	if len(movable) == 0 {
		return []schedule.Item{}
	}

	rec, err := o.factory()
	if err != nil {
		o.logger.Error("Failed to build recommender", zap.Error(err))
		return []schedule.Item{}
	}
	if o.modelPath != "" {
		if _, err := rec.Load(o.modelPath); err != nil {
			o.logger.Debug("Using initialized model weights", zap.Error(err))
		}
	}

	slots := rec.Recommend(ctx, movable, fixed, base, end)

	items := make([]schedule.Item, 0, len(slots)+len(fixed))
	for _, s := range slots {
		items = append(items, schedule.Item{
			IsRecommendation: true,
			ID:               s.EventID,
			Date:             s.DateString(),
			Time:             s.Time,
			Item:             s.Title,
		})
	}
	for _, e := range fixed {
		d, _ := e.Date(base)
		items = append(items, schedule.Item{
			ID:          e.IDOrCode(),
			Date:        d.Format(event.DateLayout),
			Time:        e.Clock(),
			Description: e.String(event.FieldDescription),
		})
	}

	o.logger.Info("Inference complete",
		zap.Int("days", days),
		zap.Int("movable", len(movable)),
		zap.Int("fixed", len(fixed)),
		zap.Int("recommended", len(slots)),
	)
	return items
}

// inWindow keeps events dated within [base, end]. Undated events count as dated base.
func inWindow(events []event.Event, base, end time.Time) []event.Event {
	var out []event.Event
	for _, e := range events {
		d, _ := e.Date(base)
		if !d.Before(base) && !d.After(end) {
			out = append(out, e)
		}
	}
	return out
}
