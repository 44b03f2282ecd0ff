package chi

import (
	"context"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
	"github.com/kailas-cloud/slotdex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/slotdex/internal/domain/usage"
)

// Searcher runs fuzzy search over grouped events.
type Searcher interface {
	Search(ctx context.Context, groups event.Groups, raw []string) result.Set
	SearchPhrase(ctx context.Context, groups event.Groups, phrase string) result.Set
}

// Inferrer builds the unified schedule for the next days.
type Inferrer interface {
	Infer(ctx context.Context, groups event.Groups, days int) []schedule.Item
}

// FeatureExtractor encodes an event for the scheduling model.
type FeatureExtractor interface {
	Extract(ctx context.Context, e event.Event) []float64
}

// Trainer accepts feedback for the shared scheduling model and checkpoints it.
type Trainer interface {
	Train(features []float64, target schedule.Criteria) bool
	MemoryLen() int
	Save(path string) error
}

// UsageReporter builds keyword provider usage reports.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
