package slotdex

import (
	"context"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
	"github.com/kailas-cloud/slotdex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/slotdex/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, groups event.Groups, raw []string) result.Set
	phraseFn func(ctx context.Context, groups event.Groups, phrase string) result.Set
}

func (m *mockSearchUC) Search(ctx context.Context, groups event.Groups, raw []string) result.Set {
	return m.searchFn(ctx, groups, raw)
}

func (m *mockSearchUC) SearchPhrase(ctx context.Context, groups event.Groups, phrase string) result.Set {
	return m.phraseFn(ctx, groups, phrase)
}

// --- inferenceUseCase mock ---

type mockInferUC struct {
	inferFn func(ctx context.Context, groups event.Groups, days int) []schedule.Item
}

func (m *mockInferUC) Infer(ctx context.Context, groups event.Groups, days int) []schedule.Item {
	return m.inferFn(ctx, groups, days)
}

// --- featureExtractor mock ---

type mockFeatures struct{}

func (mockFeatures) Extract(_ context.Context, e event.Event) []float64 {
	return []float64{float64(len(e.Title()))}
}

// --- trainerUseCase mock ---

type mockTrainer struct {
	samples int
	target  schedule.Criteria
	saved   string
	saveErr error
}

func (m *mockTrainer) Train(_ []float64, target schedule.Criteria) bool {
	m.samples++
	m.target = target
	return m.samples%2 == 0
}

func (m *mockTrainer) MemoryLen() int { return m.samples }

func (m *mockTrainer) Save(path string) error {
	m.saved = path
	return m.saveErr
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- helpers ---

func testClient(searchSvc searchUseCase, inferSvc inferenceUseCase, trainer trainerUseCase) *Client {
	return &Client{
		searchSvc: searchSvc,
		inferSvc:  inferSvc,
		features:  mockFeatures{},
		trainer:   trainer,
	}
}
