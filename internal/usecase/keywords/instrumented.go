// Package keywords meters free-text keyword extraction against a token budget.
package keywords

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedExtractor wraps a keyword provider with budget enforcement and metrics.
// It satisfies the search service's keyword extractor contract.
type InstrumentedExtractor struct {
	inner  domain.KeywordProvider
	model  string
	budget BudgetChecker
	logger *zap.Logger
}

// NewInstrumentedExtractor wraps inner. budget may be nil (unlimited).
func NewInstrumentedExtractor(
	inner domain.KeywordProvider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedExtractor {
	return &InstrumentedExtractor{inner: inner, model: model, budget: budget, logger: logger}
}

// Extract checks the budget, delegates to the provider and records token usage.
func (x *InstrumentedExtractor) Extract(ctx context.Context, phrase string) ([]string, error) {
	if x.budget != nil {
		if err := x.budget.Check(ctx); err != nil {
			metrics.KeywordRequestsTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	res, err := x.inner.Keywords(ctx, phrase)
	duration := time.Since(start)
	if err != nil {
		metrics.KeywordRequestsTotal.WithLabelValues("error").Inc()
		x.logger.Error("Keyword extraction failed",
			zap.String("model", x.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("extract keywords: %w", err)
	}

	metrics.KeywordRequestsTotal.WithLabelValues("success").Inc()
	metrics.KeywordTokensTotal.Add(float64(res.TotalTokens))
	if x.budget != nil {
		x.budget.Record(int64(res.TotalTokens))
		remaining := metrics.KeywordBudgetTokensRemaining
		remaining.WithLabelValues("daily").Set(float64(x.budget.RemainingDaily()))
		remaining.WithLabelValues("monthly").Set(float64(x.budget.RemainingMonthly()))
	}

	x.logger.Debug("Keyword extraction completed",
		zap.String("model", x.model),
		zap.Duration("duration", duration),
		zap.Strings("tokens", res.Tokens),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res.Tokens, nil
}
