package keywords

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEngineMetrics()
	os.Exit(m.Run())
}

type mockProvider struct {
	result domain.KeywordResult
	err    error
	calls  int
}

func (m *mockProvider) Keywords(_ context.Context, _ string) (domain.KeywordResult, error) {
	m.calls++
	return m.result, m.err
}

func TestInstrumentedExtractor_Success(t *testing.T) {
	inner := &mockProvider{result: domain.KeywordResult{
		Tokens:       []string{"이전", "2025-02-13", "쿠폰"},
		PromptTokens: 120,
		TotalTokens:  128,
	}}
	x := NewInstrumentedExtractor(inner, "test-model", nil, zap.NewNop())

	before := testutil.ToFloat64(metrics.KeywordTokensTotal)
	tokens, err := x.Extract(context.Background(), "다음 주에 만료되는 쿠폰")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(tokens, inner.result.Tokens) {
		t.Errorf("tokens = %v", tokens)
	}
	if got := testutil.ToFloat64(metrics.KeywordTokensTotal) - before; got != 128 {
		t.Errorf("keyword tokens metric grew by %v, want 128", got)
	}
}

func TestInstrumentedExtractor_RecordsBudget(t *testing.T) {
	inner := &mockProvider{result: domain.KeywordResult{Tokens: []string{"쿠폰"}, TotalTokens: 40}}
	bt, _ := newTestTracker(100, 1000, BudgetActionReject)
	x := NewInstrumentedExtractor(inner, "test-model", bt, zap.NewNop())

	if _, err := x.Extract(context.Background(), "쿠폰"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bt.DailyUsed() != 40 {
		t.Errorf("expected daily_used=40, got %d", bt.DailyUsed())
	}
	if got := testutil.ToFloat64(metrics.KeywordBudgetTokensRemaining.WithLabelValues("daily")); got != 60 {
		t.Errorf("daily remaining gauge = %v, want 60", got)
	}
}

func TestInstrumentedExtractor_BudgetRejectSkipsProvider(t *testing.T) {
	inner := &mockProvider{result: domain.KeywordResult{Tokens: []string{"쿠폰"}, TotalTokens: 100}}
	bt, _ := newTestTracker(100, 0, BudgetActionReject)
	bt.Record(100)
	x := NewInstrumentedExtractor(inner, "test-model", bt, zap.NewNop())

	before := testutil.ToFloat64(metrics.KeywordRequestsTotal.WithLabelValues("rejected"))
	_, err := x.Extract(context.Background(), "쿠폰")
	if !errors.Is(err, domain.ErrKeywordQuotaExceeded) {
		t.Fatalf("expected ErrKeywordQuotaExceeded, got %v", err)
	}
	if inner.calls != 0 {
		t.Error("provider called with an exhausted budget")
	}
	if got := testutil.ToFloat64(metrics.KeywordRequestsTotal.WithLabelValues("rejected")) - before; got != 1 {
		t.Errorf("rejected metric grew by %v, want 1", got)
	}
}

func TestInstrumentedExtractor_ProviderError(t *testing.T) {
	inner := &mockProvider{err: domain.ErrKeywordExtraction}
	bt, _ := newTestTracker(1000, 0, BudgetActionReject)
	x := NewInstrumentedExtractor(inner, "test-model", bt, zap.NewNop())

	_, err := x.Extract(context.Background(), "쿠폰")
	if !errors.Is(err, domain.ErrKeywordExtraction) {
		t.Fatalf("expected ErrKeywordExtraction, got %v", err)
	}
	if bt.Requests() != 0 {
		t.Error("failed request must not be recorded")
	}
}
