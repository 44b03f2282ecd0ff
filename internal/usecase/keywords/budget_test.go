package keywords

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/domain"
)

var budgetNow = time.Date(2025, 2, 13, 23, 30, 0, 0, time.UTC)

func newTestTracker(daily, monthly int64, action BudgetAction) (*BudgetTracker, *time.Time) {
	now := budgetNow
	bt := NewBudgetTracker("keywords", daily, monthly, action, zap.NewNop()).
		WithClock(func() time.Time { return now })
	return bt, &now
}

// --- Mock BudgetStore ---

type mockBudgetStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockBudgetStore() *mockBudgetStore {
	return &mockBudgetStore{data: make(map[string]int64)}
}

func (m *mockBudgetStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockBudgetStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

// --- Limits ---

func TestBudgetTracker_Check(t *testing.T) {
	tests := []struct {
		name     string
		daily    int64
		monthly  int64
		action   BudgetAction
		recorded int64
		wantErr  bool
	}{
		{"daily reject", 100, 0, BudgetActionReject, 100, true},
		{"daily warn", 100, 0, BudgetActionWarn, 200, false},
		{"monthly reject", 0, 500, BudgetActionReject, 500, true},
		{"unlimited", 0, 0, BudgetActionReject, 999999999, false},
		{"below limit", 1000, 10000, BudgetActionReject, 500, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bt, _ := newTestTracker(tc.daily, tc.monthly, tc.action)
			bt.Record(tc.recorded)

			err := bt.Check(context.Background())
			if tc.wantErr && !errors.Is(err, domain.ErrKeywordQuotaExceeded) {
				t.Fatalf("expected ErrKeywordQuotaExceeded, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestBudgetTracker_Remaining(t *testing.T) {
	bt, _ := newTestTracker(1000, 10000, BudgetActionWarn)
	bt.Record(300)

	if got := bt.RemainingDaily(); got != 700 {
		t.Errorf("expected daily remaining 700, got %d", got)
	}
	if got := bt.RemainingMonthly(); got != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", got)
	}

	bt.Record(5000)
	if got := bt.RemainingDaily(); got != 0 {
		t.Errorf("overspent daily remaining must clamp to 0, got %d", got)
	}
	if bt.Requests() != 2 {
		t.Errorf("expected 2 requests, got %d", bt.Requests())
	}
}

func TestBudgetTracker_RemainingUnlimited(t *testing.T) {
	bt, _ := newTestTracker(0, 0, BudgetActionWarn)

	if got := bt.RemainingDaily(); got != -1 {
		t.Errorf("expected -1 for unlimited daily, got %d", got)
	}
	if got := bt.RemainingMonthly(); got != -1 {
		t.Errorf("expected -1 for unlimited monthly, got %d", got)
	}
}

func TestBudgetTracker_Rollover(t *testing.T) {
	bt, now := newTestTracker(100, 1000, BudgetActionReject)
	bt.Record(100)
	if err := bt.Check(context.Background()); err == nil {
		t.Fatal("expected daily budget to be exhausted")
	}

	*now = budgetNow.Add(time.Hour) // 2025-02-14 00:30
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("daily budget must reset on a new day: %v", err)
	}
	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 100 {
		t.Errorf("after day rollover: daily=%d monthly=%d", bt.DailyUsed(), bt.MonthlyUsed())
	}

	*now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if bt.MonthlyUsed() != 0 {
		t.Errorf("monthly budget must reset on a new month, got %d", bt.MonthlyUsed())
	}
}

// --- Persistence ---

func TestBudgetTracker_WithStore_LoadsValues(t *testing.T) {
	store := newMockBudgetStore()
	store.data["slotdex:budget:keywords:daily:2025-02-13"] = 300
	store.data["slotdex:budget:keywords:monthly:2025-02"] = 5000

	bt, _ := newTestTracker(1000, 10000, BudgetActionReject)
	bt.WithStore(context.Background(), store)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_PersistsToStore(t *testing.T) {
	store := newMockBudgetStore()
	bt, _ := newTestTracker(10000, 100000, BudgetActionWarn)
	bt.WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)
	bt.Record(0)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if got := store.data["slotdex:budget:keywords:daily:2025-02-13"]; got != 300 {
		t.Errorf("expected store daily=300, got %d", got)
	}
	if got := store.data["slotdex:budget:keywords:monthly:2025-02"]; got != 300 {
		t.Errorf("expected store monthly=300, got %d", got)
	}
}

func TestBudgetTracker_WithStore_LoadError(t *testing.T) {
	store := newMockBudgetStore()
	store.getErr = errors.New("connection refused")

	bt, _ := newTestTracker(1000, 10000, BudgetActionReject)
	bt.WithStore(context.Background(), store)

	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected zero counters on load error, got %d/%d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_StoreWriteError(t *testing.T) {
	store := newMockBudgetStore()
	bt, _ := newTestTracker(100, 0, BudgetActionReject)
	bt.WithStore(context.Background(), store)

	store.mu.Lock()
	store.setErr = errors.New("write timeout")
	store.mu.Unlock()

	bt.Record(100)

	if bt.DailyUsed() != 100 {
		t.Errorf("expected daily_used=100 even with store error, got %d", bt.DailyUsed())
	}
	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrKeywordQuotaExceeded) {
		t.Fatalf("Check must use in-memory counters, got %v", err)
	}
}
