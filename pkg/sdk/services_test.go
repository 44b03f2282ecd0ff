package slotdex

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
	"github.com/kailas-cloud/slotdex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/slotdex/internal/usecase/health"
)

func TestClient_Search(t *testing.T) {
	var gotGroups event.Groups
	mock := &mockSearchUC{
		searchFn: func(_ context.Context, groups event.Groups, raw []string) result.Set {
			gotGroups = groups
			if len(raw) != 1 || raw[0] != "쿠폰" {
				t.Errorf("tokens = %v", raw)
			}
			return result.Set{Results: []result.Result{
				result.New(event.Event{"id": "c1"}, 0.8, []result.Step{{Token: "쿠폰", Score: 0.8}}),
			}}
		},
	}

	c := testClient(mock, nil, nil)
	res, err := c.Search(context.Background(), Events{"쿠폰": {{"id": "c1"}}, "??": {{"id": "x"}}}, []string{"쿠폰"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) != 1 || res.Results[0].Score != 0.8 || res.Results[0].Trail[0].Token != "쿠폰" {
		t.Errorf("results = %+v", res.Results)
	}
	if len(gotGroups[event.Coupon]) != 1 || len(gotGroups[event.Unknown]) != 1 {
		t.Errorf("groups not normalized: %v", gotGroups)
	}
}

func TestClient_Search_NoTokens(t *testing.T) {
	c := testClient(&mockSearchUC{}, nil, nil)
	if _, err := c.Search(context.Background(), nil, nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestClient_SearchPhrase(t *testing.T) {
	mock := &mockSearchUC{
		phraseFn: func(_ context.Context, _ event.Groups, phrase string) result.Set {
			if phrase != "부산 가는 기차" {
				t.Errorf("phrase = %q", phrase)
			}
			return result.Set{Results: []result.Result{}, Reason: result.ReasonNoMatch}
		},
	}

	c := testClient(mock, nil, nil)
	res, err := c.SearchPhrase(context.Background(), nil, "부산 가는 기차")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != "no_match" || len(res.Results) != 0 {
		t.Errorf("res = %+v", res)
	}

	if _, err := c.SearchPhrase(context.Background(), nil, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty phrase err = %v", err)
	}
}

func TestClient_Recommend(t *testing.T) {
	mock := &mockInferUC{
		inferFn: func(_ context.Context, _ event.Groups, days int) []schedule.Item {
			if days != 7 {
				t.Errorf("days = %d", days)
			}
			return []schedule.Item{
				{IsRecommendation: true, ID: "c1", Date: "2025-02-16", Time: "10:30", Item: "라떼"},
				{ID: "t1", Date: "2025-02-14", Time: "09:00", Description: "서울-부산"},
			}
		},
	}

	c := testClient(nil, mock, nil)
	plan, err := c.Recommend(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Items) != 2 || plan.Items[0].Title != "라떼" || plan.Items[1].Description != "서울-부산" {
		t.Errorf("items = %+v", plan.Items)
	}
	if len(plan.Days) != 2 || plan.Days[0].Date != "2025-02-14" || plan.Days[0].Weekday != "금요일" {
		t.Errorf("days = %+v", plan.Days)
	}
	if len(plan.Days[1].Recommended) != 1 || len(plan.Days[1].Fixed) != 0 {
		t.Errorf("day 2 = %+v", plan.Days[1])
	}
}

func TestClient_Recommend_InvalidDays(t *testing.T) {
	c := testClient(nil, &mockInferUC{}, nil)
	for _, days := range []int{0, -1, 366} {
		if _, err := c.Recommend(context.Background(), nil, days); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("days=%d: err = %v", days, err)
		}
	}
}

func TestClient_Feedback(t *testing.T) {
	tr := &mockTrainer{}
	c := testClient(nil, nil, tr)

	applied, err := c.Feedback(context.Background(), Event{"title": "라떼"}, Target{1, 0.5, 0.25, 0})
	if err != nil || applied {
		t.Fatalf("first = %v, %v", applied, err)
	}
	applied, err = c.Feedback(context.Background(), Event{"title": "라떼"}, Target{1, 0.5, 0.25, 0})
	if err != nil || !applied {
		t.Fatalf("second = %v, %v", applied, err)
	}
	if tr.target != (schedule.Criteria{1, 0.5, 0.25, 0}) || c.Pending() != 2 {
		t.Errorf("target = %v, pending = %d", tr.target, c.Pending())
	}
}

func TestClient_Feedback_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		event  Event
		target Target
	}{
		{"empty event", Event{}, Target{}},
		{"above one", Event{"title": "x"}, Target{1.5, 0, 0, 0}},
		{"negative", Event{"title": "x"}, Target{0, 0, -0.1, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := &mockTrainer{}
			c := testClient(nil, nil, tr)
			if _, err := c.Feedback(context.Background(), tc.event, tc.target); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
			if tr.samples != 0 {
				t.Error("invalid feedback reached the trainer")
			}
		})
	}
}

func TestClient_Checkpoint(t *testing.T) {
	tr := &mockTrainer{}
	c := testClient(nil, nil, tr)
	if err := c.Checkpoint(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("without path: %v", err)
	}

	c.modelPath = "models/m.json"
	if err := c.Checkpoint(context.Background()); err != nil || tr.saved != "models/m.json" {
		t.Fatalf("err = %v, saved = %q", err, tr.saved)
	}

	tr.saveErr = errors.New("disk full")
	if err := c.Checkpoint(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"cache": healthuc.CheckError},
	}}}
	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["cache"] != "error" {
		t.Errorf("health = %+v", h)
	}
}
