// Package usage reports keyword provider consumption.
package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/slotdex/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil when keyword extraction is disabled.
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now().UTC()
	r := domusage.Report{Period: period}

	switch period {
	case domusage.PeriodDay:
		r.Start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		r.End = r.Start.AddDate(0, 0, 1)
		if s.br != nil {
			r.Tokens = s.br.DailyUsed()
			r.Budget = domusage.Budget{Limit: s.br.DailyLimit(), Remaining: s.br.RemainingDaily()}
		}
	case domusage.PeriodMonth:
		r.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		r.End = r.Start.AddDate(0, 1, 0)
		if s.br != nil {
			r.Tokens = s.br.MonthlyUsed()
			r.Budget = domusage.Budget{Limit: s.br.MonthlyLimit(), Remaining: s.br.RemainingMonthly()}
		}
	default:
		if s.br != nil {
			r.Tokens = s.br.MonthlyUsed()
			r.Budget = domusage.Budget{Limit: s.br.MonthlyLimit(), Remaining: s.br.RemainingMonthly()}
		}
	}
	if s.br != nil {
		// requests are counted since process start only
		r.Requests = s.br.Requests()
	}
	r.Budget.ResetsAt = r.End
	return r
}
