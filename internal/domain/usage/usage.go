// Package usage describes keyword provider consumption over a reporting period.
package usage

import "time"

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod validates a period name. Empty selects PeriodMonth.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case "", PeriodMonth:
		return PeriodMonth, true
	case PeriodDay, PeriodTotal:
		return Period(s), true
	}
	return "", false
}

// Budget is a snapshot of the token budget for a period.
// A zero Limit means unlimited.
type Budget struct {
	Limit     int64
	Remaining int64
	ResetsAt  time.Time // zero for PeriodTotal
}

// Exhausted reports whether a limited budget is spent.
func (b Budget) Exhausted() bool { return b.Limit > 0 && b.Remaining <= 0 }

// Report is a keyword provider usage report.
type Report struct {
	Period   Period
	Start    time.Time
	End      time.Time
	Requests int64
	Tokens   int64
	Budget   Budget
}
