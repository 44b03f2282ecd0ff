// Package schedule holds the records produced by the slot recommender.
package schedule

import (
	"sort"
	"time"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
)

// NumCriteria is the number of quality scores predicted per candidate.
const NumCriteria = 4

// Criterion indexes into Criteria.
type Criterion int

// Criteria order, shared by model heads, training targets and loss weights.
const (
	DateFit Criterion = iota
	TimeFit
	ScheduleFit
	WeekdayFit
)

// String returns the criterion label used in logs and JSON.
func (c Criterion) String() string {
	switch c {
	case DateFit:
		return "date"
	case TimeFit:
		return "time"
	case ScheduleFit:
		return "schedule"
	case WeekdayFit:
		return "weekday"
	default:
		return "unknown"
	}
}

// Criteria is one score per criterion.
type Criteria [NumCriteria]float64

// Mean returns the average score.
func (c Criteria) Mean() float64 {
	var s float64
	for _, v := range c {
		s += v
	}
	return s / NumCriteria
}

// LossWeights emphasize date and time fit over schedule and weekday fit.
var LossWeights = Criteria{0.4, 0.3, 0.2, 0.1}

// Slot grid, in minutes since midnight.
const (
	GridStart      = 9 * 60
	GridEnd        = 21 * 60
	GridStep       = 15
	ConflictMargin = 120
)

// Grid returns every candidate start time between GridStart and GridEnd inclusive.
func Grid() []int {
	out := make([]int, 0, (GridEnd-GridStart)/GridStep+1)
	for m := GridStart; m <= GridEnd; m += GridStep {
		out = append(out, m)
	}
	return out
}

// Slot is a recommended usage time for one movable event.
type Slot struct {
	EventID       string    `json:"id"`
	Date          time.Time `json:"-"`
	Time          string    `json:"time"`
	Title         string    `json:"coupon"`
	Brand         string    `json:"brand"`
	Type          string    `json:"coupon_type"`
	Score         float64   `json:"predicted_value"`
	Criteria      Criteria  `json:"predicted_criteria"`
	DaysRemaining int       `json:"days_remaining"`
	Features      []float64 `json:"features,omitempty"`
}

// DateString renders the slot date.
func (s Slot) DateString() string { return s.Date.Format(event.DateLayout) }

// Item is one record of the unified inference output.
type Item struct {
	IsRecommendation bool   `json:"is_recommendation"`
	ID               string `json:"id"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Item             string `json:"item"`
	Description      string `json:"description"`
}

// Day groups items sharing a date, for calendar-style rendering.
type Day struct {
	Date        string `json:"date"`
	Weekday     string `json:"weekday"`
	Fixed       []Item `json:"fixed"`
	Recommended []Item `json:"recommended"`
}

var koreanWeekdays = [...]string{"일요일", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일"}

// KoreanWeekday returns the Korean weekday name of d.
func KoreanWeekday(d time.Time) string { return koreanWeekdays[d.Weekday()] }

// GroupByDate buckets items per date in ascending order.
func GroupByDate(items []Item) []Day {
	byDate := make(map[string]*Day)
	for _, it := range items {
		d, ok := byDate[it.Date]
		if !ok {
			d = &Day{Date: it.Date}
			if t, err := time.Parse(event.DateLayout, it.Date); err == nil {
				d.Weekday = KoreanWeekday(t)
			}
			byDate[it.Date] = d
		}
		if it.IsRecommendation {
			d.Recommended = append(d.Recommended, it)
		} else {
			d.Fixed = append(d.Fixed, it)
		}
	}
	out := make([]Day, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
