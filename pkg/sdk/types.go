package slotdex

import (
	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
)

// Event is one analyzer record: id, title, date, time, location and free-form fields.
type Event = map[string]any

// Events groups records by analyzer category name ("쿠폰", "교통", "엔터테인먼트", ...).
// Unknown names are searchable but never scheduled.
type Events = map[string][]Event

// SearchResult is one matched event.
type SearchResult struct {
	Event Event
	Score float64
	// Trail lists the per-token scores that produced Score.
	Trail []TrailStep
}

// TrailStep is the score contribution of one query token.
type TrailStep struct {
	Token string
	Score float64
}

// SearchResults is the outcome of one search call.
type SearchResults struct {
	Results []SearchResult
	// Reason explains an empty result: "no_match" or "invalid_reference".
	Reason string
}

// ScheduleItem is one recommended or fixed entry of a plan.
type ScheduleItem struct {
	Recommended bool
	ID          string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	Title       string // recommended coupon title
	Description string // fixed event description
}

// ScheduleDay groups the plan entries of one date.
type ScheduleDay struct {
	Date        string
	Weekday     string
	Fixed       []ScheduleItem
	Recommended []ScheduleItem
}

// Plan is the outcome of Recommend.
type Plan struct {
	Items []ScheduleItem
	Days  []ScheduleDay
}

// Target is a feedback label per criterion, each in [0, 1]:
// date fit, time fit, schedule fit, weekday fit.
type Target [4]float64

func toGroups(events Events) event.Groups {
	raw := make(map[string][]event.Event, len(events))
	for name, list := range events {
		converted := make([]event.Event, len(list))
		for i, e := range list {
			converted[i] = event.Event(e)
		}
		raw[name] = converted
	}
	return event.Normalize(raw)
}

func toScheduleItem(it schedule.Item) ScheduleItem {
	return ScheduleItem{
		Recommended: it.IsRecommendation,
		ID:          it.ID,
		Date:        it.Date,
		Time:        it.Time,
		Title:       it.Item,
		Description: it.Description,
	}
}

func toScheduleItems(items []schedule.Item) []ScheduleItem {
	out := make([]ScheduleItem, len(items))
	for i, it := range items {
		out[i] = toScheduleItem(it)
	}
	return out
}

func toPlan(items []schedule.Item) Plan {
	days := schedule.GroupByDate(items)
	p := Plan{Items: toScheduleItems(items), Days: make([]ScheduleDay, len(days))}
	for i, d := range days {
		p.Days[i] = ScheduleDay{
			Date:        d.Date,
			Weekday:     d.Weekday,
			Fixed:       toScheduleItems(d.Fixed),
			Recommended: toScheduleItems(d.Recommended),
		}
	}
	return p
}
