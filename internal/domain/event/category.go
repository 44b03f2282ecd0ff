package event

import "sort"

// Category is the closed set of event groups produced by the analyzer.
type Category string

// Known categories.
const (
	Coupon        Category = "쿠폰"
	Transport     Category = "교통"
	Entertainment Category = "엔터테인먼트"
	Appointment   Category = "약속"
	Unknown       Category = "불명"
	Other         Category = "기타"
)

var allCategories = []Category{Coupon, Transport, Entertainment, Appointment, Unknown, Other}

// All returns the known categories in canonical order.
func All() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory maps a raw group name onto the enumeration.
// Unrecognized names fall into Unknown.
func ParseCategory(s string) Category {
	for _, c := range allCategories {
		if string(c) == s {
			return c
		}
	}
	return Unknown
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, k := range allCategories {
		if k == c {
			return true
		}
	}
	return false
}

// IsMovable reports whether events of this category can be scheduled freely.
func (c Category) IsMovable() bool { return c == Coupon }

// IsFixed reports whether events of this category pin a date/time the scheduler must respect.
func (c Category) IsFixed() bool {
	return c == Transport || c == Entertainment || c == Appointment
}

func (c Category) rank() int {
	for i, k := range allCategories {
		if k == c {
			return i
		}
	}
	return len(allCategories)
}

// Groups is the analyzer output: events keyed by category.
type Groups map[Category][]Event

// Categories returns the group keys in canonical order, unknown keys last and sorted.
func (g Groups) Categories() []Category {
	keys := make([]Category, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := keys[i].rank(), keys[j].rank()
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Flatten returns every event, in category order then input order.
func (g Groups) Flatten() []Event {
	var out []Event
	for _, c := range g.Categories() {
		out = append(out, g[c]...)
	}
	return out
}

// Normalize folds raw group names onto the enumeration, merging unrecognized ones into Unknown.
func Normalize(raw map[string][]Event) Groups {
	g := make(Groups, len(raw))
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := ParseCategory(name)
		g[c] = append(g[c], raw[name]...)
	}
	return g
}
