package event

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Field names understood by the core. Upstream extractors may add others.
const (
	FieldID           = "id"
	FieldCategory     = "category"
	FieldBrand        = "brand"
	FieldType         = "type"
	FieldTitle        = "title"
	FieldItem         = "item"
	FieldCode         = "code"
	FieldDate         = "date"
	FieldTime         = "time"
	FieldLocation     = "location"
	FieldFromLocation = "from_location"
	FieldToLocation   = "to_location"
	FieldDetails      = "details"
	FieldDescription  = "description"
)

// Layouts accepted for date and time fields.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	ClockLayout    = "15:04"
)

// Event is a loosely-structured record produced by an upstream analyzer.
// The core only reads it; use Clone before attaching anything.
type Event map[string]any

// String returns the field rendered as a string. Missing and null fields yield "".
func (e Event) String(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ID returns the opaque identifier, or "" when absent.
func (e Event) ID() string { return e.String(FieldID) }

// IDOrCode returns the identifier, falling back to the code field.
func (e Event) IDOrCode() string {
	if _, ok := e[FieldID]; ok {
		return e.ID()
	}
	return e.String(FieldCode)
}

// Title returns the title, falling back to the item field.
func (e Event) Title() string {
	if _, ok := e[FieldTitle]; ok {
		return e.String(FieldTitle)
	}
	return e.String(FieldItem)
}

// Clock returns the raw "HH:MM" time field.
func (e Event) Clock() string { return e.String(FieldTime) }

// Date parses the date field. On failure it returns fallback and false.
func (e Event) Date(fallback time.Time) (time.Time, bool) {
	d, err := time.ParseInLocation(DateLayout, e.String(FieldDate), fallback.Location())
	if err != nil {
		return fallback, false
	}
	return d, true
}

// DateTime parses the date field as a date or a date with time of day.
func (e Event) DateTime(loc *time.Location) (time.Time, bool) {
	return ParseDateTime(e.String(FieldDate), loc)
}

// StringFields returns the string-valued fields sorted by key.
func (e Event) StringFields() []KV {
	out := make([]KV, 0, len(e))
	for k, v := range e {
		if s, ok := v.(string); ok {
			out = append(out, KV{Key: k, Value: s})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Text joins all string-valued fields with spaces.
func (e Event) Text() string {
	fields := e.StringFields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Value
	}
	return strings.Join(parts, " ")
}

// Clone returns a shallow copy.
func (e Event) Clone() Event {
	out := make(Event, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// KV is a single string field.
type KV struct {
	Key   string
	Value string
}

// ParseDateTime parses "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS".
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	layout := DateLayout
	if strings.Contains(s, " ") {
		layout = DateTimeLayout
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, bool) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
