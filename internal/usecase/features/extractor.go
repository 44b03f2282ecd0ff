// Package features maps events to the fixed-length vectors consumed by the scheduling model.
package features

import (
	"context"
	"strings"
	"time"

	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/domain/embedding"
	"github.com/kailas-cloud/slotdex/internal/domain/event"
)

// Vector layout.
const (
	// Dim is the total feature vector length.
	Dim = 57
	// MovableDim is the prefix fed to the movable-event encoder; the rest goes to the fixed one.
	MovableDim = 28
	// TextDim is the embedding size of each text field.
	TextDim = 5
)

// Fields is the ordered field list the vector is built from.
var Fields = []string{
	event.FieldCategory, event.FieldBrand, event.FieldType, event.FieldTitle,
	event.FieldItem, event.FieldCode, event.FieldLocation, event.FieldFromLocation,
	event.FieldToLocation, event.FieldDetails, event.FieldDate, event.FieldTime,
}

// missingLocation is the analyzer's placeholder for an absent place.
const missingLocation = "N/A"

// Extractor builds feature vectors. Text embeddings are memoized in a shared cache and
// locations go through the resolver, which owns its own cache.
type Extractor struct {
	resolver domain.LocationResolver
	cache    *embedding.Cache
}

// NewExtractor creates an extractor. A nil resolver maps every location to the zero point.
func NewExtractor(resolver domain.LocationResolver, cache *embedding.Cache) *Extractor {
	if cache == nil {
		cache = embedding.NewCache()
	}
	return &Extractor{resolver: resolver, cache: cache}
}

// Extract returns the Dim-length feature vector of e.
func (x *Extractor) Extract(ctx context.Context, e event.Event) []float64 {
	out := make([]float64, 0, Dim)
	for _, key := range Fields {
		val := e.String(key)
		switch key {
		case event.FieldDate:
			out = append(out, dateComponents(val)...)
		case event.FieldTime:
			out = append(out, clockComponents(val)...)
		case event.FieldLocation, event.FieldFromLocation, event.FieldToLocation:
			p := x.location(ctx, val).Normalized()
			out = append(out, p[:]...)
		default:
			out = append(out, x.text(val)...)
		}
	}
	for len(out) < Dim {
		out = append(out, 0)
	}
	return out
}

func (x *Extractor) text(val string) []float64 {
	v := x.cache.GetOrCompute(strings.ToLower(val), TextDim, embedding.TextEmbedding)
	return embedding.ToFloat64(v)
}

func (x *Extractor) location(ctx context.Context, name string) domain.Point {
	name = strings.TrimSpace(name)
	if name == "" || name == missingLocation || x.resolver == nil {
		return domain.Point{}
	}
	return x.resolver.Resolve(ctx, name)
}

// dateComponents returns (year/3000, month/12, day/31), zeros when unparseable.
func dateComponents(s string) []float64 {
	d, err := time.Parse(event.DateLayout, s)
	if err != nil {
		return []float64{0, 0, 0}
	}
	return []float64{float64(d.Year()) / 3000, float64(d.Month()) / 12, float64(d.Day()) / 31}
}

// clockComponents returns (hour/24, minute/60), zeros when absent or unparseable.
func clockComponents(s string) []float64 {
	m, ok := event.ParseClock(s)
	if !ok {
		return []float64{0, 0}
	}
	return []float64{float64(m/60) / 24, float64(m%60) / 60}
}
