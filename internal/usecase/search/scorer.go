package search

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/search/query"
	"github.com/kailas-cloud/slotdex/internal/domain/search/result"
)

// confusableRatio is the ratio two same-length words with half their runes in common
// produce (e.g. 쿠팡 vs 쿠폰); such pairs are treated as a full match.
const (
	confusableRatio = 0.5
	ratioEpsilon    = 1e-6
)

// thresholdAdjust raises the acceptance bar for longer queries.
var thresholdAdjust = map[int]float64{1: 0.0, 2: 0.05, 3: 0.1}

const (
	defaultAdjust = 0.15
	minThreshold  = 0.5
	maxThreshold  = 0.75
)

// Threshold returns the acceptance threshold for a query of tokenCount tokens.
func Threshold(base float64, tokenCount int) float64 {
	adj, ok := thresholdAdjust[tokenCount]
	if !ok {
		adj = defaultAdjust
	}
	return math.Max(math.Min(base+adj, maxThreshold), minThreshold)
}

// scorer computes per-document match scores.
type scorer struct {
	matchThreshold float64
	loc            *time.Location
}

// score returns the mean per-token score of doc, or 0 when any token falls below the
// match threshold or the temporal directive rejects the document.
func (s scorer) score(doc event.Event, q query.Query) (float64, []result.Step) {
	if q.HasDirective() {
		if step, ok := s.temporalFilter(doc, q); !ok {
			return 0, []result.Step{step}
		}
	}

	tokens := q.Tokens()
	if len(tokens) == 0 {
		return 0, []result.Step{{Reason: "no content tokens"}}
	}

	trail := make([]result.Step, 0, len(tokens))
	var total float64
	for _, tok := range tokens {
		var sc float64
		var field string
		if tok.Kind.IsTemporal() {
			sc, field = temporalMatch(doc, tok.Text)
		} else {
			sc, field = tokenMatch(doc, tok.Text)
		}
		trail = append(trail, result.Step{
			Token: tok.Text, Kind: string(tok.Kind), MatchedField: field, Score: sc,
		})
		if sc < s.matchThreshold {
			trail = append(trail, result.Step{
				Token: tok.Text, Kind: string(tok.Kind), Score: sc,
				Reason: fmt.Sprintf("score below threshold (%g)", s.matchThreshold),
			})
			return 0, trail
		}
		total += sc
	}
	return total / float64(len(tokens)), trail
}

// temporalFilter enforces the directive: strictly before or strictly after the reference.
func (s scorer) temporalFilter(doc event.Event, q query.Query) (result.Step, bool) {
	ref, ok := q.Reference()
	if !ok {
		return result.Step{Reason: "reference datetime parse failed"}, false
	}
	docTime, ok := doc.DateTime(s.loc)
	if !ok {
		return result.Step{Reason: "datetime parse failed"}, false
	}
	switch q.Directive() {
	case query.After:
		if !docTime.After(ref) {
			return result.Step{Reason: "temporal filter 이후: not after reference"}, false
		}
	case query.Before:
		if !docTime.Before(ref) {
			return result.Step{Reason: "temporal filter 이전: not before reference"}, false
		}
	}
	return result.Step{}, true
}

// tokenMatch scores token against every string field: 1.0 on a substring hit,
// otherwise the best Ratcliff/Obershelp ratio against any single word.
func tokenMatch(doc event.Event, token string) (float64, string) {
	fields := doc.StringFields()
	for _, f := range fields {
		if strings.Contains(f.Value, token) {
			return 1, f.Key + " -> " + f.Value
		}
	}

	best, matched := 0.0, ""
	tokenLen := utf8.RuneCountInString(token)
	for _, f := range fields {
		for _, word := range strings.Fields(f.Value) {
			r := Ratio(token, word)
			if tokenLen == utf8.RuneCountInString(word) && math.Abs(r-confusableRatio) < ratioEpsilon {
				r = 1
			}
			if r > best {
				best = r
				matched = fmt.Sprintf("%s -> %s (via fuzzy match '%s')", f.Key, f.Value, word)
			}
		}
	}
	return best, matched
}

// temporalMatch scores 1.0 when the digits literally appear in the date field.
func temporalMatch(doc event.Event, digits string) (float64, string) {
	date, ok := doc[event.FieldDate].(string)
	if !ok || !strings.Contains(date, digits) {
		return 0, ""
	}
	return 1, "date -> " + date
}

// Ratio returns the Ratcliff/Obershelp similarity of a and b over runes.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
