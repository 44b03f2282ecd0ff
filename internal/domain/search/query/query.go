// Package query turns a raw search phrase into an optional temporal directive
// and a list of typed tokens.
package query

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
)

// Directive constrains results relative to a reference datetime.
type Directive string

// Directive values.
const (
	NoDirective Directive = ""
	Before      Directive = "이전"
	After       Directive = "이후"
)

// Kind classifies a normalized token.
type Kind string

// Token kinds.
const (
	Normal   Kind = "normal"
	Month    Kind = "month"
	Day      Kind = "day"
	Time     Kind = "time"
	Location Kind = "location"
)

// IsTemporal reports whether the kind is matched against the date field.
func (k Kind) IsTemporal() bool { return k == Month || k == Day || k == Time }

// Token is a normalized query term.
type Token struct {
	Text string `json:"token"`
	Kind Kind   `json:"token_type"`
}

// Query is a parsed search request. Built per call, never persisted.
type Query struct {
	directive Directive
	reference time.Time
	refValid  bool
	residual  []string
	tokens    []Token
}

// Directive returns the temporal directive, NoDirective when absent.
func (q Query) Directive() Directive { return q.directive }

// Reference returns the directive's reference datetime and whether it parsed.
func (q Query) Reference() (time.Time, bool) { return q.reference, q.refValid }

// HasDirective reports whether a temporal filter was requested.
func (q Query) HasDirective() bool { return q.directive != NoDirective }

// InvalidReference reports a directive whose reference failed to parse.
func (q Query) InvalidReference() bool { return q.HasDirective() && !q.refValid }

// Residual returns the raw tokens that followed the directive.
func (q Query) Residual() []string { return q.residual }

// Text returns the residual tokens joined with spaces.
func (q Query) Text() string { return strings.Join(q.residual, " ") }

// Tokens returns the typed tokens.
func (q Query) Tokens() []Token { return q.tokens }

// Parse splits off a leading directive and classifies the remaining tokens.
// Reference datetimes are interpreted in loc (time.Local when nil).
func Parse(raw []string, loc *time.Location) Query {
	var q Query
	rest := raw
	if len(raw) > 0 && (raw[0] == string(Before) || raw[0] == string(After)) {
		q.directive = Directive(raw[0])
		if len(raw) > 1 {
			q.reference, q.refValid = event.ParseDateTime(raw[1], loc)
			rest = raw[2:]
		} else {
			rest = nil
		}
	}
	q.residual = append([]string(nil), rest...)
	for _, t := range StripParticles(rest) {
		q.tokens = append(q.tokens, Classify(t))
	}
	return q
}

// particles are trailing postpositions removed before matching. Order matters:
// longer forms come before the shorter ones they end with.
var particles = []string{
	"으로부터", "에서", "에게", "께", "까지", "부터", "으로",
	"은", "는", "이", "가", "을", "를", "에", "도", "만", "와", "과", "고", "나", "랑",
}

// StripParticles removes trailing particles from each term until none applies
// (a term is never stripped to empty), then re-splits on whitespace.
func StripParticles(terms []string) []string {
	var out []string
	for _, t := range terms {
		for changed := true; changed; {
			changed = false
			for _, p := range particles {
				if strings.HasSuffix(t, p) && utf8.RuneCountInString(t) > utf8.RuneCountInString(p) {
					t = strings.TrimSuffix(t, p)
					changed = true
					break
				}
			}
		}
		out = append(out, strings.Fields(t)...)
	}
	return out
}

var locationParticles = []string{"에서", "으로", "까지", "부터"}

// Classify assigns a kind to a normalized token.
//
// Location particles (optionally followed by 의) win first. Trailing 월/일 with digits
// become month/day tokens, trailing 시/분/초 with digits become time tokens; both keep
// only the digits.
func Classify(tok string) Token {
	base := strings.TrimSuffix(tok, "의")
	for _, p := range locationParticles {
		if strings.HasSuffix(base, p) {
			if stem := strings.TrimSuffix(base, p); stem != "" {
				return Token{Text: stem, Kind: Location}
			}
		}
	}

	digits := onlyDigits(tok)
	if digits == "" {
		return Token{Text: tok, Kind: Normal}
	}
	switch {
	case strings.HasSuffix(tok, "월"):
		return Token{Text: digits, Kind: Month}
	case strings.HasSuffix(tok, "일"):
		return Token{Text: digits, Kind: Day}
	case strings.HasSuffix(tok, "시"), strings.HasSuffix(tok, "분"), strings.HasSuffix(tok, "초"):
		return Token{Text: digits, Kind: Time}
	}
	return Token{Text: tok, Kind: Normal}
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
