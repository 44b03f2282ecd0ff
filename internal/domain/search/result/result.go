package result

import "github.com/kailas-cloud/slotdex/internal/domain/event"

// Step is one entry of the scoring trail kept for debug output.
type Step struct {
	Token        string  `json:"token,omitempty"`
	Kind         string  `json:"token_type,omitempty"`
	MatchedField string  `json:"matched_field,omitempty"`
	Score        float64 `json:"score"`
	Reason       string  `json:"reason,omitempty"`
}

// Result is a single qualifying document.
type Result struct {
	document event.Event
	score    float64
	trail    []Step
}

// New creates a search result. The document is copied.
func New(doc event.Event, score float64, trail []Step) Result {
	return Result{document: doc.Clone(), score: score, trail: trail}
}

// Document returns the matched document.
func (r *Result) Document() event.Event { return r.document }

// Score returns the mean per-token score in [0, 1].
func (r *Result) Score() float64 { return r.score }

// Trail returns the scoring trail.
func (r *Result) Trail() []Step { return r.trail }

// Render returns a copy of the document, with _score and _debug attached when debug is set.
func (r *Result) Render(debug bool) event.Event {
	out := r.document.Clone()
	if debug {
		out["_score"] = r.score
		out["_debug"] = r.trail
	}
	return out
}

// Reason explains an empty result set.
type Reason string

// Reasons.
const (
	ReasonNone Reason = ""
	// ReasonNoMatch means the query was valid but nothing cleared the threshold.
	ReasonNoMatch Reason = "no_match"
	// ReasonInvalidReference means a temporal directive carried an unparseable date.
	ReasonInvalidReference Reason = "invalid_reference"
)

// Set is the outcome of one search call.
type Set struct {
	Results   []Result
	Reason    Reason
	Threshold float64
}
