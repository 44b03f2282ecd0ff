package search

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/kailas-cloud/slotdex/internal/domain/embedding"
	"github.com/kailas-cloud/slotdex/internal/domain/event"
)

// candidate is a document shortlisted for fine-grained scoring.
type candidate struct {
	doc        event.Event
	similarity float64
}

// retrieve returns the topK documents by cosine similarity between the query text and
// each document's concatenated string fields. The scan is exact; ties keep input order.
func retrieve(eng *embedding.Engine, queryText string, docs []event.Event, topK int) []candidate {
	if topK <= 0 || topK > len(docs) {
		topK = len(docs)
	}
	q := embedding.ToFloat64(embedding.Normalize(eng.Embed(queryText)))

	out := make([]candidate, len(docs))
	for i, d := range docs {
		v := embedding.ToFloat64(embedding.Normalize(eng.Embed(d.Text())))
		// Both sides are unit (or zero) vectors, so the dot product is the cosine.
		out[i] = candidate{doc: d, similarity: floats.Dot(q, v)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].similarity > out[j].similarity })
	return out[:topK]
}

// scanAll wraps every document as a candidate.
func scanAll(docs []event.Event) []candidate {
	out := make([]candidate, len(docs))
	for i, d := range docs {
		out[i] = candidate{doc: d, similarity: 1}
	}
	return out
}
