package slotdex

import (
	"context"
	"fmt"
)

// KeywordExtractor turns a free-text phrase into search tokens.
// Required for SearchPhrase; token search works without it.
type KeywordExtractor interface {
	Extract(ctx context.Context, phrase string) ([]string, error)
}

// keywordAdapter tags provider errors so callers can tell them from engine errors.
type keywordAdapter struct {
	inner KeywordExtractor
}

func (a *keywordAdapter) Extract(ctx context.Context, phrase string) ([]string, error) {
	tokens, err := a.inner.Extract(ctx, phrase)
	if err != nil {
		return nil, fmt.Errorf("keywords: %w", err)
	}
	return tokens, nil
}
