package domain

import "context"

// KeywordResult is one keyword extraction outcome with the provider's token usage.
type KeywordResult struct {
	Tokens       []string
	PromptTokens int
	TotalTokens  int
}

// KeywordProvider turns a free-text phrase into search keywords.
type KeywordProvider interface {
	Keywords(ctx context.Context, phrase string) (KeywordResult, error)
}
