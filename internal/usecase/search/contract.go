package search

import (
	"context"

	"github.com/kailas-cloud/slotdex/internal/domain/embedding"
)

// KeywordExtractor turns a free-text (possibly transcribed) phrase into query tokens.
type KeywordExtractor interface {
	Extract(ctx context.Context, phrase string) ([]string, error)
}

// Config tunes the engine.
type Config struct {
	VectorDim      int
	Mode           embedding.Mode
	BaseThreshold  float64
	MatchThreshold float64
	TopK           int
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		VectorDim:      embedding.DocumentDim,
		Mode:           embedding.Advanced,
		BaseThreshold:  0.6,
		MatchThreshold: 0.5,
		TopK:           50,
	}
}
