package embedding

// Mode selects the vectorizer used by an Engine.
type Mode string

// Engine modes.
const (
	// Advanced averages deterministic MD5 token embeddings.
	Advanced Mode = "advanced"
	// CharSum buckets code points; legacy, cheap, order-sensitive.
	CharSum Mode = "char_sum"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool { return m == Advanced || m == CharSum }

// Engine embeds text at a fixed dimension through a cache.
type Engine struct {
	dim   int
	mode  Mode
	cache *Cache
}

// NewEngine creates an engine. A nil cache disables memoization.
func NewEngine(dim int, mode Mode, cache *Cache) *Engine {
	if !mode.IsValid() {
		mode = Advanced
	}
	return &Engine{dim: dim, mode: mode, cache: cache}
}

// Dim returns the output dimension.
func (e *Engine) Dim() int { return e.dim }

// Mode returns the configured vectorizer.
func (e *Engine) Mode() Mode { return e.mode }

// Embed vectorizes text.
func (e *Engine) Embed(text string) []float32 {
	fn := TextEmbedding
	if e.mode == CharSum {
		fn = CharSumEmbedding
	}
	return e.cache.GetOrCompute(text, e.dim, fn)
}
