package slotdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	keywords KeywordExtractor

	nominatimURL string
	userAgent    string

	vectorDimensions int
	charSum          bool
	modelPath        string
	seed             uint64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis enables the shared cache for geocoding results.
// Without it every geocode result lives in process memory only.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeywordExtractor sets the free-text keyword provider used by SearchPhrase.
func WithKeywordExtractor(k KeywordExtractor) Option {
	return optionFunc(func(c *clientConfig) {
		c.keywords = k
	})
}

// WithNominatim resolves event locations through a Nominatim instance.
// An empty baseURL selects the public instance. Without this option
// location features stay at the origin.
func WithNominatim(baseURL, userAgent string) Option {
	return optionFunc(func(c *clientConfig) {
		c.nominatimURL = baseURL
		c.userAgent = userAgent
		if c.userAgent == "" {
			c.userAgent = "slotdex-sdk"
		}
	})
}

// WithVectorDimensions sets the search vector dimension.
// Defaults to 12.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithCharSum selects the legacy char-sum full scan instead of embedding retrieval.
func WithCharSum() Option {
	return optionFunc(func(c *clientConfig) {
		c.charSum = true
	})
}

// WithModelPath sets the model checkpoint read by Recommend and written by Checkpoint.
func WithModelPath(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelPath = path
	})
}

// WithSeed makes weight initialization and slot sampling reproducible.
func WithSeed(seed uint64) Option {
	return optionFunc(func(c *clientConfig) {
		c.seed = seed
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
