package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search, recommendation, geocoding, training and keyword extraction metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotdex",
			Name:      "search_requests_total",
			Help:      "Total number of search calls by outcome",
		},
		[]string{"outcome"}, // "match" / "no_match" / "invalid_reference"
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "slotdex",
			Name:      "search_candidates",
			Help:      "Number of documents scored per search call",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	RecommendationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotdex",
			Name:      "recommendations_total",
			Help:      "Total number of recommended slots emitted",
		},
	)

	GeocodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotdex",
			Name:      "geocode_requests_total",
			Help:      "Total number of geocoding provider requests",
		},
		[]string{"status"}, // "success" / "not_found" / "error"
	)

	GeocodeRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "slotdex",
			Name:      "geocode_request_duration_seconds",
			Help:      "Geocoding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	GeocodeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotdex",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	TrainingStepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotdex",
			Name:      "training_steps_total",
			Help:      "Total number of optimizer steps applied",
		},
	)

	TrainingLoss = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "slotdex",
			Name:      "training_loss",
			Help:      "Weighted MSE of the latest mini-batch",
		},
	)

	KeywordRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotdex",
			Name:      "keyword_requests_total",
			Help:      "Total number of keyword extraction requests",
		},
		[]string{"status"}, // "success" / "error" / "rejected"
	)

	KeywordTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotdex",
			Name:      "keyword_tokens_total",
			Help:      "Total provider tokens consumed by keyword extraction",
		},
	)

	KeywordBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "slotdex",
			Name:      "keyword_budget_tokens_remaining",
			Help:      "Remaining keyword extraction token budget (-1 = unlimited)",
		},
		[]string{"period"}, // "daily" / "monthly"
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers the engine metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchCandidates)
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeRequestDuration)
	prometheus.MustRegister(GeocodeCacheTotal)
	prometheus.MustRegister(TrainingStepsTotal)
	prometheus.MustRegister(TrainingLoss)
	prometheus.MustRegister(KeywordRequestsTotal)
	prometheus.MustRegister(KeywordTokensTotal)
	prometheus.MustRegister(KeywordBudgetTokensRemaining)
	engineMetricsRegistered = true
}
