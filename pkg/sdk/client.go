package slotdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/db"
	dbRedis "github.com/kailas-cloud/slotdex/internal/db/redis"
	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/domain/embedding"
	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
	"github.com/kailas-cloud/slotdex/internal/domain/search/result"
	"github.com/kailas-cloud/slotdex/internal/repository/geocache"
	"github.com/kailas-cloud/slotdex/internal/transport/nominatim"
	"github.com/kailas-cloud/slotdex/internal/usecase/features"
	healthuc "github.com/kailas-cloud/slotdex/internal/usecase/health"
	"github.com/kailas-cloud/slotdex/internal/usecase/inference"
	"github.com/kailas-cloud/slotdex/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/slotdex/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	maxDays                 = 365
)

// Internal interfaces, swapped for fakes in tests.
type searchUseCase interface {
	Search(ctx context.Context, groups event.Groups, raw []string) result.Set
	SearchPhrase(ctx context.Context, groups event.Groups, phrase string) result.Set
}

type inferenceUseCase interface {
	Infer(ctx context.Context, groups event.Groups, days int) []schedule.Item
}

type featureExtractor interface {
	Extract(ctx context.Context, e event.Event) []float64
}

type trainerUseCase interface {
	Train(features []float64, target schedule.Criteria) bool
	MemoryLen() int
	Save(path string) error
}

// Client is the slotdex SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	inferSvc  inferenceUseCase
	features  featureExtractor
	trainer   trainerUseCase
	healthSvc healthUseCase
	modelPath string
	obs       *observer
}

// New creates a Client. With WithRedis the provided context is used for the
// initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: embedding.DocumentDim,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("slotdex: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("slotdex: cache not ready: %w", err)
		}
		store = s
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil && store != nil {
		store.Close()
	}
	return c, err
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	// The engine logs through zap; SDK callers observe operations through slog instead.
	logger := zap.NewNop()
	healthSvc := healthuc.New()
	if store != nil {
		healthSvc.WithStore(store)
	}

	// Pass a nil interface, not a typed nil, when geocoding is off.
	var resolver domain.LocationResolver
	if cfg.nominatimURL != "" || cfg.userAgent != "" {
		nom := nominatim.New(nominatim.Config{
			BaseURL:   cfg.nominatimURL,
			UserAgent: cfg.userAgent,
			Logger:    logger,
		})
		resolver = geocache.New(nom, store, nil, logger)
		healthSvc.WithGeocoder(nom)
	}

	fx := features.NewExtractor(resolver, embedding.NewCache())

	searchCfg := searchuc.DefaultConfig()
	searchCfg.VectorDim = cfg.vectorDimensions
	if cfg.charSum {
		searchCfg.Mode = embedding.CharSum
	}
	searchSvc := searchuc.New(searchCfg, logger)
	if cfg.keywords != nil {
		searchSvc.WithKeywordExtractor(&keywordAdapter{inner: cfg.keywords})
		if hc, ok := cfg.keywords.(healthuc.Checker); ok {
			healthSvc.WithKeywords(hc)
		}
	}

	recCfg := recommend.DefaultConfig()
	recCfg.Seed = cfg.seed
	trainer, err := recommend.New(recCfg, fx, logger)
	if err != nil {
		return nil, fmt.Errorf("slotdex: create recommender: %w", err)
	}
	if cfg.modelPath != "" {
		healthSvc.WithModelPath(cfg.modelPath)
		// A missing checkpoint leaves the initialized weights in place.
		_, _ = trainer.Load(cfg.modelPath)
	}
	inferSvc := inference.New(func() (inference.SlotRecommender, error) {
		return recommend.New(recCfg, fx, logger)
	}, cfg.modelPath, logger)

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		inferSvc:  inferSvc,
		features:  fx,
		trainer:   trainer,
		healthSvc: healthSvc,
		modelPath: cfg.modelPath,
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks cache connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if c.store == nil {
		return errNoStore
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search matches events against query tokens. Tokens may carry temporal
// directives ("다음주", "3월", "주말") and location hints.
func (c *Client) Search(ctx context.Context, events Events, tokens []string) (res SearchResults, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	if len(tokens) == 0 {
		return SearchResults{}, fmt.Errorf("%w: at least one token is required", ErrInvalidRequest)
	}
	return toSearchResults(c.searchSvc.Search(ctx, toGroups(events), tokens)), nil
}

// SearchPhrase matches events against a free-text phrase. The phrase is split
// by the keyword extractor when one is configured, on whitespace otherwise.
func (c *Client) SearchPhrase(ctx context.Context, events Events, phrase string) (res SearchResults, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search.phrase", start, err) }()

	if phrase == "" {
		return SearchResults{}, fmt.Errorf("%w: phrase is required", ErrInvalidRequest)
	}
	return toSearchResults(c.searchSvc.SearchPhrase(ctx, toGroups(events), phrase)), nil
}

// Recommend schedules every coupon valid within the next days around the fixed events.
func (c *Client) Recommend(ctx context.Context, events Events, days int) (plan Plan, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommend", start, err) }()

	if days < 1 || days > maxDays {
		return Plan{}, fmt.Errorf("%w: days must be between 1 and %d, got %d", ErrInvalidRequest, maxDays, days)
	}
	items := c.inferSvc.Infer(ctx, toGroups(events), days)
	c.obs.recommended(items)
	return toPlan(items), nil
}

// Feedback trains the shared model on one labeled event. It reports whether
// an optimizer step ran; samples are buffered until a full batch is available.
func (c *Client) Feedback(ctx context.Context, e Event, target Target) (applied bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("feedback", start, err) }()

	if len(e) == 0 {
		return false, fmt.Errorf("%w: event is required", ErrInvalidRequest)
	}
	for i, v := range target {
		if v < 0 || v > 1 {
			return false, fmt.Errorf("%w: target[%d] = %g is outside [0, 1]", ErrInvalidRequest, i, v)
		}
	}
	x := c.features.Extract(ctx, event.Event(e))
	return c.trainer.Train(x, schedule.Criteria(target)), nil
}

// Checkpoint writes the trained model to the configured model path.
func (c *Client) Checkpoint(_ context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("checkpoint", start, err) }()

	if c.modelPath == "" {
		return fmt.Errorf("checkpoint: %w (use WithModelPath)", ErrNotConfigured)
	}
	if err := c.trainer.Save(c.modelPath); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Pending returns the number of buffered feedback samples.
func (c *Client) Pending() int {
	return c.trainer.MemoryLen()
}

func toSearchResults(set result.Set) SearchResults {
	out := SearchResults{Reason: string(set.Reason), Results: make([]SearchResult, len(set.Results))}
	for i := range set.Results {
		r := &set.Results[i]
		trail := make([]TrailStep, len(r.Trail()))
		for j, s := range r.Trail() {
			trail[j] = TrailStep{Token: s.Token, Score: s.Score}
		}
		out.Results[i] = SearchResult{
			Event: Event(r.Document()),
			Score: r.Score(),
			Trail: trail,
		}
	}
	return out
}

var errNoStore = errors.New("slotdex: no cache store configured")
