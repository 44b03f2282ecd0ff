package geocache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/db"
	"github.com/kailas-cloud/slotdex/internal/domain"
)

const keySegment = "geo:"

// store is the consumer interface for the shared cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// entry is the persisted form. Found=false records a definitive "no such place".
type entry struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Found bool    `json:"found"`
}

// CachedGeocoder resolves locations best-effort. Results, including failures, are kept in
// memory for the process lifetime; successes and definitive misses are also written to the
// optional shared store so other replicas skip the provider.
type CachedGeocoder struct {
	inner      domain.Geocoder
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	mu     sync.RWMutex
	memory map[string]domain.Point
}

// New creates a caching resolver. inner and s may be nil.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Geocoder,
	s store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedGeocoder {
	return &CachedGeocoder{
		inner:      inner,
		store:      s,
		prefix:     domain.KeyPrefix,
		cacheTotal: cacheTotal,
		logger:     logger,
		memory:     make(map[string]domain.Point),
	}
}

// WithTTL sets the expiry of shared-store entries. Zero keeps them forever.
func (c *CachedGeocoder) WithTTL(ttl time.Duration) *CachedGeocoder {
	c.ttl = ttl
	return c
}

// WithKeyPrefix overrides the shared-store key namespace.
func (c *CachedGeocoder) WithKeyPrefix(prefix string) *CachedGeocoder {
	if prefix != "" {
		c.prefix = prefix
	}
	return c
}

// Resolve returns the coordinates of name, or the zero Point when it cannot be resolved.
func (c *CachedGeocoder) Resolve(ctx context.Context, name string) domain.Point {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Point{}
	}

	c.mu.RLock()
	p, ok := c.memory[name]
	c.mu.RUnlock()
	if ok {
		c.incCache("hit")
		return p
	}

	key := c.cacheKey(name)
	if p, ok := c.getFromStore(ctx, key); ok {
		c.incCache("hit")
		c.remember(name, p)
		return p
	}
	c.incCache("miss")

	if c.inner == nil {
		c.remember(name, domain.Point{})
		return domain.Point{}
	}

	p, err := c.inner.Geocode(ctx, name)
	switch {
	case err == nil:
		c.putToStore(ctx, key, entry{Lat: p.Lat, Lon: p.Lon, Found: true})
	case errors.Is(err, domain.ErrGeocodeNotFound):
		p = domain.Point{}
		c.putToStore(ctx, key, entry{})
	default:
		c.logger.Warn("Geocoding failed, using zero location", zap.String("location", name), zap.Error(err))
		p = domain.Point{}
	}
	c.remember(name, p)
	return p
}

// Len returns the number of names cached in memory.
func (c *CachedGeocoder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}

func (c *CachedGeocoder) remember(name string, p domain.Point) {
	c.mu.Lock()
	c.memory[name] = p
	c.mu.Unlock()
}

func (c *CachedGeocoder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedGeocoder) cacheKey(name string) string {
	h := sha256.Sum256([]byte(name))
	return c.prefix + keySegment + hex.EncodeToString(h[:])
}

func (c *CachedGeocoder) getFromStore(ctx context.Context, key string) (domain.Point, bool) {
	if c.store == nil {
		return domain.Point{}, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached location", zap.String("key", key), zap.Error(err))
		}
		return domain.Point{}, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse cached location", zap.String("key", key), zap.Error(err))
		return domain.Point{}, false
	}
	if !e.Found {
		return domain.Point{}, true
	}
	return domain.Point{Lat: e.Lat, Lon: e.Lon}, true
}

func (c *CachedGeocoder) putToStore(ctx context.Context, key string, e entry) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache location", zap.String("key", key), zap.Error(err))
	}
}
