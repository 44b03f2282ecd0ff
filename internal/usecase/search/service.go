package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/domain/embedding"
	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/search/query"
	"github.com/kailas-cloud/slotdex/internal/domain/search/result"
	"github.com/kailas-cloud/slotdex/internal/metrics"
)

// Service runs fuzzy, temporally-aware search over analyzer output.
// It holds no per-call state: each Search owns a fresh embedding cache.
type Service struct {
	cfg      Config
	keywords KeywordExtractor
	loc      *time.Location
	logger   *zap.Logger
}

// New creates a search service.
func New(cfg Config, logger *zap.Logger) *Service {
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = embedding.DocumentDim
	}
	if !cfg.Mode.IsValid() {
		cfg.Mode = embedding.Advanced
	}
	return &Service{cfg: cfg, loc: time.Local, logger: logger}
}

// WithKeywordExtractor enables free-text queries through an external extractor.
func (s *Service) WithKeywordExtractor(k KeywordExtractor) *Service {
	s.keywords = k
	return s
}

// WithLocation sets the zone dates are interpreted in.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// Search scores every document of groups against the raw query tokens and returns
// the qualifying ones by descending score. It never fails: problems with the data or
// the query degrade to an empty Set with a Reason.
func (s *Service) Search(ctx context.Context, groups event.Groups, raw []string) result.Set {
	eng := embedding.NewEngine(s.cfg.VectorDim, s.cfg.Mode, embedding.NewCache())
	q := query.Parse(raw, s.loc)
	docs := groups.Flatten()

	if q.InvalidReference() {
		s.logger.Warn("Temporal directive with unparseable reference",
			zap.String("directive", string(q.Directive())), zap.Strings("query", raw))
		metrics.SearchRequestsTotal.WithLabelValues(string(result.ReasonInvalidReference)).Inc()
		return result.Set{Reason: result.ReasonInvalidReference}
	}

	var candidates []candidate
	if s.cfg.Mode == embedding.Advanced {
		candidates = retrieve(eng, q.Text(), docs, s.cfg.TopK)
	} else {
		candidates = scanAll(docs)
	}
	metrics.SearchCandidates.Observe(float64(len(candidates)))

	sc := scorer{matchThreshold: s.cfg.MatchThreshold, loc: s.loc}
	threshold := Threshold(s.cfg.BaseThreshold, len(q.Tokens()))

	var qualified []result.Result
	for _, c := range candidates {
		score, trail := sc.score(c.doc, q)
		if score >= threshold {
			trail = append(trail, result.Step{
				Score: score, Reason: fmt.Sprintf("similarity %.4f", c.similarity),
			})
			qualified = append(qualified, result.New(c.doc, score, trail))
		}
	}

	s.logger.Debug("Search scored",
		zap.Int("documents", len(docs)),
		zap.Int("candidates", len(candidates)),
		zap.Int("qualified", len(qualified)),
		zap.Float64("threshold", threshold),
		zap.Any("tokens", q.Tokens()),
	)

	if len(qualified) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues(string(result.ReasonNoMatch)).Inc()
		return result.Set{Reason: result.ReasonNoMatch, Threshold: threshold}
	}

	sort.SliceStable(qualified, func(i, j int) bool { return qualified[i].Score() > qualified[j].Score() })
	metrics.SearchRequestsTotal.WithLabelValues("match").Inc()
	return result.Set{Results: qualified, Threshold: threshold}
}

// SearchPhrase tokenizes a free-text phrase and searches with it. With a keyword
// extractor configured the phrase goes through it; extraction failures fall back
// to whitespace splitting.
func (s *Service) SearchPhrase(ctx context.Context, groups event.Groups, phrase string) result.Set {
	return s.Search(ctx, groups, s.Tokenize(ctx, phrase))
}

// Tokenize splits a phrase into query tokens.
func (s *Service) Tokenize(ctx context.Context, phrase string) []string {
	if s.keywords == nil {
		return strings.Fields(phrase)
	}
	tokens, err := s.keywords.Extract(ctx, phrase)
	if err == nil && len(tokens) == 0 {
		err = fmt.Errorf("%w: no keywords", domain.ErrKeywordExtraction)
	}
	if err != nil {
		s.logger.Warn("Keyword extraction failed, splitting on whitespace", zap.Error(err))
		return strings.Fields(phrase)
	}
	return tokens
}
