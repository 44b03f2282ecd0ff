package chi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
	"github.com/kailas-cloud/slotdex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/slotdex/internal/domain/usage"
	logpkg "github.com/kailas-cloud/slotdex/internal/logger"
	healthuc "github.com/kailas-cloud/slotdex/internal/usecase/health"
)

// MaxDays bounds the recommendation window.
const MaxDays = 365

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Options holds request defaults taken from config.
type Options struct {
	Debug       bool   // attach _score/_debug to search results unless ?debug overrides it
	DefaultDays int    // recommendation window when ?days is absent
	ModelPath   string // checkpoint target
	MaxBodyMB   int
}

// Server serves the slotdex HTTP API.
type Server struct {
	search        Searcher
	inference     Inferrer
	features      FeatureExtractor
	trainer       Trainer
	usage         UsageReporter
	health        *healthuc.Service
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. Training endpoints answer 501 until
// WithTraining is called.
func NewServer(
	search Searcher,
	inference Inferrer,
	health *healthuc.Service,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = 30
	}
	if opts.MaxBodyMB <= 0 {
		opts.MaxBodyMB = 10
	}
	return &Server{
		search:    search,
		inference: inference,
		health:    health,
		opts:      opts,
		logger:    logger,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
			sentinelHandler(domain.ErrInvalidDimension, http.StatusBadRequest, ErrorCodeValidationFailed),
			sentinelHandler(domain.ErrNotConfigured, http.StatusNotImplemented, ErrorCodeNotImplemented),
			sentinelHandler(domain.ErrGeocoderUnavailable, http.StatusServiceUnavailable, ErrorCodeServiceUnavailable),
		},
	}
}

// WithTraining enables the feedback and checkpoint endpoints.
func (s *Server) WithTraining(features FeatureExtractor, trainer Trainer) *Server {
	s.features = features
	s.trainer = trainer
	return s
}

// WithUsage enables GET /v1/usage.
func (s *Server) WithUsage(usage UsageReporter) *Server {
	s.usage = usage
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/recommendations", s.Recommend)
		r.Post("/training/feedback", s.Feedback)
		r.Post("/training/checkpoint", s.Checkpoint)
		r.Get("/usage", s.GetUsage)
	})
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var debug *bool
	if err := runtime.BindQueryParameter("form", true, false, "debug", r.URL.Query(), &debug); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid query parameter debug")
		return
	}

	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Tokens) == 0 && req.Query == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "tokens or query is required")
		return
	}
	if len(req.Tokens) > 0 && req.Query != "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "tokens and query are mutually exclusive")
		return
	}

	groups := event.Normalize(req.Events)
	var set result.Set
	if req.Query != "" {
		set = s.search.SearchPhrase(r.Context(), groups, req.Query)
	} else {
		set = s.search.Search(r.Context(), groups, req.Tokens)
	}

	withDebug := s.opts.Debug
	if debug != nil {
		withDebug = *debug
	}
	results := make([]event.Event, len(set.Results))
	for i := range set.Results {
		results[i] = set.Results[i].Render(withDebug)
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results: results,
		Reason:  string(set.Reason),
		Total:   len(results),
	})
}

// Recommend handles POST /v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var daysParam *int
	if err := runtime.BindQueryParameter("form", true, false, "days", r.URL.Query(), &daysParam); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid query parameter days")
		return
	}
	days := s.opts.DefaultDays
	if daysParam != nil {
		days = *daysParam
	}
	if days < 1 || days > MaxDays {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("days must be between 1 and %d", MaxDays))
		return
	}

	var req RecommendRequest
	if !s.decode(w, r, &req) {
		return
	}

	items := s.inference.Infer(r.Context(), event.Normalize(req.Events), days)
	writeJSON(w, http.StatusOK, RecommendResponse{
		Items: items,
		Days:  schedule.GroupByDate(items),
	})
}

// Feedback handles POST /v1/training/feedback.
func (s *Server) Feedback(w http.ResponseWriter, r *http.Request) {
	if s.trainer == nil {
		s.handleDomainError(w, r, fmt.Errorf("training: %w", domain.ErrNotConfigured))
		return
	}

	var req FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Event) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "event is required")
		return
	}
	target, err := criteriaFromTarget(req.Target)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	x := s.features.Extract(r.Context(), req.Event)
	applied := s.trainer.Train(x, target)
	writeJSON(w, http.StatusAccepted, FeedbackResponse{Applied: applied, Memory: s.trainer.MemoryLen()})
}

// Checkpoint handles POST /v1/training/checkpoint.
func (s *Server) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if s.trainer == nil || s.opts.ModelPath == "" {
		s.handleDomainError(w, r, fmt.Errorf("checkpoint: %w", domain.ErrNotConfigured))
		return
	}
	if err := s.trainer.Save(s.opts.ModelPath); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logpkg.FromContext(r.Context()).Info("Model checkpoint saved", zap.String("path", s.opts.ModelPath))
	w.WriteHeader(http.StatusNoContent)
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		s.handleDomainError(w, r, fmt.Errorf("usage: %w", domain.ErrNotConfigured))
		return
	}

	var periodParam *string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &periodParam); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid query parameter period")
		return
	}
	var raw string
	if periodParam != nil {
		raw = *periodParam
	}
	period, ok := domusage.ParsePeriod(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("period must be one of day, month, total; got %q", raw))
		return
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := UsageResponse{
		Period: string(report.Period),
		Usage: UsageMetrics{
			KeywordRequests: report.Requests,
			Tokens:          report.Tokens,
		},
		Budget: BudgetStatus{
			TokensLimit:     report.Budget.Limit,
			TokensRemaining: report.Budget.Remaining,
			IsExhausted:     report.Budget.Exhausted(),
		},
	}
	if !report.Start.IsZero() {
		start, end := report.Start, report.End
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if !report.Budget.ResetsAt.IsZero() {
		resetsAt := report.Budget.ResetsAt
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func criteriaFromTarget(target []float64) (schedule.Criteria, error) {
	var c schedule.Criteria
	if len(target) != schedule.NumCriteria {
		return c, fmt.Errorf("target has %d values, want %d: %w",
			len(target), schedule.NumCriteria, domain.ErrInvalidDimension)
	}
	copy(c[:], target)
	return c, nil
}

// decode reads a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, int64(s.opts.MaxBodyMB)<<20)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrInvalidDimension,
		domain.ErrNotConfigured,
		domain.ErrGeocoderUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
