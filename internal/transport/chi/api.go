package chi

import (
	"time"

	"github.com/kailas-cloud/slotdex/internal/domain/event"
	"github.com/kailas-cloud/slotdex/internal/domain/schedule"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeNotImplemented     ErrorCode = "not_implemented"
	ErrorCodeServiceUnavailable ErrorCode = "service_unavailable"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest carries analyzer output and either pre-split tokens or a free-text query.
type SearchRequest struct {
	Events map[string][]event.Event `json:"events"`
	Tokens []string                 `json:"tokens,omitempty"`
	Query  string                   `json:"query,omitempty"`
}

// SearchResponse lists matching events by descending score.
type SearchResponse struct {
	Results []event.Event `json:"results"`
	Reason  string        `json:"reason,omitempty"`
	Total   int           `json:"total"`
}

// RecommendRequest carries analyzer output grouped by category.
type RecommendRequest struct {
	Events map[string][]event.Event `json:"events"`
}

// RecommendResponse is the unified schedule plus a per-date rendering of it.
type RecommendResponse struct {
	Items []schedule.Item `json:"items"`
	Days  []schedule.Day  `json:"days"`
}

// FeedbackRequest is one observed outcome for an event.
// Target holds date, time, schedule and weekday fit in that order.
type FeedbackRequest struct {
	Event  event.Event `json:"event"`
	Target []float64   `json:"target"`
}

// FeedbackResponse reports whether the observation triggered an update.
type FeedbackResponse struct {
	Applied bool `json:"applied"`
	Memory  int  `json:"memory"`
}

// HealthResponse reports component status.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageMetrics holds keyword provider consumption.
type UsageMetrics struct {
	KeywordRequests int64 `json:"keyword_requests"`
	Tokens          int64 `json:"tokens"`
}

// BudgetStatus is the token budget for the reported period.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}
