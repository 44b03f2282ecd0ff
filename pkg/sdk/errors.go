package slotdex

import "github.com/kailas-cloud/slotdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest       = domain.ErrInvalidRequest
	ErrInvalidDimension     = domain.ErrInvalidDimension
	ErrNotConfigured        = domain.ErrNotConfigured
	ErrGeocoderUnavailable  = domain.ErrGeocoderUnavailable
	ErrKeywordQuotaExceeded = domain.ErrKeywordQuotaExceeded
)
