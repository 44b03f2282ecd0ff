package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed API request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidDimension signals a feature or target vector of the wrong length.
	ErrInvalidDimension = errors.New("invalid vector dimension")
	// ErrGeocodeNotFound signals that the geocoder knows no place with that name.
	ErrGeocodeNotFound = errors.New("location not found")
	// ErrGeocoderUnavailable signals a geocoding provider failure (timeout, 5xx, open breaker).
	ErrGeocoderUnavailable = errors.New("geocoder unavailable")
	// ErrModelLoad signals an unreadable or corrupt model blob.
	ErrModelLoad = errors.New("model load failed")
	// ErrKeywordExtraction signals a keyword extraction provider failure.
	ErrKeywordExtraction = errors.New("keyword extraction failed")
	// ErrKeywordQuotaExceeded signals an exhausted keyword extraction token budget.
	ErrKeywordQuotaExceeded = errors.New("keyword extraction quota exceeded")
	// ErrNotConfigured signals an optional collaborator that is disabled in config.
	ErrNotConfigured = errors.New("not configured")
)
