package health

import "context"

// StorePinger checks cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an external collaborator (geocoder, keyword extractor).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
