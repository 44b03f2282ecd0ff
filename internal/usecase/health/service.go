package health

import (
	"context"
	"os"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Search and inference keep working.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckMissing indicates an optional artifact that does not exist yet.
	CheckMissing CheckResult = "missing"
)

// Component names reported in Report.Checks.
const (
	ComponentCache    = "cache"
	ComponentGeocoder = "geocoder"
	ComponentKeywords = "keywords"
	ComponentModel    = "model"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. Every collaborator is optional.
type Service struct {
	store     StorePinger
	geocoder  Checker
	keywords  Checker
	modelPath string
}

// New creates a Service with no components.
func New() *Service {
	return &Service{}
}

// WithStore adds the cache store check.
func (s *Service) WithStore(p StorePinger) *Service {
	s.store = p
	return s
}

// WithGeocoder adds the geocoding provider check.
func (s *Service) WithGeocoder(c Checker) *Service {
	s.geocoder = c
	return s
}

// WithKeywords adds the keyword extraction provider check.
func (s *Service) WithKeywords(c Checker) *Service {
	s.keywords = c
	return s
}

// WithModelPath reports whether a model checkpoint exists. A missing file is not a
// failure: inference falls back to initialized weights.
func (s *Service) WithModelPath(path string) *Service {
	s.modelPath = path
	return s
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		checks[ComponentCache] = result(s.store.Ping(ctx))
	}
	if s.geocoder != nil {
		checks[ComponentGeocoder] = result(s.geocoder.HealthCheck(ctx))
	}
	if s.keywords != nil {
		checks[ComponentKeywords] = result(s.keywords.HealthCheck(ctx))
	}
	if s.modelPath != "" {
		if _, err := os.Stat(s.modelPath); err != nil {
			checks[ComponentModel] = CheckMissing
		} else {
			checks[ComponentModel] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
