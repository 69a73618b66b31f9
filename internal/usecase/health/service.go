package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a cache layer is failing; searches still work.
	Degraded Status = "degraded"
	// Unhealthy indicates the encoder is failing.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckPending marks an index that has not been built yet.
	CheckPending CheckResult = "pending"
)

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Courses int // size of the current index, 0 while pending
}

// Service coordinates health checks.
type Service struct {
	encoder EncoderChecker
	caches  map[string]CachePinger
	index   IndexReader
}

// New creates a Service. index can be nil.
func New(encoder EncoderChecker, index IndexReader) *Service {
	return &Service{encoder: encoder, caches: make(map[string]CachePinger), index: index}
}

// WithCache registers a cache layer checked under "cache_<name>".
func (s *Service) WithCache(name string, c CachePinger) *Service {
	s.caches[name] = c
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.encoder.HealthCheck(ctx); err != nil {
		checks["encoder"] = CheckError
		status = Unhealthy
	} else {
		checks["encoder"] = CheckOK
	}

	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key := "cache_" + name
		if err := s.caches[name].Ping(ctx); err != nil {
			checks[key] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks[key] = CheckOK
		}
	}

	var courses int
	if s.index != nil {
		if idx := s.index.Current(); idx != nil {
			checks["index"] = CheckOK
			courses = idx.Len()
		} else {
			checks["index"] = CheckPending
		}
	}

	return Report{Status: status, Checks: checks, Courses: courses}
}
