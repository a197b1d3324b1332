package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; the service still answers queries.
	Degraded Status = "degraded"
	// Unhealthy indicates the record database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status          Status
	Checks          map[string]CheckResult
	ContractorCount int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	cache     CachePinger
	embedding EmbeddingPinger
	records   RecordCounter
}

// New creates a Service. cache and embedding can be nil when the respective
// component is not configured.
func New(db DBPinger, cache CachePinger, embedding EmbeddingPinger, records RecordCounter) *Service {
	return &Service{db: db, cache: cache, embedding: embedding, records: records}
}

// Check runs health checks against all components. The database is the only
// hard dependency; a failing cache only degrades the status.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbUp := s.db.Ping(ctx) == nil
	if dbUp {
		checks["database"] = CheckOK
	} else {
		checks["database"] = CheckError
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding_provider"] = CheckError
		} else {
			checks["embedding_provider"] = CheckOK
		}
	}

	report := Report{Checks: checks}
	if dbUp {
		if n, err := s.records.Count(ctx); err == nil {
			report.ContractorCount = n
		}
	}

	switch {
	case !dbUp:
		report.Status = Unhealthy
	case checks["cache"] == CheckError, checks["embedding_provider"] == CheckError:
		report.Status = Degraded
	default:
		report.Status = Healthy
	}
	return report
}
