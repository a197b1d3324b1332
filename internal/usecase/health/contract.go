package health

import "context"

// DBPinger checks record database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CachePinger checks cache store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingPinger checks embedding provider availability.
type EmbeddingPinger interface {
	HealthCheck(ctx context.Context) error
}

// RecordCounter counts contractor rows.
type RecordCounter interface {
	Count(ctx context.Context) (int, error)
}
