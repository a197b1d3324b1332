package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbedChecker struct {
	err error
}

func (m *mockEmbedChecker) HealthCheck(_ context.Context) error { return m.err }

type mockCounter struct {
	n   int
	err error
}

func (m *mockCounter) Count(_ context.Context) (int, error) { return m.n, m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{}, &mockEmbedChecker{}, &mockCounter{n: 12})

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Errorf("status = %s, want %s", report.Status, Healthy)
	}
	if report.Checks["database"] != CheckOK || report.Checks["cache"] != CheckOK {
		t.Errorf("checks = %v", report.Checks)
	}
	if report.Checks["embedding_provider"] != CheckOK {
		t.Errorf("embedding_provider = %s, want %s", report.Checks["embedding_provider"], CheckOK)
	}
	if report.ContractorCount != 12 {
		t.Errorf("contractor count = %d, want 12", report.ContractorCount)
	}
}

func TestCheck_CacheDownDegrades(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{err: errors.New("refused")}, nil, &mockCounter{n: 3})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("status = %s, want %s", report.Status, Degraded)
	}
	if report.ContractorCount != 3 {
		t.Errorf("contractor count = %d, want 3", report.ContractorCount)
	}
}

func TestCheck_EmbeddingProviderDownDegrades(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{}, &mockEmbedChecker{err: errors.New("quota")}, &mockCounter{})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["embedding_provider"] != CheckError {
		t.Errorf("embedding_provider = %s, want %s", report.Checks["embedding_provider"], CheckError)
	}
}

func TestCheck_DatabaseDownIsUnhealthy(t *testing.T) {
	counter := &mockCounter{n: 3}
	svc := New(&mockPinger{err: errors.New("refused")}, &mockPinger{}, nil, counter)

	report := svc.Check(context.Background())

	if report.Status != Unhealthy {
		t.Errorf("status = %s, want %s", report.Status, Unhealthy)
	}
	if report.ContractorCount != 0 {
		t.Error("must not report a count when the database is down")
	}
}

func TestCheck_NilOptionalComponentsSkipChecks(t *testing.T) {
	svc := New(&mockPinger{}, nil, nil, &mockCounter{})

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Errorf("status = %s, want %s", report.Status, Healthy)
	}
	if _, ok := report.Checks["cache"]; ok {
		t.Error("cache check must be absent when no store is configured")
	}
	if _, ok := report.Checks["embedding_provider"]; ok {
		t.Error("embedding check must be absent when no provider is configured")
	}
}
