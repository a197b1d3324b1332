package sync

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/domain"
)

const testDim = 4

type mockRecords struct {
	bio      *string
	services *string
	err      error
	sources  []domain.TextSource
	listErr  error
}

func (m *mockRecords) GetTextFields(_ context.Context, _ string) (*string, *string, error) {
	return m.bio, m.services, m.err
}

func (m *mockRecords) ListTextSources(_ context.Context) ([]domain.TextSource, error) {
	return m.sources, m.listErr
}

type mockIndex struct {
	upserts map[string][]float32
	texts   map[string]string
	failFor map[string]bool
}

func newMockIndex() *mockIndex {
	return &mockIndex{
		upserts: make(map[string][]float32),
		texts:   make(map[string]string),
		failFor: make(map[string]bool),
	}
}

func (m *mockIndex) Upsert(_ context.Context, id, text string, vec []float32) error {
	if m.failFor[id] {
		return errors.New("index write failed")
	}
	m.upserts[id] = vec
	m.texts[id] = text
	return nil
}

func (m *mockIndex) Delete(_ context.Context, id string) error {
	delete(m.upserts, id)
	return nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	calls  int
	lastIn string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.lastIn = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockInvalidator struct {
	contractorIDs []string
	searchWipes   int
}

func (m *mockInvalidator) InvalidateContractor(_ context.Context, id string) {
	m.contractorIDs = append(m.contractorIDs, id)
}

func (m *mockInvalidator) InvalidateSearch(_ context.Context) int {
	m.searchWipes++
	return 0
}

func strPtr(s string) *string { return &s }

func newService(records *mockRecords, index *mockIndex, embed *mockEmbedder, inv *mockInvalidator) *Service {
	return New(records, index, embed, inv, testDim, zap.NewNop())
}

func TestSyncOne_CombinesTextAndInvalidates(t *testing.T) {
	records := &mockRecords{bio: strPtr("licensed plumber"), services: strPtr("drain repair")}
	index := newMockIndex()
	embed := &mockEmbedder{vec: []float32{1, 2, 3, 4}}
	inv := &mockInvalidator{}
	svc := newService(records, index, embed, inv)

	if err := svc.SyncOne(context.Background(), "42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if embed.lastIn != "licensed plumber drain repair" {
		t.Errorf("combined text = %q", embed.lastIn)
	}
	if index.texts["42"] != "licensed plumber drain repair" {
		t.Errorf("stored text = %q", index.texts["42"])
	}
	if len(inv.contractorIDs) != 1 || inv.contractorIDs[0] != "42" {
		t.Errorf("per-record invalidation not called: %v", inv.contractorIDs)
	}
	if inv.searchWipes != 1 {
		t.Errorf("search invalidation called %d times, want 1", inv.searchWipes)
	}
}

func TestSyncOne_EmptyText_StoresZeroVector(t *testing.T) {
	records := &mockRecords{bio: strPtr("   "), services: nil}
	index := newMockIndex()
	embed := &mockEmbedder{vec: []float32{1, 2, 3, 4}}
	svc := newService(records, index, embed, &mockInvalidator{})

	if err := svc.SyncOne(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if embed.calls != 0 {
		t.Error("provider must not be called for empty text")
	}
	vec, ok := index.upserts["7"]
	if !ok {
		t.Fatal("expected a stored vector, found none")
	}
	if len(vec) != testDim {
		t.Fatalf("placeholder vector has %d dimensions, want %d", len(vec), testDim)
	}
	for i, f := range vec {
		if f != 0 {
			t.Fatalf("placeholder vector not all-zero at %d: %g", i, f)
		}
	}
	if index.texts["7"] != emptyTextPlaceholder {
		t.Errorf("stored text = %q, want placeholder", index.texts["7"])
	}
}

func TestSyncOne_NotFound_Propagates(t *testing.T) {
	records := &mockRecords{err: domain.ErrNotFound}
	svc := newService(records, newMockIndex(), &mockEmbedder{}, &mockInvalidator{})

	err := svc.SyncOne(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncOne_EmbedError_Propagates(t *testing.T) {
	records := &mockRecords{bio: strPtr("text")}
	embed := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	inv := &mockInvalidator{}
	svc := newService(records, newMockIndex(), embed, inv)

	if err := svc.SyncOne(context.Background(), "1"); err == nil {
		t.Fatal("expected error")
	}
	if inv.searchWipes != 0 {
		t.Error("search cache must not be invalidated on failed sync")
	}
}

func TestSyncAll_SkipsFailuresAndCounts(t *testing.T) {
	records := &mockRecords{sources: []domain.TextSource{
		{ID: "1", BioText: strPtr("plumber")},
		{ID: "2", BioText: strPtr("electrician")},
		{ID: "3", ServicesText: strPtr("roofing")},
	}}
	index := newMockIndex()
	index.failFor["2"] = true
	embed := &mockEmbedder{vec: []float32{1, 2, 3, 4}}
	inv := &mockInvalidator{}
	svc := newService(records, index, embed, inv)

	n, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("processed = %d, want 2", n)
	}
	if inv.searchWipes != 1 {
		t.Errorf("search invalidation called %d times, want 1", inv.searchWipes)
	}
}

func TestSyncAll_ListError_Propagates(t *testing.T) {
	records := &mockRecords{listErr: errors.New("db down")}
	svc := newService(records, newMockIndex(), &mockEmbedder{}, &mockInvalidator{})

	if _, err := svc.SyncAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCombineText(t *testing.T) {
	tests := []struct {
		name     string
		bio      *string
		services *string
		want     string
	}{
		{"both", strPtr("a"), strPtr("b"), "a b"},
		{"bio only", strPtr("a"), nil, "a"},
		{"services only", nil, strPtr("b"), "b"},
		{"both empty", strPtr(""), strPtr("  "), ""},
		{"both nil", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := combineText(tt.bio, tt.services); got != tt.want {
				t.Errorf("combineText = %q, want %q", got, tt.want)
			}
		})
	}
}
