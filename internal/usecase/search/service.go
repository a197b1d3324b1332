// Package search implements the query orchestration pipeline: cache-first
// lookup, semantic retrieval with full-scan fallback, answer synthesis, and
// cache invalidation.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/domain"
	"github.com/tradefind/tradefind/internal/metrics"
)

// Config holds retrieval tuning knobs.
type Config struct {
	TopK           int
	ScoreThreshold float64
}

// Service orchestrates contractor search across the cache, the vector index,
// and the record store.
type Service struct {
	records RecordStore
	index   VectorIndex
	embed   Embedder
	synth   Synthesizer
	cache   ResultCache
	cfg     Config
	logger  *zap.Logger
}

// New creates a search service. A zero TopK defaults to 20 and a zero
// ScoreThreshold to 0.3.
func New(
	records RecordStore, index VectorIndex, embed Embedder,
	synth Synthesizer, cache ResultCache, cfg Config, logger *zap.Logger,
) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 20
	}
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = 0.3
	}
	return &Service{
		records: records,
		index:   index,
		embed:   embed,
		synth:   synth,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
	}
}

// ragEntry is the cached payload in the rag namespace: the retrieved record
// set plus the synthesized answer, enough to reconstruct a full response.
type ragEntry struct {
	Contractors []domain.View            `json:"contractors"`
	Answer      domain.SynthesizedAnswer `json:"answer"`
}

// PlainSearch returns the full record listing for a query. The result is
// served from the search cache namespace when present; a zero-record store is
// a valid, cacheable answer. Record store failures propagate, there is no
// further fallback on this path.
func (s *Service) PlainSearch(ctx context.Context, query string) (domain.SearchResult, error) {
	key := s.cache.Key(domain.CacheNamespaceSearch, query)

	var cached domain.SearchResult
	if s.cache.Get(ctx, key, &cached) {
		metrics.SearchRequestsTotal.WithLabelValues("plain", "ok").Inc()
		return cached, nil
	}

	records, err := s.records.ListAll(ctx)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("plain", "error").Inc()
		return domain.SearchResult{}, fmt.Errorf("list contractors: %w", err)
	}

	result := domain.SearchResult{
		Contractors: viewsOf(records),
		TotalCount:  len(records),
		Query:       query,
	}
	s.cache.Set(ctx, key, result, 0)

	metrics.SearchRequestsTotal.WithLabelValues("plain", "ok").Inc()
	return result, nil
}

// RAGSearch answers a query with a synthesized summary over retrieved
// records. Retrieval is semantic-first; an empty or failed semantic pass
// falls back to the full scan, so the only error that can escape is the
// record store itself failing with nothing left to serve.
func (s *Service) RAGSearch(ctx context.Context, query string) (domain.RAGResult, error) {
	key := s.cache.Key(domain.CacheNamespaceRAG, query)

	var entry ragEntry
	if s.cache.Get(ctx, key, &entry) {
		metrics.SearchRequestsTotal.WithLabelValues("rag", "ok").Inc()
		return assemble(query, entry, true), nil
	}

	candidates, failed := s.semanticCandidates(ctx, query)
	if len(candidates) == 0 {
		plain, err := s.PlainSearch(ctx, query)
		if err != nil {
			metrics.SearchRequestsTotal.WithLabelValues("rag", "error").Inc()
			return domain.RAGResult{}, err
		}
		switch {
		case failed:
			metrics.RAGFallbacksTotal.WithLabelValues("semantic_error").Inc()
		case query != "":
			metrics.RAGFallbacksTotal.WithLabelValues("no_semantic_hits").Inc()
		}
		candidates = plain.Contractors
	}

	answer := s.synth.Synthesize(ctx, query, candidates)

	entry = ragEntry{Contractors: candidates, Answer: answer}
	s.cache.Set(ctx, key, entry, 0)

	metrics.SearchRequestsTotal.WithLabelValues("rag", "ok").Inc()
	return assemble(query, entry, false), nil
}

// SemanticSearch runs vector retrieval only, without synthesis, caching, or
// fallback. Meant for the diagnostic endpoint; failures propagate. A limit
// of zero or less selects the configured TopK; threshold is used verbatim.
func (s *Service) SemanticSearch(ctx context.Context, query string, limit int, threshold float64) (domain.SearchResult, error) {
	result := domain.SearchResult{Contractors: []domain.View{}, Query: query}
	if query == "" {
		return result, nil
	}
	if limit <= 0 {
		limit = s.cfg.TopK
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.index.Query(ctx, emb.Embedding, limit, threshold)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("vector query: %w", err)
	}

	result.Contractors = scoredViews(hits)
	result.TotalCount = len(result.Contractors)
	return result, nil
}

// InvalidateRecordCache drops the derived cache entries for one record id.
func (s *Service) InvalidateRecordCache(ctx context.Context, id string) {
	s.cache.InvalidateContractor(ctx, id)
}

// InvalidateSearchCache wipes the search and rag namespaces wholesale and
// returns the number of entries removed.
func (s *Service) InvalidateSearchCache(ctx context.Context) int {
	return s.cache.InvalidateSearch(ctx)
}

// semanticCandidates embeds the query and queries the vector index. Failures
// are logged and reported via failed so the caller can fall back; a clean
// empty result is not a failure. An empty query skips retrieval entirely.
func (s *Service) semanticCandidates(ctx context.Context, query string) (views []domain.View, failed bool) {
	if query == "" {
		return nil, false
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("Query embedding failed, falling back to full scan", zap.Error(err))
		return nil, true
	}

	hits, err := s.index.Query(ctx, emb.Embedding, s.cfg.TopK, s.cfg.ScoreThreshold)
	if err != nil {
		s.logger.Warn("Vector retrieval failed, falling back to full scan", zap.Error(err))
		return nil, true
	}

	return scoredViews(hits), false
}

func assemble(query string, e ragEntry, cached bool) domain.RAGResult {
	return domain.RAGResult{
		Answer:      e.Answer.Answer,
		KeyInsights: e.Answer.KeyInsights,
		Contractors: e.Contractors,
		TotalCount:  len(e.Contractors),
		Query:       query,
		Sources:     e.Answer.Sources,
		GeneratedAt: e.Answer.GeneratedAt,
		Cached:      cached,
	}
}

func viewsOf(records []domain.Contractor) []domain.View {
	views := make([]domain.View, 0, len(records))
	for _, c := range records {
		views = append(views, domain.ViewOf(c))
	}
	return views
}

func scoredViews(hits []domain.ScoredContractor) []domain.View {
	views := make([]domain.View, 0, len(hits))
	for _, h := range hits {
		v := domain.ViewOf(h.Contractor)
		score := h.Score
		v.SimilarityScore = &score
		views = append(views, v)
	}
	return views
}
