// Package sync keeps the vector index consistent with contractor record
// mutations and invalidates the cache entries those mutations make stale.
package sync

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/domain"
)

// emptyTextPlaceholder is stored as the embedding source text for records
// with no searchable text. Such records get a zero vector, never a null row.
const emptyTextPlaceholder = "No description available"

// Service recomputes embeddings after record mutations.
type Service struct {
	records RecordReader
	index   VectorIndex
	embed   Embedder
	cache   CacheInvalidator
	dim     int
	logger  *zap.Logger
}

// New creates an embedding sync service.
func New(records RecordReader, index VectorIndex, embed Embedder, cache CacheInvalidator, dim int, logger *zap.Logger) *Service {
	return &Service{
		records: records,
		index:   index,
		embed:   embed,
		cache:   cache,
		dim:     dim,
		logger:  logger,
	}
}

// SyncOne recomputes and stores the embedding for a single record, then
// invalidates the cache entries it may have staled. Callers must invoke this
// after any text-field mutation. Returns domain.ErrNotFound for unknown ids.
func (s *Service) SyncOne(ctx context.Context, id string) error {
	bio, services, err := s.records.GetTextFields(ctx, id)
	if err != nil {
		return fmt.Errorf("read text fields: %w", err)
	}

	if err := s.syncText(ctx, id, bio, services); err != nil {
		return err
	}

	s.cache.InvalidateSearch(ctx)
	return nil
}

// SyncAll recomputes embeddings for every record with searchable text and
// returns the count processed. Individual failures are logged and skipped;
// the search cache is invalidated once at the end.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	sources, err := s.records.ListTextSources(ctx)
	if err != nil {
		return 0, fmt.Errorf("list text sources: %w", err)
	}

	processed := 0
	for _, src := range sources {
		if err := s.syncText(ctx, src.ID, src.BioText, src.ServicesText); err != nil {
			s.logger.Warn("Embedding sync skipped record",
				zap.String("contractor_id", src.ID), zap.Error(err))
			continue
		}
		processed++
	}

	s.cache.InvalidateSearch(ctx)
	s.logger.Info("Embedding sync completed",
		zap.Int("processed", processed), zap.Int("total", len(sources)))
	return processed, nil
}

// syncText embeds the combined text, upserts the vector, and drops the
// per-record cache entries. Records with no text get the zero-vector
// placeholder without calling the provider.
func (s *Service) syncText(ctx context.Context, id string, bio, services *string) error {
	text := combineText(bio, services)

	var vec []float32
	if text == "" {
		text = emptyTextPlaceholder
		vec = domain.ZeroVector(s.dim)
	} else {
		result, err := s.embed.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed text for %s: %w", id, err)
		}
		vec = result.Embedding
	}

	if err := s.index.Upsert(ctx, id, text, vec); err != nil {
		return fmt.Errorf("upsert vector for %s: %w", id, err)
	}

	s.cache.InvalidateContractor(ctx, id)
	return nil
}

// combineText joins the searchable fields with a single space. Returns ""
// when no usable text exists.
func combineText(bio, services *string) string {
	var parts []string
	if bio != nil && strings.TrimSpace(*bio) != "" {
		parts = append(parts, *bio)
	}
	if services != nil && strings.TrimSpace(*services) != "" {
		parts = append(parts, *services)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
