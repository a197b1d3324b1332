// Package vector owns the contractor embedding index in Postgres (pgvector).
package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/domain"
)

// Repo stores one embedding per contractor id and answers nearest-neighbor
// queries by cosine similarity.
type Repo struct {
	db          *pgxpool.Pool
	dim         int
	logger      *zap.Logger
	provisioned atomic.Bool
}

// New creates a vector repository with a fixed embedding dimensionality.
func New(db *pgxpool.Pool, dim int, logger *zap.Logger) *Repo {
	return &Repo{db: db, dim: dim, logger: logger}
}

// ensure provisions the pgvector extension and the embeddings table once per
// process. The DDL is idempotent, so a lost race between two callers is
// harmless.
func (r *Repo) ensure(ctx context.Context) error {
	if r.provisioned.Load() {
		return nil
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS contractor_embeddings (
			id SERIAL PRIMARY KEY,
			contractor_id INTEGER UNIQUE NOT NULL REFERENCES contractor(id) ON DELETE CASCADE,
			embedding_text TEXT,
			embedding_vector VECTOR(%d),
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`, r.dim),
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("provision embeddings schema: %w", err)
		}
	}

	r.provisioned.Store(true)
	r.logger.Info("Embeddings schema ready", zap.Int("dimensions", r.dim))
	return nil
}

// Upsert stores the embedding for a contractor id, replacing any previous
// vector. The source text is stored alongside for debugging.
func (r *Repo) Upsert(ctx context.Context, contractorID, text string, vec []float32) error {
	if len(vec) != r.dim {
		return fmt.Errorf("got %d dimensions, want %d: %w", len(vec), r.dim, domain.ErrVectorDimMismatch)
	}
	if err := r.ensure(ctx); err != nil {
		return err
	}

	const sql = `
		INSERT INTO contractor_embeddings (contractor_id, embedding_text, embedding_vector, created_at, updated_at)
		VALUES ($1, $2, $3::vector, NOW(), NOW())
		ON CONFLICT (contractor_id)
		DO UPDATE SET
			embedding_text = EXCLUDED.embedding_text,
			embedding_vector = EXCLUDED.embedding_vector,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, sql, contractorID, text, encodeVector(vec)); err != nil {
		return fmt.Errorf("upsert embedding for %s: %w", contractorID, err)
	}
	return nil
}

// Delete removes the embedding for a contractor id. Missing rows are not an
// error; the contractor table's cascade normally handles deletion anyway.
func (r *Repo) Delete(ctx context.Context, contractorID string) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	const sql = `DELETE FROM contractor_embeddings WHERE contractor_id = $1`
	if _, err := r.db.Exec(ctx, sql, contractorID); err != nil {
		return fmt.Errorf("delete embedding for %s: %w", contractorID, err)
	}
	return nil
}

// Query returns up to k records scoring at or above threshold, ordered by
// descending similarity with ties broken by ascending contractor id.
// Score is cosine similarity: 1 - (a <=> b).
func (r *Repo) Query(ctx context.Context, vec []float32, k int, threshold float64) ([]domain.ScoredContractor, error) {
	if len(vec) != r.dim {
		return nil, fmt.Errorf("got %d dimensions, want %d: %w", len(vec), r.dim, domain.ErrVectorDimMismatch)
	}
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	const sql = `
		SELECT
			c.id, c.name, c.phone, c.email, c.city, c.province,
			c.bio_text, c.services_text, c.has_license, c.has_insurance,
			c.hourly_rate_min, c.hourly_rate_max, c.created_at,
			1 - (ce.embedding_vector <=> $1::vector) AS similarity_score
		FROM contractor c
		JOIN contractor_embeddings ce ON c.id = ce.contractor_id
		WHERE ce.embedding_vector IS NOT NULL
		ORDER BY ce.embedding_vector <=> $1::vector, c.id
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, encodeVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	var hits []domain.ScoredContractor
	for rows.Next() {
		s, err := scanScored(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		hits = append(hits, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return filterByScore(hits, threshold), nil
}

// filterByScore drops hits scoring below threshold, preserving order.
// pgvector's cosine distance operator has no score predicate form, so the
// cut happens here rather than in SQL.
func filterByScore(hits []domain.ScoredContractor, threshold float64) []domain.ScoredContractor {
	out := hits[:0]
	for _, s := range hits {
		if s.Score >= threshold {
			out = append(out, s)
		}
	}
	return out
}

func scanScored(rows pgx.Rows) (domain.ScoredContractor, error) {
	var s domain.ScoredContractor
	var id int64
	if err := rows.Scan(
		&id, &s.Contractor.Name, &s.Contractor.Phone, &s.Contractor.Email,
		&s.Contractor.City, &s.Contractor.Province,
		&s.Contractor.BioText, &s.Contractor.ServicesText,
		&s.Contractor.HasLicense, &s.Contractor.HasInsurance,
		&s.Contractor.HourlyRateMin, &s.Contractor.HourlyRateMax,
		&s.Contractor.CreatedAt, &s.Score,
	); err != nil {
		return domain.ScoredContractor{}, err
	}
	s.Contractor.ID = strconv.FormatInt(id, 10)
	return s, nil
}

// encodeVector renders a float32 slice in pgvector's text format: [1,2,3].
func encodeVector(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec)*10 + 2)
	b.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
