// Package contractor is the read-side repository for the contractor table.
// It is intentionally thin: no caching, no retries beyond the driver's own.
package contractor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradefind/tradefind/internal/domain"
)

// Repo reads contractor records from Postgres.
type Repo struct {
	db *pgxpool.Pool
}

// New creates a contractor repository.
func New(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

var recordColumns = []string{
	"id", "name", "phone", "email", "city", "province",
	"bio_text", "services_text", "has_license", "has_insurance",
	"hourly_rate_min", "hourly_rate_max", "created_at",
}

// ListAll returns every contractor record. This is the full-scan retrieval
// path; ordering is insertion order (by id).
func (r *Repo) ListAll(ctx context.Context) ([]domain.Contractor, error) {
	sql, args, err := squirrel.Select(recordColumns...).
		From("contractor").
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list contractors: %w", err)
	}
	defer rows.Close()

	var out []domain.Contractor
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contractor: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contractors: %w", err)
	}
	return out, nil
}

// GetTextFields returns the searchable text fields for one record.
// Returns domain.ErrNotFound if the id does not exist.
func (r *Repo) GetTextFields(ctx context.Context, id string) (bio, services *string, err error) {
	sql, args, err := squirrel.Select("bio_text", "services_text").
		From("contractor").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build text query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&bio, &services); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get text fields for %s: %w", id, err)
	}
	return bio, services, nil
}

// ListTextSources returns id + text fields for every record that has any
// searchable text. Used by the bulk embedding sync.
func (r *Repo) ListTextSources(ctx context.Context) ([]domain.TextSource, error) {
	sql, args, err := squirrel.Select("id", "bio_text", "services_text").
		From("contractor").
		Where("bio_text IS NOT NULL OR services_text IS NOT NULL").
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build text sources query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list text sources: %w", err)
	}
	defer rows.Close()

	var out []domain.TextSource
	for rows.Next() {
		var id int64
		var src domain.TextSource
		if err := rows.Scan(&id, &src.BioText, &src.ServicesText); err != nil {
			return nil, fmt.Errorf("scan text source: %w", err)
		}
		src.ID = strconv.FormatInt(id, 10)
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list text sources: %w", err)
	}
	return out, nil
}

// Count returns the number of contractor records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM contractor").Scan(&n); err != nil {
		return 0, fmt.Errorf("count contractors: %w", err)
	}
	return n, nil
}

// scanContractor reads one record row. The id column is integer in Postgres
// but exposed as a string everywhere above the repository.
func scanContractor(rows pgx.Rows) (domain.Contractor, error) {
	var c domain.Contractor
	var id int64
	if err := rows.Scan(
		&id, &c.Name, &c.Phone, &c.Email, &c.City, &c.Province,
		&c.BioText, &c.ServicesText, &c.HasLicense, &c.HasInsurance,
		&c.HourlyRateMin, &c.HourlyRateMax, &c.CreatedAt,
	); err != nil {
		return domain.Contractor{}, err
	}
	c.ID = strconv.FormatInt(id, 10)
	return c, nil
}
