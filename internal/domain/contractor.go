// Package domain holds the core contractor search types shared across layers.
package domain

import "time"

// EmbeddingDimensions is the fixed embedding width. Vectors of any other
// length are rejected as a configuration error.
const EmbeddingDimensions = 384

// Contractor is a raw record row from the contractor table.
type Contractor struct {
	ID            string
	Name          string
	Phone         *string
	Email         *string
	City          *string
	Province      *string
	BioText       *string
	ServicesText  *string
	HasLicense    bool
	HasInsurance  bool
	HourlyRateMin *float64
	HourlyRateMax *float64
	CreatedAt     *time.Time
}

// View is the serialization shape of a contractor in search responses.
// SimilarityScore is set only for semantically retrieved results.
type View struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Phone           *string  `json:"phone"`
	Email           *string  `json:"email"`
	City            *string  `json:"city"`
	Province        *string  `json:"province"`
	BioText         *string  `json:"bio_text"`
	ServicesText    *string  `json:"services_text"`
	HasLicense      bool     `json:"has_license"`
	HasInsurance    bool     `json:"has_insurance"`
	HourlyRateMin   *float64 `json:"hourly_rate_min,omitempty"`
	HourlyRateMax   *float64 `json:"hourly_rate_max,omitempty"`
	CreatedAt       *string  `json:"created_at,omitempty"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
}

// ViewOf projects a raw record into its response shape.
func ViewOf(c Contractor) View {
	v := View{
		ID:            c.ID,
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		City:          c.City,
		Province:      c.Province,
		BioText:       c.BioText,
		ServicesText:  c.ServicesText,
		HasLicense:    c.HasLicense,
		HasInsurance:  c.HasInsurance,
		HourlyRateMin: c.HourlyRateMin,
		HourlyRateMax: c.HourlyRateMax,
	}
	if c.CreatedAt != nil {
		ts := c.CreatedAt.UTC().Format(time.RFC3339)
		v.CreatedAt = &ts
	}
	return v
}

// Cache namespaces. Entry keys are always derived from the namespace plus a
// digest of the inputs, never enumerated by callers.
const (
	CacheNamespaceSearch     = "search"
	CacheNamespaceRAG        = "rag"
	CacheNamespaceContractor = "contractor"
	CacheNamespaceEmbedding  = "embedding"
)

// ScoredContractor is a semantic retrieval hit: a record plus its cosine
// similarity score.
type ScoredContractor struct {
	Contractor Contractor
	Score      float64
}

// TextSource pairs a record id with its searchable text fields.
type TextSource struct {
	ID           string
	BioText      *string
	ServicesText *string
}

// SearchResult is the plain (full-scan) search response.
type SearchResult struct {
	Contractors []View `json:"contractors"`
	TotalCount  int    `json:"total_count"`
	Query       string `json:"query"`
}

// SynthesizedAnswer is the normalized output of the answer generator.
// GeneratedAt is always stamped locally, never taken from model output.
type SynthesizedAnswer struct {
	Answer      string   `json:"answer"`
	KeyInsights []string `json:"key_insights"`
	Sources     []string `json:"sources"`
	GeneratedAt string   `json:"generated_at"`
}

// RAGResult is the retrieval-augmented search response.
type RAGResult struct {
	Answer      string   `json:"answer"`
	KeyInsights []string `json:"key_insights"`
	Contractors []View   `json:"contractors"`
	TotalCount  int      `json:"total_count"`
	Query       string   `json:"query"`
	Sources     []string `json:"sources"`
	GeneratedAt string   `json:"generated_at"`
	Cached      bool     `json:"cached,omitempty"`
}
