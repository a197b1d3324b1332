// Package synth wraps the opaque answer generator: it prepares the per-record
// context, enforces the response shape, and degrades instead of failing.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/domain"
)

// DegradedAnswerPrefix opens the answer string whenever generation could not
// produce a usable response. Synthesis failure is recoverable by contract.
const DegradedAnswerPrefix = "Unable to generate an AI summary: "

const summaryFieldLimit = 100

// Service normalizes generator output into domain.SynthesizedAnswer.
type Service struct {
	gen    Generator
	logger *zap.Logger
}

// New creates a synthesizer service.
func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{gen: gen, logger: logger}
}

// Synthesize produces an answer for the query over the candidate records.
// It never returns an error: any generation or parsing failure yields a
// degraded answer with empty insights and sources. generated_at is always
// stamped here, never trusted from model output.
func (s *Service) Synthesize(ctx context.Context, query string, records []domain.View) domain.SynthesizedAnswer {
	contextBlock := buildContextBlock(records)

	raw, err := s.gen.Generate(ctx, query, contextBlock)
	if err != nil {
		s.logger.Warn("Answer generation failed, degrading",
			zap.String("query", query), zap.Error(err))
		return degraded(err.Error())
	}

	parsed, err := parseAnswer(raw)
	if err != nil {
		s.logger.Warn("Generated answer malformed, degrading",
			zap.String("query", query), zap.Error(err))
		return degraded(err.Error())
	}

	parsed.GeneratedAt = now()
	return parsed
}

// buildContextBlock renders a bounded-size summary line per record.
func buildContextBlock(records []domain.View) string {
	if len(records) == 0 {
		return "No contractors"
	}

	lines := make([]string, 0, len(records))
	for _, r := range records {
		var b strings.Builder
		fmt.Fprintf(&b, "- Name: %s", r.Name)
		if r.City != nil && r.Province != nil {
			fmt.Fprintf(&b, ", Location: %s, %s", *r.City, *r.Province)
		}
		if r.BioText != nil && *r.BioText != "" {
			fmt.Fprintf(&b, ", Bio: %s", truncate(*r.BioText, summaryFieldLimit))
		}
		if r.ServicesText != nil && *r.ServicesText != "" {
			fmt.Fprintf(&b, ", Services: %s", truncate(*r.ServicesText, summaryFieldLimit))
		}
		if r.HourlyRateMin != nil && r.HourlyRateMax != nil {
			fmt.Fprintf(&b, ", Rate: $%g-$%g/hr", *r.HourlyRateMin, *r.HourlyRateMax)
		}
		if r.HasLicense {
			b.WriteString(", Licensed: Yes")
		}
		if r.HasInsurance {
			b.WriteString(", Insured: Yes")
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// parseAnswer decodes the generator output and checks the three required
// fields are present.
func parseAnswer(raw string) (domain.SynthesizedAnswer, error) {
	var parsed struct {
		Answer      *string   `json:"answer"`
		KeyInsights *[]string `json:"key_insights"`
		Sources     *[]string `json:"sources"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.SynthesizedAnswer{}, fmt.Errorf("%w: %w", domain.ErrMalformedAnswer, err)
	}
	if parsed.Answer == nil || parsed.KeyInsights == nil || parsed.Sources == nil {
		return domain.SynthesizedAnswer{}, fmt.Errorf(
			"%w: missing required field", domain.ErrMalformedAnswer)
	}

	return domain.SynthesizedAnswer{
		Answer:      *parsed.Answer,
		KeyInsights: *parsed.KeyInsights,
		Sources:     *parsed.Sources,
	}, nil
}

func degraded(reason string) domain.SynthesizedAnswer {
	return domain.SynthesizedAnswer{
		Answer:      DegradedAnswerPrefix + reason,
		KeyInsights: []string{},
		Sources:     []string{},
		GeneratedAt: now(),
	}
}

// truncate cuts s to at most limit bytes without splitting a multi-byte rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "..."
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
