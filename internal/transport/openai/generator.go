package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/domain"
	"github.com/tradefind/tradefind/internal/metrics"
)

const generatorSystemPrompt = "You are an AI assistant for a contractor search engine. " +
	"Answer strictly as a JSON object."

// Generator produces structured answers via the chat completions API with
// JSON response format. The raw JSON content is returned as-is; parsing and
// validation belong to the synthesizer.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewGenerator creates an OpenAI-compatible answer generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Generate implements domain.AnswerGenerator.
func (g *Generator) Generate(ctx context.Context, query, contextBlock string) (string, error) {
	prompt := buildPrompt(query, contextBlock)

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", parseAPIError("generation", err, domain.ErrGenerationProviderError)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("empty generation response: %w", domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	return resp.Choices[0].Message.Content, nil
}

func buildPrompt(query, contextBlock string) string {
	return fmt.Sprintf(`Answer the user's query based on the contractor information provided.

Search Query: %q

Contractors:
%s

Provide a natural language answer and extract 2-3 key insights. List contractor names as sources.

Format as JSON:
- "answer": (string) natural language answer
- "key_insights": (list) 2-3 bullet points
- "sources": (list) contractor names`, query, contextBlock)
}
