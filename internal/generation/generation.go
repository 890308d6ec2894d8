// Package generation produces answer text from an assembled prompt, either
// through a hosted model or through deterministic local fallbacks.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docsearch/internal/config"
	"docsearch/internal/models"
)

// Generator turns a prompt into answer text. Remote implementations may
// fail; callers are expected to fall back rather than surface the error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIGenerator calls an OpenAI-compatible completion endpoint. The
// client is built once and shared across requests.
type OpenAIGenerator struct {
	llm *openai.LLM
}

func NewOpenAI(cfg config.LLMConfig) (*OpenAIGenerator, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing generation client: %w", err)
	}
	return &OpenAIGenerator{llm: llm}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(500),
	)
}

var _ Generator = (*OpenAIGenerator)(nil)

// LocalAnswer is the deterministic answer used when no remote generator is
// configured: the retrieved context truncated to a fixed character budget.
func LocalAnswer(context string) string {
	return models.LocalAnswerPrefix + truncate(context, models.LocalAnswerBudget) + "..."
}

// DegradedAnswer is the deterministic answer substituted when the remote
// generator fails mid-request.
func DegradedAnswer(context string) string {
	return models.DegradedAnswerPrefix + truncate(context, models.DegradedAnswerBudget) + "..."
}

// truncate caps s at limit runes so multi-byte context is never cut
// mid-rune.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
