package llm

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"docqa/internal/config"
)

// Generator streams chat completions from a local Ollama model. A
// generation is a one-shot, finite token sequence: it cannot be
// restarted, and canceling the context or returning an error from the
// token callback stops it.
type Generator struct {
	llm         *ollama.LLM
	temperature float64
	maxTokens   int
}

func NewOllamaGenerator(llmConfig *config.LLMConfig) (*Generator, error) {
	log.Debug().
		Str("base_url", llmConfig.BaseURL).
		Str("inference_model", llmConfig.Model).
		Msg("Initializing generator")

	model, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return &Generator{
		llm:         model,
		temperature: llmConfig.Temperature,
		maxTokens:   llmConfig.MaxTokens,
	}, nil
}

// Stream generates a completion for prompt, invoking onToken for each
// produced fragment in order. It returns the full answer text.
func (g *Generator) Stream(ctx context.Context, prompt string, onToken func(string) error) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return onToken(string(chunk))
		}),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
