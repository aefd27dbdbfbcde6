// Package generation turns an assembled knowledge context into a coaching answer.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
)

// DefaultMaxContextTokens bounds how much retrieved context is sent to the
// chat model. Rough estimate of 4 characters per token.
const DefaultMaxContextTokens = 4000

// Generator produces grounded coaching answers with a chat completion.
type Generator struct {
	client    openai.Client
	model     openai.ChatModel
	maxTokens int
	logger    *slog.Logger
}

// NewGenerator creates a Generator. It requires OPENAI_API_KEY in the
// environment. An empty model selects GPT-4o.
func NewGenerator(model string, logger *slog.Logger) (*Generator, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	chatModel := openai.ChatModelGPT4o
	if model != "" {
		chatModel = openai.ChatModel(model)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:    openai.NewClient(),
		model:     chatModel,
		maxTokens: DefaultMaxContextTokens,
		logger:    logger,
	}, nil
}

// Answer generates a coaching answer to question, grounded in the formatted
// knowledge context. focus optionally names the athlete's declared activity
// so the tone and examples match it.
func (g *Generator) Answer(ctx context.Context, question, knowledgeContext, focus string) (string, error) {
	knowledgeContext = g.truncateContext(knowledgeContext)

	var sb strings.Builder
	sb.WriteString("You are an experienced personal coach. Answer the athlete's question using the ")
	sb.WriteString("reference material below. Prefer the references over general knowledge and cite ")
	sb.WriteString("them by their [n] markers. If the references do not cover the question, say so ")
	sb.WriteString("and give conservative general guidance.\n\n")
	if focus != "" {
		fmt.Fprintf(&sb, "The athlete's primary activity is %s.\n\n", focus)
	}
	fmt.Fprintf(&sb, "Reference material:\n%s\n\nQuestion: %s", knowledgeContext, question)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(sb.String()),
		},
		Model: g.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// truncateContext trims the context block to the token budget.
func (g *Generator) truncateContext(text string) string {
	maxChars := g.maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	g.logger.Warn("Truncating knowledge context",
		"chars", len(text), "max_chars", maxChars)
	return text[:maxChars]
}
