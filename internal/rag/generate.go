package rag

import (
	"context"
	"fmt"
	"strings"

	"content-rag/internal/helper"
	"content-rag/internal/llmservice"
	"content-rag/internal/models"
)

// Titler names content that was uploaded without a title.
type Titler struct {
	llm          llmservice.Client
	maxTokens    int
	excerptChars int
}

func NewTitler(llm llmservice.Client, maxTokens, excerptChars int) *Titler {
	return &Titler{llm: llm, maxTokens: maxTokens, excerptChars: excerptChars}
}

// Title asks the model for a concise title of the leading excerpt of text.
// There is no fallback title: any failure is ErrTitleGeneration.
func (t *Titler) Title(ctx context.Context, text string) (string, error) {
	excerpt := helper.Excerpt(text, t.excerptChars)
	if excerpt == "" {
		return "", fmt.Errorf("%w: no text to title", models.ErrTitleGeneration)
	}

	out, err := t.llm.Complete(ctx, llmservice.Request{
		System:    models.TitleSystemPrompt,
		User:      excerpt,
		MaxTokens: t.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrTitleGeneration, err)
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"'`))
	if title == "" {
		return "", fmt.Errorf("%w: empty title", models.ErrTitleGeneration)
	}
	return title, nil
}

// Synthesizer produces an answer grounded in retrieved text.
type Synthesizer struct {
	llm       llmservice.Client
	maxTokens int
}

func NewSynthesizer(llm llmservice.Client, maxTokens int) *Synthesizer {
	return &Synthesizer{llm: llm, maxTokens: maxTokens}
}

// Synthesize makes one completion call answering question from source.
// brief asks for a 2-4 line answer.
func (s *Synthesizer) Synthesize(ctx context.Context, source, question string, brief bool) (string, error) {
	system := models.AnswerSystemPrompt
	if brief {
		system = models.BriefAnswerSystemPrompt
	}

	out, err := s.llm.Complete(ctx, llmservice.Request{
		System:    system,
		User:      fmt.Sprintf(models.AnswerPromptTemplate, source, question),
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}
	return out, nil
}
