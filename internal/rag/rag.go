package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"content-rag/internal/embedding"
	"content-rag/internal/models"
)

// RAG answers questions against stored content. Every mode embeds the
// question, retrieves, then synthesizes; nothing reaches the model when
// retrieval fails.
type RAG struct {
	embedder  embedding.Embedder
	retriever *Retriever
	synth     *Synthesizer
}

func NewRAG(embedder embedding.Embedder, retriever *Retriever, synth *Synthesizer) *RAG {
	return &RAG{embedder: embedder, retriever: retriever, synth: synth}
}

// AskRecord answers from a single record and reports how close the question
// is to it.
func (r *RAG) AskRecord(ctx context.Context, class models.ContentClass, id int64, question string) (*models.Answer, error) {
	matches, err := r.retrieve(ctx, question, RecordScope(class, id))
	if err != nil {
		return nil, err
	}

	m := matches[0]
	answer, err := r.synth.Synthesize(ctx, m.Record.Text, question, false)
	if err != nil {
		return nil, err
	}
	return &models.Answer{Answer: answer, Similarity: &m.Similarity}, nil
}

// AskClass answers from the best-matching record of class.
func (r *RAG) AskClass(ctx context.Context, class models.ContentClass, question string) (*models.Answer, error) {
	matches, err := r.retrieve(ctx, question, ClassScope(class))
	if err != nil {
		return nil, err
	}

	answer, err := r.synth.Synthesize(ctx, matches[0].Record.Text, question, false)
	if err != nil {
		return nil, err
	}
	return &models.Answer{Answer: answer}, nil
}

// AskAll asks each non-empty class for a brief answer and joins them in
// class order.
func (r *RAG) AskAll(ctx context.Context, question string) (*models.Answer, error) {
	matches, err := r.retrieve(ctx, question, AllClasses())
	if err != nil {
		return nil, err
	}

	answers := make([]string, 0, len(matches))
	var similarity float64
	for _, m := range matches {
		answer, err := r.synth.Synthesize(ctx, m.Record.Text, question, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Record.Class, err)
		}
		answers = append(answers, answer)
		similarity += m.Similarity
	}

	return &models.Answer{
		Answer:     strings.Join(answers, models.ContextSeparator),
		Similarity: &similarity,
	}, nil
}

func (r *RAG) retrieve(ctx context.Context, question string, scope Scope) ([]Match, error) {
	if strings.TrimSpace(question) == "" {
		return nil, models.MissingField("question")
	}

	qv, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	matches, err := r.retriever.Retrieve(ctx, qv, scope)
	if err != nil {
		return nil, err
	}
	log.Info().Str("scope", scope.String()).Int("matches", len(matches)).Msg("Answering question")
	return matches, nil
}
