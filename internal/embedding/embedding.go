package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"content-rag/internal/config"
	"content-rag/internal/models"
)

// Embedder maps text to a vector of fixed length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Func has the shape of chromem-go's EmbeddingFunc and of
// langchaingo's EmbedQuery.
type Func func(ctx context.Context, text string) ([]float32, error)

type checkedEmbedder struct {
	name string
	fn   Func
	dims int
}

// New wraps fn so that every vector it returns is checked against dims.
// Provider failures and wrong-sized vectors are reported as ErrEmbedding.
func New(name string, fn Func, dims int) Embedder {
	return &checkedEmbedder{name: name, fn: fn, dims: dims}
}

func (e *checkedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", models.ErrEmbedding)
	}

	vec, err := e.fn(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrEmbedding, e.name, err)
	}
	if len(vec) != e.dims {
		return nil, fmt.Errorf("%w: %s returned %d dimensions, expected %d", models.ErrEmbedding, e.name, len(vec), e.dims)
	}
	log.Debug().Str("provider", e.name).Int("chars", len(text)).Msg("Embedded text")
	return vec, nil
}

// NewFromConfig builds the embedder selected by cfg.Provider.
func NewFromConfig(cfg *config.LLMConfig) (Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Loaded embedding config")

	switch cfg.Provider {
	case config.ProviderOpenAI:
		embedder, err := NewOpenAIEmbedder(cfg.Key, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		return New(cfg.Provider, embedder.EmbedQuery, cfg.Dimensions), nil

	case config.ProviderOllama:
		embedder, err := NewOllamaEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return New(cfg.Provider, embedder.EmbedQuery, cfg.Dimensions), nil

	case config.ProviderOpenAICompat:
		fn := chromem.NewEmbeddingFuncOpenAICompat(strings.TrimSuffix(cfg.BaseURL, "/"), cfg.Key, cfg.Model, nil)
		return New(cfg.Provider, Func(fn), cfg.Dimensions), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// NewOpenAIEmbedder creates a langchaingo embedder backed by the OpenAI API.
func NewOpenAIEmbedder(apiKey, baseURL, embeddingModel string) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithEmbeddingModel(embeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}

// new ollama embedder
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}
