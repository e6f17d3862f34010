package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"content-rag/internal/config"
	"content-rag/internal/models"
)

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = errors.New("empty completion")

// Request is a single two-role completion.
type Request struct {
	System    string
	User      string
	MaxTokens int
}

// Client turns a request into generated text. Calls are never retried.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewFromConfig builds the completion client selected by cfg.Provider.
func NewFromConfig(cfg *config.LLMConfig) (Client, error) {
	log.Debug().Interface("config", map[string]string{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
	}).Msg("Loaded chat config")

	switch cfg.Provider {
	case config.ProviderOpenAI:
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("initializing openai client: %w", err)
		}
		return NewLangchainClient(cfg.Provider, llm), nil

	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("initializing ollama client: %w", err)
		}
		return NewLangchainClient(cfg.Provider, llm), nil

	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg), nil

	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", cfg.Provider)
	}
}

type langchainClient struct {
	name string
	llm  llms.Model
}

// NewLangchainClient adapts any langchaingo model.
func NewLangchainClient(name string, llm llms.Model) Client {
	return &langchainClient{name: name, llm: llm}
}

func (c *langchainClient) Complete(ctx context.Context, req Request) (string, error) {
	log.Debug().Str("provider", c.name).Int("max_tokens", req.MaxTokens).Msg("Generating content")

	msgContent := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}

	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	res, err := c.llm.GenerateContent(ctx, msgContent, opts...)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return cleanResponse(res.Choices[0].Content)
}

// The messages API requires an explicit output budget.
const defaultAnthropicMaxTokens = 1024

type anthropicClient struct {
	client anthropic.Client
	model  string
}

func NewAnthropicClient(cfg *config.LLMConfig) Client {
	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(cfg.Key),
		anthropicopt.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicClient{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	log.Debug().Str("provider", config.ProviderAnthropic).Int("max_tokens", req.MaxTokens).Msg("Generating content")

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	rsp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	return cleanResponse(b.String())
}

var thinkRe = regexp.MustCompile(models.ThinkTag)

// cleanResponse drops reasoning blocks some models emit before the answer.
func cleanResponse(s string) (string, error) {
	s = strings.TrimSpace(thinkRe.ReplaceAllString(s, ""))
	if s == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}
