package transcriber

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"content-rag/internal/config"
	"content-rag/internal/models"
)

// Whisper transcribes audio files through an OpenAI-compatible
// /audio/transcriptions endpoint.
type Whisper struct {
	client *openai.Client
	model  string
}

func NewWhisper(cfg *config.TranscriberConfig) *Whisper {
	clientCfg := openai.DefaultConfig(cfg.Key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Whisper{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Extract returns the transcript of the audio file at path.
func (w *Whisper) Extract(ctx context.Context, path string, kind models.MediaKind) (string, error) {
	if kind != models.KindAudio {
		return "", &models.UnsupportedMediaError{MediaType: string(kind)}
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
	})
	if err != nil {
		return "", &models.ExtractionError{Kind: kind, Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &models.ExtractionError{Kind: kind}
	}
	log.Debug().Str("model", w.model).Int("chars", len(text)).Msg("Transcribed audio")
	return text, nil
}
