package config

const (
	DriverPG     = "pg"
	DriverPQ     = "postgres"
	DriverSQLite = "sqlite"

	ProviderOpenAI       = "openai"
	ProviderOllama       = "ollama"
	ProviderOpenAICompat = "openai-compat"
	ProviderAnthropic    = "anthropic"
)

// DefaultConfig mirrors the hosted setup: Postgres, OpenAI embeddings and
// chat, Whisper transcription.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               3002,
			UploadDir:          "uploads",
			MaxUploadMB:        64,
			RequestTimeoutSecs: 300,
		},
		Database: DatabaseConfig{
			Driver: DriverPG,
			DSN:    "postgres://postgres@localhost:5432/content?sslmode=disable",
		},
		EmbedLLM: LLMConfig{
			Provider:   ProviderOpenAI,
			BaseURL:    "https://api.openai.com/v1",
			Model:      "text-embedding-ada-002",
			Dimensions: 1536,
		},
		ChatLLM: LLMConfig{
			Provider: ProviderOpenAI,
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o",
		},
		Transcriber: TranscriberConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "whisper-1",
		},
		Video: VideoConfig{
			Downloader:  "yt-dlp",
			AudioFormat: "mp3",
		},
		RAG: RAGConfig{
			AnswerMaxTokens:   200,
			TitleMaxTokens:    32,
			TitleExcerptChars: 4000,
			SourceWeight:      0.25,
			MaxFiles:          5,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}
