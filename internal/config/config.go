package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "RAG_"

type Config struct {
	Server      ServerConfig      `yaml:"server" koanf:"server"`
	Database    DatabaseConfig    `yaml:"database" koanf:"database"`
	EmbedLLM    LLMConfig         `yaml:"embed_llm" koanf:"embed_llm"`
	ChatLLM     LLMConfig         `yaml:"chat_llm" koanf:"chat_llm"`
	Transcriber TranscriberConfig `yaml:"transcriber" koanf:"transcriber"`
	Video       VideoConfig       `yaml:"video" koanf:"video"`
	RAG         RAGConfig         `yaml:"rag" koanf:"rag"`
	Log         LogConfig         `yaml:"log" koanf:"log"`
}

type ServerConfig struct {
	Port               int    `yaml:"port" koanf:"port"`
	AllowAllOrigins    bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	UploadDir          string `yaml:"upload_dir" koanf:"upload_dir"`
	MaxUploadMB        int64  `yaml:"max_upload_mb" koanf:"max_upload_mb"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs" koanf:"request_timeout_secs"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" koanf:"driver"`
	DSN      string `yaml:"dsn" koanf:"dsn"`
	Password string `yaml:"password" koanf:"password"`
	Debug    bool   `yaml:"debug" koanf:"debug"`
}

type LLMConfig struct {
	Provider   string `yaml:"provider" koanf:"provider"`
	BaseURL    string `yaml:"base_url" koanf:"base_url"`
	Key        string `yaml:"key" koanf:"key"`
	Model      string `yaml:"model" koanf:"model"`
	Dimensions int    `yaml:"dimensions,omitempty" koanf:"dimensions"`
}

type TranscriberConfig struct {
	BaseURL string `yaml:"base_url" koanf:"base_url"`
	Key     string `yaml:"key" koanf:"key"`
	Model   string `yaml:"model" koanf:"model"`
}

type VideoConfig struct {
	Downloader  string `yaml:"downloader" koanf:"downloader"`
	AudioFormat string `yaml:"audio_format" koanf:"audio_format"`
}

type RAGConfig struct {
	AnswerMaxTokens   int     `yaml:"answer_max_tokens" koanf:"answer_max_tokens"`
	TitleMaxTokens    int     `yaml:"title_max_tokens" koanf:"title_max_tokens"`
	TitleExcerptChars int     `yaml:"title_excerpt_chars" koanf:"title_excerpt_chars"`
	SourceWeight      float64 `yaml:"source_weight" koanf:"source_weight"`
	MaxFiles          int     `yaml:"max_files" koanf:"max_files"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Pretty bool   `yaml:"pretty" koanf:"pretty"`
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// RAG_* environment overrides (RAG_CHAT_LLM__MODEL -> chat_llm.model).
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	applyKeyFallbacks(cfg)
	return cfg, nil
}

// applyKeyFallbacks fills empty API keys from the providers' conventional
// environment variables.
func applyKeyFallbacks(cfg *Config) {
	if cfg.EmbedLLM.Key == "" {
		cfg.EmbedLLM.Key = os.Getenv(APIKeyEnvVar(cfg.EmbedLLM.Provider))
	}
	if cfg.ChatLLM.Key == "" {
		cfg.ChatLLM.Key = os.Getenv(APIKeyEnvVar(cfg.ChatLLM.Provider))
	}
	if cfg.Transcriber.Key == "" {
		cfg.Transcriber.Key = os.Getenv(APIKeyEnvVar(ProviderOpenAI))
	}
}

// APIKeyEnvVar returns the conventional environment variable holding the
// API key of a provider, or "" when the provider needs none.
func APIKeyEnvVar(provider string) string {
	switch provider {
	case ProviderOpenAI, ProviderOpenAICompat:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var (
	validDrivers        = map[string]bool{DriverPG: true, DriverPQ: true, DriverSQLite: true}
	validEmbedProviders = map[string]bool{ProviderOpenAI: true, ProviderOllama: true, ProviderOpenAICompat: true}
	validChatProviders  = map[string]bool{ProviderOpenAI: true, ProviderOllama: true, ProviderAnthropic: true}
)

// WriteDefault saves DefaultConfig to path, creating parent directories.
// An existing file is kept unless overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return DefaultConfig().Save(path)
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid database.driver %q: must be one of pg, postgres, sqlite", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if !validEmbedProviders[c.EmbedLLM.Provider] {
		return fmt.Errorf("invalid embed_llm.provider %q", c.EmbedLLM.Provider)
	}
	if c.EmbedLLM.Model == "" {
		return fmt.Errorf("embed_llm.model is required")
	}
	if c.EmbedLLM.Dimensions <= 0 {
		return fmt.Errorf("embed_llm.dimensions must be positive")
	}
	if !validChatProviders[c.ChatLLM.Provider] {
		return fmt.Errorf("invalid chat_llm.provider %q", c.ChatLLM.Provider)
	}
	if c.ChatLLM.Model == "" {
		return fmt.Errorf("chat_llm.model is required")
	}
	if c.RAG.AnswerMaxTokens <= 0 || c.RAG.TitleMaxTokens <= 0 {
		return fmt.Errorf("rag token budgets must be positive")
	}
	if c.RAG.SourceWeight <= 0 {
		return fmt.Errorf("rag.source_weight must be positive")
	}
	if c.RAG.MaxFiles <= 0 {
		return fmt.Errorf("rag.max_files must be positive")
	}
	if c.Server.UploadDir == "" {
		return fmt.Errorf("server.upload_dir is required")
	}
	return nil
}
