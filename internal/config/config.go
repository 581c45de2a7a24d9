package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LLMProvider selects the backend for the verdict agent.
type LLMProvider string

const (
	ProviderOllama    LLMProvider = "ollama"
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
)

// Config holds all configuration values for the CLI and the server.
type Config struct {
	// Client
	ServerURL string `yaml:"server_url"`

	// Server
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`

	// Verdict agent
	LLMProvider     LLMProvider `yaml:"llm_provider"`
	LLMModel        string      `yaml:"llm_model"`
	OllamaHost      string      `yaml:"ollama_host"`
	OpenAIAPIKey    string      `yaml:"-"`
	OpenAIBaseURL   string      `yaml:"openai_base_url"`
	AnthropicAPIKey string      `yaml:"-"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		ServerURL: getEnv("TRUTHLENS_SERVER_URL", "http://localhost:8000"),

		ListenAddr:     getEnv("TRUTHLENS_LISTEN_ADDR", ":8000"),
		AllowedOrigins: splitList(getEnv("TRUTHLENS_ALLOWED_ORIGINS", "http://localhost:3000")),
		MaxUploadBytes: 64 << 20,

		LLMProvider:     LLMProvider(getEnv("TRUTHLENS_LLM_PROVIDER", string(ProviderOllama))),
		LLMModel:        getEnv("TRUTHLENS_LLM_MODEL", "llama3.3"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		LogFile:  getEnv("TRUTHLENS_LOG_FILE", "/tmp/truthlens.log"),
		LogLevel: parseLogLevel(getEnv("TRUTHLENS_LOG_LEVEL", "INFO")),
	}
}

// LoadFile overlays values from a YAML config file onto cfg.
// Environment variables win: the file only fills fields still at their default.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	defaults := Load()
	merge := func(dst *string, fileVal, defaultVal string) {
		if *dst == defaultVal && fileVal != "" {
			*dst = fileVal
		}
	}
	merge(&cfg.ServerURL, file.ServerURL, defaults.ServerURL)
	merge(&cfg.ListenAddr, file.ListenAddr, defaults.ListenAddr)
	merge(&cfg.LLMModel, file.LLMModel, defaults.LLMModel)
	merge(&cfg.OllamaHost, file.OllamaHost, defaults.OllamaHost)
	merge(&cfg.OpenAIBaseURL, file.OpenAIBaseURL, defaults.OpenAIBaseURL)
	merge(&cfg.LogFile, file.LogFile, defaults.LogFile)
	if cfg.LLMProvider == defaults.LLMProvider && file.LLMProvider != "" {
		cfg.LLMProvider = file.LLMProvider
	}
	if len(file.AllowedOrigins) > 0 && equalList(cfg.AllowedOrigins, defaults.AllowedOrigins) {
		cfg.AllowedOrigins = file.AllowedOrigins
	}
	if file.MaxUploadBytes > 0 && cfg.MaxUploadBytes == defaults.MaxUploadBytes {
		cfg.MaxUploadBytes = file.MaxUploadBytes
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func equalList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
