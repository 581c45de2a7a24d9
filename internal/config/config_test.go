package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "truthlens.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadFileFillsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server_url: https://forensics.example.com
llm_provider: openai
llm_model: gpt-4o
max_upload_bytes: 1048576
allowed_origins:
  - https://app.example.com
`)

	cfg, err := LoadFile(Load(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.ServerURL != "https://forensics.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != "gpt-4o" {
		t.Errorf("LLMModel = %q", cfg.LLMModel)
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	// Fields absent from the file keep their defaults.
	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
}

func TestLoadFileEnvWins(t *testing.T) {
	t.Setenv("TRUTHLENS_SERVER_URL", "http://from-env:9000")

	path := writeConfigFile(t, "server_url: http://from-file:7000\n")

	cfg, err := LoadFile(Load(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.ServerURL != "http://from-env:9000" {
		t.Errorf("ServerURL = %q, want env value", cfg.ServerURL)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(Load(), "/nonexistent/truthlens.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a,b , c", 3},
		{"a,,b", 2},
	}

	for _, tt := range tests {
		if got := splitList(tt.in); len(got) != tt.want {
			t.Errorf("splitList(%q) = %v, want %d entries", tt.in, got, tt.want)
		}
	}
}
