package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG_PATH", "GROQ_API_KEY", "OPENAI_API_KEY", "AI_PROVIDER", "AI_MODEL", "AI_BASE_URL", "STORAGE_DRIVER", "PORT", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaultsWhenImplicitFileMissing(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "bug_tracker.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.AI.Model != "llama-3.1-8b-instant" || cfg.AI.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("ai = %+v", cfg.AI)
	}
	if cfg.Redaction.SecretMinLength != 20 || cfg.Redaction.RedactPaths {
		t.Errorf("redaction = %+v", cfg.Redaction)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, `
server:
  port: 9090
storage:
  driver: Memory
ai:
  provider: ollama
  model: llama3.2
  timeout: 15s
redaction:
  secret_labels: ["bearer", "api[_-]?key"]
  secret_min_length: 12
  redact_paths: true
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Addr() != ":9090" {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.AI.Provider != "ollama" || cfg.AI.Timeout != 15*time.Second {
		t.Errorf("ai = %+v", cfg.AI)
	}
	if len(cfg.Redaction.SecretLabels) != 2 || cfg.Redaction.SecretMinLength != 12 || !cfg.Redaction.RedactPaths {
		t.Errorf("redaction = %+v", cfg.Redaction)
	}
	// untouched sections keep defaults
	if cfg.Server.MaxUploadBytes != 10<<20 {
		t.Errorf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", writeFile(t, "ai:\n  api_key: from-file\n"))
	t.Setenv("GROQ_API_KEY", "gsk_env")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("PORT", "7000")
	t.Setenv("AI_MODEL", "mixtral")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.APIKey != "gsk_env" || cfg.AI.Model != "mixtral" {
		t.Errorf("ai = %+v", cfg.AI)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Server.Port != 7000 {
		t.Errorf("driver=%q port=%d", cfg.Storage.Driver, cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, "storage.driver"},
		{"unknown provider", func(c *Config) { c.AI.Provider = "bard" }, "ai.provider"},
		{"zero min length", func(c *Config) { c.Redaction.SecretMinLength = 0 }, "secret_min_length"},
		{"zero upload size", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "max_upload_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	c := Default()
	c.Log.Format = "json"
	c.Log.Level = "warn"
	var buf bytes.Buffer
	log := c.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line logged at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("json output = %q", out)
	}
}

func TestOllamaDropsGroqDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("AI_PROVIDER", "ollama")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.BaseURL != "" || cfg.AI.Model != "" {
		t.Errorf("ai = %+v, want groq defaults cleared", cfg.AI)
	}
}
