package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.1-8b-instant"
)

type Config struct {
	Server struct {
		Port           int   `yaml:"port"`
		MaxUploadBytes int64 `yaml:"max_upload_bytes"`
		RateLimit      struct {
			Capacity     int     `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Storage struct {
		Driver     string `yaml:"driver"` // sqlite, mysql, postgres, memory
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	AI struct {
		Provider  string        `yaml:"provider"` // openai, ollama
		APIKey    string        `yaml:"api_key"`
		BaseURL   string        `yaml:"base_url"`
		Model     string        `yaml:"model"`
		Timeout   time.Duration `yaml:"timeout"`
		MaxTokens int           `yaml:"max_tokens"`
	} `yaml:"ai"`

	Redaction struct {
		SecretLabels    []string `yaml:"secret_labels"`
		SecretMinLength int      `yaml:"secret_min_length"`
		RedactPaths     bool     `yaml:"redact_paths"`
	} `yaml:"redaction"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text, json
	} `yaml:"log"`
}

// Default returns the built-in configuration: SQLite in bug_tracker.db and a
// Groq-hosted llama model.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.MaxUploadBytes = 10 << 20
	c.Server.RateLimit.Capacity = 20
	c.Server.RateLimit.RefillPerSec = 0.5
	c.Server.CORSOrigins = []string{"*"}
	c.Storage.Driver = "sqlite"
	c.Storage.SQLitePath = "bug_tracker.db"
	c.Database.Host = "localhost"
	c.Database.SSLMode = "disable"
	c.Minio.BucketName = "logtriage"
	c.AI.Provider = "openai"
	c.AI.BaseURL = defaultGroqBaseURL
	c.AI.Model = defaultGroqModel
	c.AI.Timeout = 60 * time.Second
	c.AI.MaxTokens = 1024
	c.Redaction.SecretMinLength = 20
	c.Log.Level = "info"
	c.Log.Format = "text"
	return &c
}

// Load reads .env (best effort), then the YAML file at path over the
// defaults, then environment overrides. An empty path means CONFIG_PATH or
// config.yaml; only that implicit default may be absent.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv("CONFIG_PATH"))
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	if v := env("GROQ_API_KEY"); v != "" {
		c.AI.APIKey = v
	} else if v := env("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := env("AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := env("AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := env("AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := env("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := env("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "sqlite", "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	switch c.AI.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("ai.provider: unknown provider %q", c.AI.Provider)
	}
	if c.AI.Provider == "ollama" {
		// Groq defaults mean nothing to Ollama; fall back to OLLAMA_HOST and its default model
		if c.AI.BaseURL == defaultGroqBaseURL {
			c.AI.BaseURL = ""
		}
		if c.AI.Model == defaultGroqModel {
			c.AI.Model = ""
		}
	}
	if c.Redaction.SecretMinLength <= 0 {
		return fmt.Errorf("redaction.secret_min_length must be positive, got %d", c.Redaction.SecretMinLength)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Log.Level)}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
