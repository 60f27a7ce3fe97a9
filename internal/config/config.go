package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	Debug       bool   `mapstructure:"DEBUG"`

	// Storage
	StorageBackend    string `mapstructure:"STORAGE_BACKEND"`
	UploadDir         string `mapstructure:"UPLOAD_DIR"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3BucketName      string `mapstructure:"S3_BUCKET_NAME"`
	S3UseSSL          bool   `mapstructure:"S3_USE_SSL"`

	// Upload limits
	MaxFileSizeMB     int    `mapstructure:"MAX_FILE_SIZE_MB"`
	AllowedExtensions string `mapstructure:"ALLOWED_EXTENSIONS"`

	// LLM
	LLMProvider      string `mapstructure:"LLM_PROVIDER"`
	GeminiAPIKey     string `mapstructure:"GEMINI_API_KEY"`
	AIModelName      string `mapstructure:"AI_MODEL_NAME"`
	OpenRouterAPIKey string `mapstructure:"OPENROUTER_API_KEY"`
	OpenRouterModel  string `mapstructure:"OPENROUTER_MODEL"`
	RetryAttempts    int    `mapstructure:"RETRY_ATTEMPTS"`
	TimeoutSeconds   int    `mapstructure:"TIMEOUT_SECONDS"`
	RetryBackoffMS   int    `mapstructure:"RETRY_BACKOFF_MS"`
	MaxPromptChars   int    `mapstructure:"MAX_PROMPT_CHARS"`

	// Orphan sweeper
	OrphanSweepSchedule string `mapstructure:"ORPHAN_SWEEP_SCHEDULE"`
	OrphanGraceMinutes  int    `mapstructure:"ORPHAN_GRACE_MINUTES"`
}

var defaults = map[string]any{
	"PORT":                  "8080",
	"DATABASE_URL":          "data/pdf_chat.db",
	"LOG_LEVEL":             "info",
	"DEBUG":                 false,
	"STORAGE_BACKEND":       "local",
	"UPLOAD_DIR":            "uploads/pdf_files",
	"S3_ENDPOINT":           "localhost:9000",
	"S3_ACCESS_KEY_ID":      "minioadmin",
	"S3_SECRET_ACCESS_KEY":  "minioadmin",
	"S3_BUCKET_NAME":        "documents",
	"S3_USE_SSL":            false,
	"MAX_FILE_SIZE_MB":      20,
	"ALLOWED_EXTENSIONS":    ".pdf,.docx,.txt",
	"LLM_PROVIDER":          "gemini",
	"GEMINI_API_KEY":        "",
	"AI_MODEL_NAME":         "gemini-1.5-flash",
	"OPENROUTER_API_KEY":    "",
	"OPENROUTER_MODEL":      "openai/gpt-4o-mini",
	"RETRY_ATTEMPTS":        3,
	"TIMEOUT_SECONDS":       10,
	"RETRY_BACKOFF_MS":      2000,
	"MAX_PROMPT_CHARS":      30000,
	"ORPHAN_SWEEP_SCHEDULE": "",
	"ORPHAN_GRACE_MINUTES":  60,
}

// Load reads configuration from the environment, layered over envFile when
// that file exists, and validates it. An empty envFile skips the file.
func Load(envFile string) (*Config, error) {
	cfg, err := Read(envFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read is Load without validation, for commands that only need part of
// the configuration.
func Read(envFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		}
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case "openrouter":
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be gemini or openrouter, got %q", c.LLMProvider)
	}

	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case "local":
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for local storage")
		}
	case "s3":
		if c.S3Endpoint == "" || c.S3BucketName == "" {
			return fmt.Errorf("S3_ENDPOINT and S3_BUCKET_NAME are required for s3 storage")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be local or s3, got %q", c.StorageBackend)
	}

	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("RETRY_ATTEMPTS must be positive")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("TIMEOUT_SECONDS must be positive")
	}
	if c.RetryBackoffMS < 0 {
		return fmt.Errorf("RETRY_BACKOFF_MS must not be negative")
	}
	if len(c.Extensions()) == 0 {
		return fmt.Errorf("ALLOWED_EXTENSIONS must list at least one extension")
	}

	return nil
}

func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// LLMBudget is the longest a retried LLM call can take: every attempt
// timing out plus the doubling waits between them.
func (c *Config) LLMBudget() time.Duration {
	if c.RetryAttempts < 1 {
		return c.Timeout()
	}
	waits := time.Duration(1<<(c.RetryAttempts-1)-1) * c.RetryBackoff()
	return time.Duration(c.RetryAttempts)*c.Timeout() + waits
}

func (c *Config) OrphanGrace() time.Duration {
	return time.Duration(c.OrphanGraceMinutes) * time.Minute
}

// Extensions returns the normalized allow-list, e.g. [".pdf", ".txt"].
func (c *Config) Extensions() []string {
	var exts []string
	for _, part := range strings.Split(c.AllowedExtensions, ",") {
		ext := strings.ToLower(strings.TrimSpace(part))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}

// Model is the model name of the configured provider.
func (c *Config) Model() string {
	if c.LLMProvider == "openrouter" {
		return c.OpenRouterModel
	}
	return c.AIModelName
}
