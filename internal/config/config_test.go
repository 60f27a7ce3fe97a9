package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-1.5-flash", cfg.Model())
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, int64(20<<20), cfg.MaxFileSize())
	assert.Equal(t, []string{".pdf", ".docx", ".txt"}, cfg.Extensions())
	assert.Equal(t, "local", cfg.StorageBackend)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenRouter")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("MAX_FILE_SIZE_MB", "1")
	t.Setenv("ALLOWED_EXTENSIONS", "pdf, TXT")
	t.Setenv("DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.LLMProvider)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Model())
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, int64(1<<20), cfg.MaxFileSize())
	assert.Equal(t, []string{".pdf", ".txt"}, cfg.Extensions())
	assert.True(t, cfg.Debug)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "GEMINI_API_KEY=file-key\nUPLOAD_DIR=/tmp/uploads\nTIMEOUT_SECONDS=30\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.GeminiAPIKey)
	assert.Equal(t, "/tmp/uploads", cfg.UploadDir)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing gemini key",
			env:  map[string]string{},
			want: "GEMINI_API_KEY is required",
		},
		{
			name: "unknown provider",
			env:  map[string]string{"LLM_PROVIDER": "bard"},
			want: "LLM_PROVIDER must be gemini or openrouter",
		},
		{
			name: "unknown storage backend",
			env:  map[string]string{"GEMINI_API_KEY": "k", "STORAGE_BACKEND": "ftp"},
			want: "STORAGE_BACKEND must be local or s3",
		},
		{
			name: "zero retries",
			env:  map[string]string{"GEMINI_API_KEY": "k", "RETRY_ATTEMPTS": "0"},
			want: "RETRY_ATTEMPTS must be positive",
		},
		{
			name: "empty allow-list",
			env:  map[string]string{"GEMINI_API_KEY": "k", "ALLOWED_EXTENSIONS": " , "},
			want: "ALLOWED_EXTENSIONS must list at least one extension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadSkipsValidation(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/chat")

	cfg, err := Read("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/chat", cfg.DatabaseURL)
}

func TestLLMBudgetIncludesBackoff(t *testing.T) {
	cfg := &Config{RetryAttempts: 5, TimeoutSeconds: 10, RetryBackoffMS: 2000}
	// 5 attempts of 10s plus waits of 2+4+8+16s
	assert.Equal(t, 80*time.Second, cfg.LLMBudget())

	cfg = &Config{RetryAttempts: 1, TimeoutSeconds: 10, RetryBackoffMS: 2000}
	assert.Equal(t, 10*time.Second, cfg.LLMBudget())
}
