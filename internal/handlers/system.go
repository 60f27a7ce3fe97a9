package handlers

import (
	"net/http"
	"runtime"

	"github.com/BerylCAtieno/document-chat-api/internal/config"
	"github.com/BerylCAtieno/document-chat-api/internal/db"
	"github.com/BerylCAtieno/document-chat-api/internal/middleware"
)

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// DebugInfo reports non-secret runtime settings.
func DebugInfo(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"debug":              cfg.Debug,
			"log_level":          cfg.LogLevel,
			"database_driver":    db.DriverName(cfg.DatabaseURL),
			"storage_backend":    cfg.StorageBackend,
			"max_file_size_mb":   cfg.MaxFileSizeMB,
			"allowed_extensions": cfg.Extensions(),
			"llm_provider":       cfg.LLMProvider,
			"model":              cfg.Model(),
			"retry_attempts":     cfg.RetryAttempts,
			"timeout_seconds":    cfg.TimeoutSeconds,
			"go_version":         runtime.Version(),
		})
	}
}
