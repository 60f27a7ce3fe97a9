package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BerylCAtieno/document-chat-api/internal/utils"
)

// HandlerFunc is an HTTP handler that reports failure by returning an error
// instead of writing the response itself.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Errors adapts HandlerFunc to net/http. A returned *utils.AppError becomes
// {"error": message} with its status code; anything else is a 500 with a
// generic message.
func Errors(logger *utils.Logger) func(HandlerFunc) http.HandlerFunc {
	return func(next HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			err := next(w, r)
			if err == nil {
				return
			}

			status := http.StatusInternalServerError
			message := "Internal server error"

			var appErr *utils.AppError
			if errors.As(err, &appErr) {
				status = appErr.StatusCode
				message = appErr.Message
			}

			fields := []interface{}{
				"status", status,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", RequestIDFrom(r.Context()),
				"error", err,
			}
			if status >= http.StatusInternalServerError {
				logger.Error("Request failed", fields...)
			} else {
				logger.Warn("Request rejected", fields...)
			}

			WriteJSON(w, status, map[string]string{"error": message})
		}
	}
}

// WriteJSON writes data as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}
