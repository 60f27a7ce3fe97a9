package middleware

import (
	"net/http"

	"github.com/BerylCAtieno/document-chat-api/internal/utils"
	"github.com/gorilla/handlers"
)

func CORS() func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", RequestIDHeader}),
		handlers.ExposedHeaders([]string{RequestIDHeader}),
	)
}

// Recovery turns a panic into a bare 500 and logs it.
func Recovery(logger *utils.Logger) func(http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger),
		handlers.PrintRecoveryStack(true),
	)
}
