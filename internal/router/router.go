package router

import (
	"net/http"

	"github.com/BerylCAtieno/document-chat-api/internal/config"
	"github.com/BerylCAtieno/document-chat-api/internal/handlers"
	"github.com/BerylCAtieno/document-chat-api/internal/middleware"
	"github.com/BerylCAtieno/document-chat-api/internal/services"
	"github.com/BerylCAtieno/document-chat-api/internal/utils"

	"github.com/gorilla/mux"
)

func NewRouter(docService services.DocumentService, chatService services.ChatService, cfg *config.Config, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()
	wrap := middleware.Errors(logger)

	docHandler := handlers.NewDocumentHandler(docService, cfg.MaxFileSize(), logger)
	chatHandler := handlers.NewChatHandler(chatService, logger)

	r.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	if cfg.Debug {
		r.HandleFunc("/debug-info", handlers.DebugInfo(cfg)).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/v1").Subrouter()

	// Documents
	api.HandleFunc("/integration", wrap(docHandler.UploadDocument)).Methods(http.MethodPost)
	api.HandleFunc("/integration", wrap(docHandler.ListDocuments)).Methods(http.MethodGet)
	api.HandleFunc("/integration/{id}", wrap(docHandler.GetDocument)).Methods(http.MethodGet)
	api.HandleFunc("/integration/{id}", wrap(docHandler.ReplaceDocument)).Methods(http.MethodPut)
	api.HandleFunc("/integration/{id}", wrap(docHandler.DeleteDocument)).Methods(http.MethodDelete)

	// Chat; the fixed paths must be registered before {document_id}
	api.HandleFunc("/chat/chat_with_pdf", wrap(chatHandler.ChatWithPDF)).Methods(http.MethodPost)
	api.HandleFunc("/chat/chat_normal", wrap(chatHandler.ChatNormal)).Methods(http.MethodPost)
	api.HandleFunc("/chat/{document_id}/history", wrap(chatHandler.History)).Methods(http.MethodGet)
	api.HandleFunc("/chat/{document_id}", wrap(chatHandler.Ask)).Methods(http.MethodPost)

	var handler http.Handler = r
	handler = middleware.Logger(logger)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.CORS()(handler)

	return handler
}
