package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/BerylCAtieno/document-chat-api/internal/middleware"
	"github.com/BerylCAtieno/document-chat-api/internal/models"
	"github.com/BerylCAtieno/document-chat-api/internal/services"
	"github.com/BerylCAtieno/document-chat-api/internal/utils"
	"github.com/gorilla/mux"
)

const maxChatBody = 1 << 20

type ChatHandler struct {
	service services.ChatService
	logger  *utils.Logger
}

func NewChatHandler(service services.ChatService, logger *utils.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// Ask handles POST /v1/chat/{document_id}.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) error {
	req, err := decodeChatRequest(w, r, false)
	if err != nil {
		return err
	}

	return h.ask(w, r, mux.Vars(r)["document_id"], req, false)
}

// ChatWithPDF takes the document id in the body and answers with the
// document content in the prompt.
func (h *ChatHandler) ChatWithPDF(w http.ResponseWriter, r *http.Request) error {
	req, err := decodeChatRequest(w, r, true)
	if err != nil {
		return err
	}
	req.OnlyText = false

	return h.ask(w, r, req.DocumentID, req, true)
}

// ChatNormal is ChatWithPDF without the document content.
func (h *ChatHandler) ChatNormal(w http.ResponseWriter, r *http.Request) error {
	req, err := decodeChatRequest(w, r, true)
	if err != nil {
		return err
	}
	req.OnlyText = true

	return h.ask(w, r, req.DocumentID, req, true)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["document_id"]
	if id == "" {
		return utils.NewValidationError("Document ID is required")
	}

	resp, err := h.service.History(r.Context(), id)
	if err != nil {
		return err
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *ChatHandler) ask(w http.ResponseWriter, r *http.Request, documentID string, req *models.ChatRequest, legacy bool) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return utils.NewValidationError("Document ID is required")
	}

	resp, err := h.service.Ask(r.Context(), documentID, req)
	if err != nil {
		return err
	}
	if legacy {
		resp.Response = resp.Answer
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// decodeChatRequest reads the JSON body. With legacy set, integration_id
// and query stand in for document_id and question.
func decodeChatRequest(w http.ResponseWriter, r *http.Request, legacy bool) (*models.ChatRequest, error) {
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		return nil, utils.NewValidationError("Invalid request body")
	}
	if legacy {
		if req.DocumentID == "" {
			req.DocumentID = req.IntegrationID
		}
		if strings.TrimSpace(req.Question) == "" {
			req.Question = req.Query
		}
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, utils.NewValidationError("Question is required")
	}
	return &req, nil
}
