package models

import "time"

// ChatRecord is one persisted question/answer turn about a document.
type ChatRecord struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Question   string    `json:"question" db:"question"`
	Answer     string    `json:"answer" db:"answer"`
	Model      string    `json:"model" db:"model"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type ChatRequest struct {
	DocumentID string `json:"document_id,omitempty"`
	Question   string `json:"question"`
	OnlyText   bool   `json:"only_text,omitempty"`

	// Older clients of chat_with_pdf and chat_normal send these names.
	IntegrationID string `json:"integration_id,omitempty"`
	Query         string `json:"query,omitempty"`
}

type ChatResponse struct {
	DocumentID string `json:"document_id"`
	HistoryID  string `json:"history_id"`
	Answer     string `json:"answer"`
	// Response repeats Answer on the chat_with_pdf and chat_normal routes.
	Response string `json:"response,omitempty"`
}

type HistoryResponse struct {
	DocumentID string       `json:"document_id"`
	History    []ChatRecord `json:"history"`
}
