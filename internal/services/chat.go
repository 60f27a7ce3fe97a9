package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BerylCAtieno/document-chat-api/internal/config"
	"github.com/BerylCAtieno/document-chat-api/internal/extractor"
	"github.com/BerylCAtieno/document-chat-api/internal/llm"
	"github.com/BerylCAtieno/document-chat-api/internal/models"
	"github.com/BerylCAtieno/document-chat-api/internal/repository"
	"github.com/BerylCAtieno/document-chat-api/internal/storage"
	"github.com/BerylCAtieno/document-chat-api/internal/utils"
)

type ChatService interface {
	Ask(ctx context.Context, documentID string, req *models.ChatRequest) (*models.ChatResponse, error)
	History(ctx context.Context, documentID string) (*models.HistoryResponse, error)
}

type chatService struct {
	repo           repository.Repository
	storage        storage.Storage
	llm            llm.Generator
	logger         *utils.Logger
	maxPromptChars int
}

// NewChatService takes the generator used for answers, normally an
// *llm.Client so that calls are retried.
func NewChatService(repo repository.Repository, store storage.Storage, gen llm.Generator, cfg *config.Config, logger *utils.Logger) ChatService {
	return &chatService{
		repo:           repo,
		storage:        store,
		llm:            gen,
		logger:         logger,
		maxPromptChars: cfg.MaxPromptChars,
	}
}

// Ask answers a question about a document and appends the turn to its
// history. The provider call happens outside any transaction; the document
// is looked up again before the turn is written.
func (s *chatService) Ask(ctx context.Context, documentID string, req *models.ChatRequest) (*models.ChatResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, utils.NewValidationError("Question is required")
	}
	if !utils.ValidID(documentID) {
		return nil, utils.NewNotFoundError("Document not found")
	}

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		s.logger.Error("Failed to get document", "error", err, "document_id", documentID)
		return nil, utils.NewPersistenceError("Failed to retrieve document", err)
	}
	if doc == nil {
		return nil, utils.NewNotFoundError("Document not found")
	}

	var content string
	if !req.OnlyText {
		content, err = s.documentText(ctx, doc)
		if err != nil {
			return nil, err
		}
	}

	history, err := s.repo.ListHistory(ctx, documentID)
	if err != nil {
		s.logger.Error("Failed to load chat history", "error", err, "document_id", documentID)
		return nil, utils.NewPersistenceError("Failed to load chat history", err)
	}

	prompt := llm.BuildPrompt(llm.PromptInput{
		Content:         content,
		History:         history,
		Question:        question,
		OnlyText:        req.OnlyText,
		MaxContentChars: s.maxPromptChars,
	})

	s.logger.Debug("Sending prompt", "document_id", documentID, "prompt_length", len(prompt), "history_turns", len(history))

	answer, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("Failed to generate answer", "error", err, "document_id", documentID)
		return nil, llmAppError(err)
	}

	record := &models.ChatRecord{
		ID:         utils.GenerateID(),
		DocumentID: documentID,
		Question:   question,
		Answer:     answer,
		Model:      s.llm.Model(),
		CreatedAt:  time.Now().UTC(),
	}

	err = s.repo.WithTx(ctx, func(tx repository.Repository) error {
		current, err := tx.GetByID(ctx, documentID)
		if err != nil {
			return utils.NewPersistenceError("Failed to retrieve document", err)
		}
		if current == nil {
			return utils.NewNotFoundError("Document not found")
		}
		if err := tx.CreateChatRecord(ctx, record); err != nil {
			return utils.NewPersistenceError("Failed to save chat history", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record chat turn", "error", err, "document_id", documentID)
		return nil, err
	}

	s.logger.Info("Question answered",
		"document_id", documentID,
		"history_id", record.ID,
		"only_text", req.OnlyText,
		"answer_length", len(answer))

	return &models.ChatResponse{
		DocumentID: documentID,
		HistoryID:  record.ID,
		Answer:     answer,
	}, nil
}

func (s *chatService) History(ctx context.Context, documentID string) (*models.HistoryResponse, error) {
	if !utils.ValidID(documentID) {
		return nil, utils.NewNotFoundError("Document not found")
	}

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		s.logger.Error("Failed to get document", "error", err, "document_id", documentID)
		return nil, utils.NewPersistenceError("Failed to retrieve document", err)
	}
	if doc == nil {
		return nil, utils.NewNotFoundError("Document not found")
	}

	records, err := s.repo.ListHistory(ctx, documentID)
	if err != nil {
		s.logger.Error("Failed to load chat history", "error", err, "document_id", documentID)
		return nil, utils.NewPersistenceError("Failed to load chat history", err)
	}

	return &models.HistoryResponse{DocumentID: documentID, History: records}, nil
}

func (s *chatService) documentText(ctx context.Context, doc *models.Document) (string, error) {
	data, err := s.storage.Download(ctx, doc.StoredPath)
	if err != nil {
		s.logger.Error("Failed to read stored file", "error", err, "document_id", doc.ID, "stored_path", doc.StoredPath)
		return "", utils.NewStorageError("Failed to read document file", err)
	}

	extracted, err := extractor.Extract(data, doc.StoredPath)
	if err != nil {
		s.logger.Error("Failed to extract text", "error", err, "document_id", doc.ID)
		return "", utils.NewStorageError("Failed to read document content", err)
	}

	return extracted.Text, nil
}

func llmAppError(err error) error {
	switch {
	case errors.Is(err, llm.ErrRetriesExhausted):
		return utils.NewLLMUnavailableError("AI service is temporarily unavailable, please try again later", err)
	case errors.Is(err, llm.ErrNotConfigured):
		return utils.NewLLMUnavailableError("AI service is not configured", err)
	default:
		return utils.NewLLMError("Failed to get a response from the AI model", err)
	}
}
