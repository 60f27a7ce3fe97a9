package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BerylCAtieno/document-chat-api/internal/config"
	"github.com/BerylCAtieno/document-chat-api/internal/extractor"
	"github.com/BerylCAtieno/document-chat-api/internal/models"
	"github.com/BerylCAtieno/document-chat-api/internal/repository"
	"github.com/BerylCAtieno/document-chat-api/internal/storage"
	"github.com/BerylCAtieno/document-chat-api/internal/utils"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type DocumentService interface {
	UploadDocument(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, req models.ListDocumentsRequest) (*models.ListDocumentsResponse, error)
	ReplaceDocument(ctx context.Context, id string, req *models.UploadRequest) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

type documentService struct {
	repo        repository.Repository
	storage     storage.Storage
	logger      *utils.Logger
	maxFileSize int64
	maxSizeMB   int
	extensions  []string
}

func NewDocumentService(repo repository.Repository, store storage.Storage, cfg *config.Config, logger *utils.Logger) DocumentService {
	return &documentService{
		repo:        repo,
		storage:     store,
		logger:      logger,
		maxFileSize: cfg.MaxFileSize(),
		maxSizeMB:   cfg.MaxFileSizeMB,
		extensions:  cfg.Extensions(),
	}
}

func (s *documentService) UploadDocument(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	extracted, err := s.validateUpload(req)
	if err != nil {
		return nil, err
	}

	storedName := utils.GenerateStoredName(req.Filename)
	contentType := normalizeContentType(req.Filename, req.ContentType)

	if err := s.storage.Upload(ctx, storedName, req.File, contentType); err != nil {
		s.logger.Error("Failed to store file", "error", err, "stored_path", storedName)
		return nil, utils.NewStorageError("Failed to store document", err)
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:          utils.GenerateID(),
		Filename:    req.Filename,
		StoredPath:  storedName,
		ContentType: contentType,
		FileSize:    int64(len(req.File)),
		PageCount:   extracted.PageCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.repo.WithTx(ctx, func(tx repository.Repository) error {
		return tx.Create(ctx, doc)
	})
	if err != nil {
		s.logger.Error("Failed to save document metadata", "error", err, "id", doc.ID)
		s.removeFile(ctx, storedName)
		return nil, utils.NewPersistenceError("Failed to save document metadata", err)
	}

	s.logger.Info("Document uploaded",
		"id", doc.ID,
		"filename", doc.Filename,
		"file_size", doc.FileSize,
		"page_count", doc.PageCount,
		"text_length", len(extracted.Text))

	return &models.UploadResponse{
		ID:          doc.ID,
		Filename:    doc.Filename,
		FileSize:    doc.FileSize,
		ContentType: doc.ContentType,
		PageCount:   doc.PageCount,
		CreatedAt:   doc.CreatedAt,
		Message:     "Document uploaded successfully",
	}, nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	if !utils.ValidID(id) {
		return nil, utils.NewNotFoundError("Document not found")
	}

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get document", "error", err, "id", id)
		return nil, utils.NewPersistenceError("Failed to retrieve document", err)
	}
	if doc == nil {
		return nil, utils.NewNotFoundError("Document not found")
	}

	return doc, nil
}

func (s *documentService) ListDocuments(ctx context.Context, req models.ListDocumentsRequest) (*models.ListDocumentsResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	docs, err := s.repo.List(ctx, limit, req.Offset)
	if err != nil {
		s.logger.Error("Failed to list documents", "error", err)
		return nil, utils.NewPersistenceError("Failed to list documents", err)
	}

	return &models.ListDocumentsResponse{
		Documents: docs,
		Limit:     limit,
		Offset:    req.Offset,
	}, nil
}

// ReplaceDocument swaps the file behind an existing record. The new bytes
// are written under a fresh name; the previous file is removed only once
// the record points at the new one, so a failed update leaves the document
// as it was.
func (s *documentService) ReplaceDocument(ctx context.Context, id string, req *models.UploadRequest) (*models.Document, error) {
	if _, err := s.GetDocument(ctx, id); err != nil {
		return nil, err
	}

	extracted, err := s.validateUpload(req)
	if err != nil {
		return nil, err
	}

	storedName := utils.GenerateStoredName(req.Filename)
	contentType := normalizeContentType(req.Filename, req.ContentType)

	if err := s.storage.Upload(ctx, storedName, req.File, contentType); err != nil {
		s.logger.Error("Failed to store replacement file", "error", err, "id", id)
		return nil, utils.NewStorageError("Failed to store document", err)
	}

	var previousPath string
	var updated *models.Document
	err = s.repo.WithTx(ctx, func(tx repository.Repository) error {
		doc, err := tx.GetByID(ctx, id)
		if err != nil {
			return utils.NewPersistenceError("Failed to retrieve document", err)
		}
		if doc == nil {
			return utils.NewNotFoundError("Document not found")
		}

		previousPath = doc.StoredPath
		doc.Filename = req.Filename
		doc.StoredPath = storedName
		doc.ContentType = contentType
		doc.FileSize = int64(len(req.File))
		doc.PageCount = extracted.PageCount

		if err := tx.Update(ctx, doc); err != nil {
			return utils.NewPersistenceError("Failed to update document metadata", err)
		}
		updated = doc
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to replace document", "error", err, "id", id)
		s.removeFile(ctx, storedName)
		return nil, err
	}

	s.removeFile(ctx, previousPath)
	s.logger.Info("Document replaced", "id", id, "filename", updated.Filename, "file_size", updated.FileSize)

	return updated, nil
}

// DeleteDocument removes the record with its chat history, then the file.
func (s *documentService) DeleteDocument(ctx context.Context, id string) error {
	if !utils.ValidID(id) {
		return utils.NewNotFoundError("Document not found")
	}

	var storedPath string
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		doc, err := tx.GetByID(ctx, id)
		if err != nil {
			return utils.NewPersistenceError("Failed to retrieve document", err)
		}
		if doc == nil {
			return utils.NewNotFoundError("Document not found")
		}
		storedPath = doc.StoredPath

		if _, err := tx.Delete(ctx, id); err != nil {
			return utils.NewPersistenceError("Failed to delete document", err)
		}
		return nil
	})
	if err != nil {
		if !utils.IsNotFound(err) {
			s.logger.Error("Failed to delete document", "error", err, "id", id)
		}
		return err
	}

	s.removeFile(ctx, storedPath)
	s.logger.Info("Document deleted", "id", id)

	return nil
}

// validateUpload runs every check that must pass before anything is
// written and returns the extracted text.
func (s *documentService) validateUpload(req *models.UploadRequest) (*extractor.Result, error) {
	if req == nil || len(req.File) == 0 {
		return nil, utils.NewValidationError("Uploaded file is empty")
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, utils.NewValidationError("Filename is required")
	}
	if int64(len(req.File)) > s.maxFileSize {
		return nil, utils.NewValidationError(fmt.Sprintf("File size exceeds %dMB limit", s.maxSizeMB))
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !slices.Contains(s.extensions, ext) {
		return nil, utils.NewValidationError(fmt.Sprintf("Unsupported file type '%s'. Allowed: %s", ext, strings.Join(s.extensions, ", ")))
	}

	extracted, err := extractor.Extract(req.File, req.Filename)
	if err != nil {
		s.logger.Warn("Failed to extract text", "error", err, "filename", req.Filename)
		if errors.Is(err, extractor.ErrUnsupportedType) {
			return nil, utils.NewValidationError(fmt.Sprintf("Unsupported file type '%s'", ext))
		}
		return nil, utils.NewValidationError("No text could be extracted from the document. The file may be empty or corrupted")
	}

	return extracted, nil
}

// removeFile is best effort; anything left behind is picked up by the
// orphan sweeper.
func (s *documentService) removeFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("Failed to remove stored file", "error", err, "stored_path", key)
	}
}

// normalizeContentType derives the MIME type from the extension, falling
// back to what the client sent.
func normalizeContentType(filename, contentType string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	}
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
