package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/BerylCAtieno/document-chat-api/internal/middleware"
	"github.com/BerylCAtieno/document-chat-api/internal/models"
	"github.com/BerylCAtieno/document-chat-api/internal/services"
	"github.com/BerylCAtieno/document-chat-api/internal/utils"
	"github.com/gorilla/mux"
)

// multipartOverhead is allowed on top of the file size for form boundaries
// and headers.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	service     services.DocumentService
	logger      *utils.Logger
	maxFileSize int64
}

func NewDocumentHandler(service services.DocumentService, maxFileSize int64, logger *utils.Logger) *DocumentHandler {
	return &DocumentHandler{
		service:     service,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) error {
	req, err := h.readUpload(w, r)
	if err != nil {
		return err
	}

	resp, err := h.service.UploadDocument(r.Context(), req)
	if err != nil {
		return err
	}

	middleware.WriteJSON(w, http.StatusCreated, resp)
	return nil
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) error {
	limit, err := parseUintQuery(r, "limit")
	if err != nil {
		return err
	}
	offset, err := parseUintQuery(r, "offset")
	if err != nil {
		return err
	}

	resp, err := h.service.ListDocuments(r.Context(), models.ListDocumentsRequest{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["id"]
	if id == "" {
		return utils.NewValidationError("Document ID is required")
	}

	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		return err
	}

	middleware.WriteJSON(w, http.StatusOK, doc)
	return nil
}

func (h *DocumentHandler) ReplaceDocument(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["id"]
	if id == "" {
		return utils.NewValidationError("Document ID is required")
	}

	req, err := h.readUpload(w, r)
	if err != nil {
		return err
	}

	doc, err := h.service.ReplaceDocument(r.Context(), id, req)
	if err != nil {
		return err
	}

	middleware.WriteJSON(w, http.StatusOK, doc)
	return nil
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["id"]
	if id == "" {
		return utils.NewValidationError("Document ID is required")
	}

	if err := h.service.DeleteDocument(r.Context(), id); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// readUpload pulls the "file" part out of a multipart request. Size and
// type checks beyond the transport limit are left to the service.
func (h *DocumentHandler) readUpload(w http.ResponseWriter, r *http.Request) (*models.UploadRequest, error) {
	tooLarge := utils.NewValidationError(fmt.Sprintf("File size exceeds %dMB limit", h.maxFileSize>>20))

	if r.ContentLength > h.maxFileSize+multipartOverhead {
		return nil, tooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge
		}
		return nil, utils.NewValidationError("Invalid form data")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, utils.NewValidationError("No file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.logger.Error("Failed to read uploaded file", "error", err, "filename", header.Filename)
		return nil, utils.NewValidationError("Failed to read uploaded file")
	}

	h.logger.Debug("File received",
		"filename", header.Filename,
		"reported_content_type", header.Header.Get("Content-Type"),
		"size", len(data))

	return &models.UploadRequest{
		File:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

func parseUintQuery(r *http.Request, key string) (uint, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, utils.NewValidationError(fmt.Sprintf("Query parameter '%s' must be a non-negative integer", key))
	}
	return uint(v), nil
}
