package models

import (
	"time"
)

type Document struct {
	ID          string    `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"`
	StoredPath  string    `json:"stored_path" db:"stored_path"`
	ContentType string    `json:"content_type" db:"content_type"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	PageCount   int       `json:"page_count" db:"page_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type UploadRequest struct {
	File        []byte
	Filename    string
	ContentType string
}

type UploadResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	PageCount   int       `json:"page_count"`
	CreatedAt   time.Time `json:"created_at"`
	Message     string    `json:"message"`
}

type ListDocumentsRequest struct {
	Limit  uint
	Offset uint
}

type ListDocumentsResponse struct {
	Documents []Document `json:"documents"`
	Limit     uint       `json:"limit"`
	Offset    uint       `json:"offset"`
}
