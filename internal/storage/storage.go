package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BerylCAtieno/document-chat-api/internal/config"
)

var ErrNotFound = errors.New("object not found")

// Object describes a stored file.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

type Storage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Object, error)
}

// New builds the backend selected by STORAGE_BACKEND.
func New(cfg *config.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case "s3":
		return NewS3Storage(cfg)
	case "local", "":
		return NewLocalStorage(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// validateKey rejects keys that could escape the storage root.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return fmt.Errorf("invalid storage key %q", key)
	}
	if strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
