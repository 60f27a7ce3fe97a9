package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

func GenerateID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like something GenerateID produced.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// GenerateStoredName builds the on-disk name for an upload: a random hex
// string followed by the lower-cased extension of the original filename.
func GenerateStoredName(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}
