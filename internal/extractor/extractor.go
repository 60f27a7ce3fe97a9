package extractor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoText          = errors.New("no text could be extracted")
)

// Result is the plain text of a document plus its page count.
type Result struct {
	Text      string
	PageCount int
}

// Extract dispatches on the extension of filename.
func Extract(data []byte, filename string) (*Result, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		text, pages, err := ExtractPDF(data)
		if err != nil {
			return nil, err
		}
		return &Result{Text: text, PageCount: pages}, nil
	case ".docx":
		text, pages, err := ExtractDOCX(data)
		if err != nil {
			return nil, err
		}
		return &Result{Text: text, PageCount: pages}, nil
	case ".txt", ".md":
		text, err := ExtractTXT(data)
		if err != nil {
			return nil, err
		}
		return &Result{Text: text, PageCount: 1}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}
