package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDF returns the text of every readable page and the total page count.
func ExtractPDF(data []byte) (text string, pages int, err error) {
	// the pdf package panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n")
	}

	extractedText := strings.TrimSpace(textBuilder.String())
	if extractedText == "" {
		return "", numPages, fmt.Errorf("PDF: %w", ErrNoText)
	}

	return extractedText, numPages, nil
}
