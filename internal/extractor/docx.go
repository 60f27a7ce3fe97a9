package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type wordDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    wordBody `xml:"body"`
}

type wordBody struct {
	Paragraphs []wordParagraph `xml:"p"`
}

type wordParagraph struct {
	Runs []wordRun `xml:"r"`
}

type wordRun struct {
	Text []string `xml:"t"`
}

// appProperties is docProps/app.xml, where Word records the page count.
type appProperties struct {
	Pages int `xml:"Pages"`
}

// ExtractDOCX reads word/document.xml out of the archive. The page count
// comes from docProps/app.xml and defaults to 1.
func ExtractDOCX(data []byte) (string, int, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to read DOCX as ZIP: %w", err)
	}

	xmlData, err := readZipEntry(zipReader, "word/document.xml")
	if err != nil {
		return "", 0, err
	}
	if xmlData == nil {
		return "", 0, fmt.Errorf("document.xml not found in DOCX")
	}

	var doc wordDocument
	if err := xml.Unmarshal(xmlData, &doc); err != nil {
		return "", 0, fmt.Errorf("failed to parse document.xml: %w", err)
	}

	var textBuilder strings.Builder
	for _, para := range doc.Body.Paragraphs {
		for _, run := range para.Runs {
			for _, t := range run.Text {
				textBuilder.WriteString(t)
			}
		}
		textBuilder.WriteString("\n")
	}

	extractedText := strings.TrimSpace(textBuilder.String())
	if extractedText == "" {
		return "", 0, fmt.Errorf("DOCX: %w", ErrNoText)
	}

	pages := 1
	if appData, err := readZipEntry(zipReader, "docProps/app.xml"); err == nil && appData != nil {
		var props appProperties
		if xml.Unmarshal(appData, &props) == nil && props.Pages > 0 {
			pages = props.Pages
		}
	}

	return extractedText, pages, nil
}

// readZipEntry returns nil, nil when name is not in the archive.
func readZipEntry(zipReader *zip.Reader, name string) ([]byte, error) {
	for _, file := range zipReader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}
