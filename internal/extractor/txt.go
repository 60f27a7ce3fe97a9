package extractor

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func ExtractTXT(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty text file")
	}

	if looksBinary(data) {
		return "", fmt.Errorf("file does not appear to be valid text")
	}

	text, err := decodeText(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text file: %w", err)
	}

	text = cleanText(text)
	if text == "" {
		return "", fmt.Errorf("text file: %w", ErrNoText)
	}

	return text, nil
}

// looksBinary reports NUL bytes in the first 512 bytes of input that does
// not start with a UTF-16 byte order mark.
func looksBinary(data []byte) bool {
	if hasUTF16BOM(data) {
		return false
	}
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	return bytes.IndexByte(sample, 0) >= 0
}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))
}

func decodeText(data []byte) (string, error) {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return string(data[3:]), nil
	}

	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), data)
	}

	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder(), data)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	if text, err := decodeWith(charmap.Windows1252.NewDecoder(), data); err == nil {
		return text, nil
	}

	return decodeWith(charmap.ISO8859_1.NewDecoder(), data)
}

func decodeWith(t transform.Transformer, data []byte) (string, error) {
	decoded, _, err := transform.Bytes(t, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// cleanText normalizes line endings and drops blank lines.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")
	cleanedLines := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
