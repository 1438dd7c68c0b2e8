package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PlainTextStrategy walks the page tree and concatenates each page's text
// in content-stream order. Fast, but loses visual ordering on pages with
// complex layouts.
type PlainTextStrategy struct{}

func (s *PlainTextStrategy) Name() string { return "plaintext" }

func (s *PlainTextStrategy) Extract(data []byte, pages []int) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	for _, num := range selectPages(pages, reader.NumPage()) {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Image-only or broken pages are skipped, not fatal.
			continue
		}
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}
