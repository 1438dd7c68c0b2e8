package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LayoutStrategy reads text grouped into visual rows, top to bottom. Slower
// than the plain walker but recovers readable ordering on multi-column
// pages and on files where the content stream interleaves text runs.
type LayoutStrategy struct{}

func (s *LayoutStrategy) Name() string { return "layout" }

func (s *LayoutStrategy) Extract(data []byte, pages []int) (string, error) {
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
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var pageText strings.Builder
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				line.WriteString(word.S)
			}
			if text := strings.TrimSpace(line.String()); text != "" {
				if pageText.Len() > 0 {
					pageText.WriteString("\n")
				}
				pageText.WriteString(text)
			}
		}
		if pageText.Len() == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText.String())
	}
	return sb.String(), nil
}
