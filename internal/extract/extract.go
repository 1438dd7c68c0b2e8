// Package extract pulls plain text out of PDF bytes. Several strategies are
// tried in order; the first one producing non-whitespace output wins. A PDF
// with no extractable text (scanned pages, malformed structure) is an
// expected input, so the extractor never returns an error: it falls back to
// a sentinel string instead.
package extract

import (
	"fmt"
	"log/slog"
	"strings"
)

// NoTextSentinel is returned when every strategy fails or yields only
// whitespace. The exact wording is part of the API contract.
const NoTextSentinel = "No readable text found in PDF"

// Strategy is one method of extracting text from PDF bytes. The pages
// argument holds 1-based page numbers; nil or empty means all pages.
// Page numbers outside the document are silently skipped, not errored —
// a permissive property callers rely on. A strategy that cannot honor a
// page filter must return an error rather than ignore it.
type Strategy interface {
	Name() string
	Extract(data []byte, pages []int) (string, error)
}

// Extractor runs an ordered list of strategies.
type Extractor struct {
	strategies []Strategy
}

// New returns an extractor with the default strategy order: the fast
// structural walker first, the layout-aware row reader second, and the raw
// content-stream scan as a last resort for files the parsers reject.
func New() *Extractor {
	return NewWithStrategies(
		&PlainTextStrategy{},
		&LayoutStrategy{},
		&RawScanStrategy{},
	)
}

// NewWithStrategies returns an extractor over an explicit strategy list.
func NewWithStrategies(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Extract returns the first non-whitespace strategy output, or
// NoTextSentinel when no strategy produces any. Strategy failures,
// including panics out of the underlying parsers, are absorbed and treated
// as empty output from that strategy.
func (e *Extractor) Extract(data []byte, pages []int) string {
	for _, s := range e.strategies {
		text, err := runStrategy(s, data, pages)
		if err != nil {
			slog.Debug("Extraction strategy failed, falling through.", "strategy", s.Name(), "error", err)
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed
		}
	}
	return NoTextSentinel
}

func runStrategy(s Strategy, data []byte, pages []int) (text string, err error) {
	// The PDF parsers panic on some malformed inputs; a panic must not
	// abort the extraction call.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Extract(data, pages)
}

// selectPages maps the caller's 1-based page numbers onto the document.
// An empty filter selects every page. Out-of-range numbers are dropped; a
// filter that selects nothing returns an empty, non-nil slice.
func selectPages(pages []int, numPages int) []int {
	if len(pages) == 0 {
		all := make([]int, numPages)
		for i := range all {
			all[i] = i + 1
		}
		return all
	}
	selected := make([]int, 0, len(pages))
	for _, p := range pages {
		if p >= 1 && p <= numPages {
			selected = append(selected, p)
		}
	}
	return selected
}
