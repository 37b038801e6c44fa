package extract

import (
	"context"
	"time"
)

// TextExtractor is Stage 1: file -> per-page text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

// PageText is one page of extracted content: the plain text used for
// header anchors and the layout rows the field parser walks.
type PageText struct {
	Number int
	Text   string
	Rows   []string
}

type TextExtractionResult struct {
	Path     string
	Pages    []PageText
	Method   string // "pdf-text"
	Duration time.Duration
	Warnings []string
}

// Empty reports whether extraction produced no text at all, which the
// pipeline treats as a failed file.
func (r TextExtractionResult) Empty() bool {
	for _, p := range r.Pages {
		if len(p.Rows) > 0 || p.Text != "" {
			return false
		}
	}
	return true
}
