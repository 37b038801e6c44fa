package extract

import (
	"context"
	"log/slog"
	"time"

	"cadernos-ingest/internal/pdf"
)

// PDFAdapter adapts the PDF reader to the TextExtractor contract.
type PDFAdapter struct {
	reader *pdf.Reader
	logger *slog.Logger
}

func NewPDFAdapter(reader *pdf.Reader, logger *slog.Logger) *PDFAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFAdapter{reader: reader, logger: logger}
}

func (a *PDFAdapter) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return TextExtractionResult{Path: path}, err
	}

	doc, err := a.reader.ReadFile(path)
	if err != nil {
		return TextExtractionResult{Path: path, Duration: time.Since(start)}, err
	}

	pages := make([]PageText, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		pages = append(pages, PageText{
			Number: p.Number,
			Text:   p.Text,
			Rows:   p.Rows,
		})
	}

	for _, w := range doc.Warnings {
		a.logger.Warn("extract.page.skipped", "path", path, "warning", w)
	}

	return TextExtractionResult{
		Path:     path,
		Pages:    pages,
		Method:   "pdf-text",
		Duration: time.Since(start),
		Warnings: doc.Warnings,
	}, nil
}
