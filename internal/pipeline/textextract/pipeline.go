package textextract

import (
	"context"
	"fmt"
	"log/slog"

	"cadernos-ingest/internal/common"
	"cadernos-ingest/internal/extract"
)

type Pipeline struct {
	TextExtractor extract.TextExtractor
	Log           *slog.Logger
}

func NewPipeline(tx extract.TextExtractor, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{TextExtractor: tx, Log: log}
}

// Run extracts the page text of one roll PDF. A file whose pages carry no
// text at all is an extraction failure, since field parsing has nothing to
// work with.
func (p *Pipeline) Run(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	res, err := p.TextExtractor.Extract(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, common.NewAppError(
			"EXTRACTION_ERROR",
			fmt.Sprintf("extract text from %s: %v", path, err),
			common.ErrExtraction,
		)
	}

	if res.Empty() {
		return res, common.NewAppError(
			"EXTRACTION_ERROR",
			fmt.Sprintf("no extractable text in %s", path),
			common.ErrExtraction,
		)
	}

	p.Log.Info("textextract.ok",
		"path", path,
		"pages", len(res.Pages),
		"method", res.Method,
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds())

	return res, nil
}
