package textextract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadernos-ingest/internal/common"
	"cadernos-ingest/internal/extract"
)

type fakeExtractor struct {
	res extract.TextExtractionResult
	err error
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	if ctx.Err() != nil {
		return extract.TextExtractionResult{Path: path}, ctx.Err()
	}
	f.res.Path = path
	return f.res, f.err
}

func newTestPipeline(fake *fakeExtractor) *Pipeline {
	return NewPipeline(fake, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestRunReturnsPages(t *testing.T) {
	fake := &fakeExtractor{
		res: extract.TextExtractionResult{
			Pages: []extract.PageText{
				{Number: 1, Text: "Concelho : Praia Posto : Palmarejo", Rows: []string{"JOÃO SEMEDO 12-03-1985"}},
				{Number: 2, Text: "page two", Rows: []string{"ANA LOPES 01-12-1990"}},
			},
			Method:   "pdf-text",
			Duration: 25 * time.Millisecond,
		},
	}

	res, err := newTestPipeline(fake).Run(context.Background(), "/data/roll.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/data/roll.pdf", res.Path)
	assert.Len(t, res.Pages, 2)
	assert.Equal(t, "pdf-text", res.Method)
}

func TestRunEmptyDocument(t *testing.T) {
	fake := &fakeExtractor{
		res: extract.TextExtractionResult{
			Pages: []extract.PageText{{Number: 1}, {Number: 2}},
		},
	}

	_, err := newTestPipeline(fake).Run(context.Background(), "/data/scanned.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
}

func TestRunExtractorError(t *testing.T) {
	fake := &fakeExtractor{err: errors.New("malformed xref table")}

	_, err := newTestPipeline(fake).Run(context.Background(), "/data/broken.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.Contains(t, err.Error(), "malformed xref table")
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(&fakeExtractor{}).Run(ctx, "/data/roll.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrExtraction, "an interrupted run is not a file failure")
}
