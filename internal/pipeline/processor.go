package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cadernos-ingest/constants"
	"cadernos-ingest/internal/common"
	"cadernos-ingest/internal/export"
	parse "cadernos-ingest/internal/pipeline/parsefields"
	"cadernos-ingest/internal/pipeline/textextract"
	"cadernos-ingest/internal/repository"
)

// Processor coordinates text extraction, field parsing, persistence and the
// optional spreadsheet mirror for one roll PDF at a time.
type Processor struct {
	Logger   *slog.Logger
	Text     *textextract.Pipeline
	Parse    *parse.Pipeline
	Records  repository.RecordRepository
	Exporter *export.Service // nil when the spreadsheet mirror is disabled
}

func NewProcessor(logger *slog.Logger, text *textextract.Pipeline, parse *parse.Pipeline, records repository.RecordRepository, exporter *export.Service) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Text: text, Parse: parse, Records: records, Exporter: exporter}
}

// FileReport summarizes one processed file.
type FileReport struct {
	Path       string
	Extracted  int
	Inserted   int
	Duplicates int
	Failed     int
	SheetPath  string
}

// Outcome classifies the file for the run summary. A file counts as a
// duplicate only when every extracted record was already stored.
func (r FileReport) Outcome() constants.FileOutcome {
	switch {
	case r.Inserted > 0:
		return constants.OutcomeProcessed
	case r.Extracted > 0 && r.Duplicates == r.Extracted:
		return constants.OutcomeDuplicate
	default:
		return constants.OutcomeFailed
	}
}

// RunStats aggregates file reports over a run.
type RunStats struct {
	FilesProcessed   uint32
	FilesDuplicate   uint32
	FilesFailed      uint32
	RecordsExtracted uint32
	RecordsInserted  uint32
	RecordsDuplicate uint32
	RecordsFailed    uint32
	SheetsWritten    uint32
}

func (s *RunStats) Add(rep FileReport) {
	switch rep.Outcome() {
	case constants.OutcomeProcessed:
		s.FilesProcessed++
	case constants.OutcomeDuplicate:
		s.FilesDuplicate++
	default:
		s.FilesFailed++
	}
	s.RecordsExtracted += uint32(rep.Extracted)
	s.RecordsInserted += uint32(rep.Inserted)
	s.RecordsDuplicate += uint32(rep.Duplicates)
	s.RecordsFailed += uint32(rep.Failed)
	if rep.SheetPath != "" {
		s.SheetsWritten++
	}
}

// ProcessFile runs one roll PDF through extraction, parsing, persistence and
// the spreadsheet mirror. Per-record failures are contained in the report;
// the returned error is either a file-level extraction failure, a context
// cancellation, or a lost database connection, which the caller must treat
// as fatal for the run.
func (p *Processor) ProcessFile(ctx context.Context, path string) (FileReport, error) {
	rep := FileReport{Path: path}

	txt, err := p.Text.Run(ctx, path)
	if err != nil {
		p.Logger.Error("processor.extract.failed", "path", path, "error", err)
		return rep, err
	}

	parsed, err := p.Parse.Run(ctx, path, txt.Pages)
	if err != nil {
		p.Logger.Error("processor.parse.failed", "path", path, "error", err)
		return rep, err
	}
	rep.Extracted = len(parsed.Records)

	for i := range parsed.Records {
		rec := &parsed.Records[i]
		err := p.Records.Insert(ctx, rec)
		switch {
		case err == nil:
			rep.Inserted++
		case errors.Is(err, common.ErrDuplicateRecord):
			rep.Duplicates++
			p.Logger.Info("store.insert.dup", "path", path, "name", rec.FullName)
		default:
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			if !p.Records.Alive(ctx) {
				p.Logger.Error("store.connection.lost", "path", path, "error", err)
				return rep, common.NewAppError("CONNECTION_FATAL",
					fmt.Sprintf("database connection lost while inserting from %s: %v", path, err),
					common.ErrConnectionLost)
			}
			rep.Failed++
			p.Logger.Error("store.insert.failed", "path", path, "name", rec.FullName, "error", err)
		}
	}

	// The mirror never blocks persistence: its failures are warnings.
	if p.Exporter != nil && len(parsed.Records) > 0 {
		sheet, err := p.Exporter.WriteRecords(ctx, path, parsed.Records)
		if err != nil {
			p.Logger.Warn("export.xlsx.failed", "path", path, "error", err)
		} else {
			rep.SheetPath = sheet
		}
	}

	p.Logger.Info("processor.file.ok",
		"path", path,
		"extracted", rep.Extracted,
		"inserted", rep.Inserted,
		"duplicates", rep.Duplicates,
		"failed", rep.Failed,
		"outcome", string(rep.Outcome()))
	return rep, nil
}
