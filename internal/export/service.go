package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"cadernos-ingest/constants"
	"cadernos-ingest/internal/common"
	"cadernos-ingest/internal/config"
	"cadernos-ingest/internal/entity"
)

const sheetName = "Cidadaos"

var headers = []string{
	"Nome Completo",
	"Parent 1",
	"Parent 2",
	"Data de Nascimento",
	"Concelho",
	"Posto",
	"Type",
	"File Name",
}

// Service mirrors extracted records into a spreadsheet next to each source
// PDF. Write failures are reported to the caller but are never meant to
// block record persistence.
type Service struct {
	mode   string
	logger *slog.Logger
}

func NewService(mode string, logger *slog.Logger) *Service {
	if mode == "" {
		mode = config.XLSXOverwrite
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{mode: mode, logger: logger}
}

// TargetPath returns the spreadsheet path for a source PDF: same directory,
// same stem, .xlsx extension.
func TargetPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + constants.XLSXExtension
}

// WriteRecords writes the records of one roll to its spreadsheet and returns
// the path written. Overwrite mode replaces the workbook; append mode adds
// rows below the existing ones.
func (s *Service) WriteRecords(ctx context.Context, pdfPath string, recs []entity.Record) (string, error) {
	start := time.Now()
	target := TargetPath(pdfPath)

	if err := ctx.Err(); err != nil {
		return target, err
	}

	f, startRow, err := s.openWorkbook(target)
	if err != nil {
		return target, wrapOutput(target, err)
	}
	defer func() { _ = f.Close() }()

	for i, rec := range recs {
		if err := writeRow(f, startRow+i, rec); err != nil {
			return target, wrapOutput(target, err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 30) // full name
	_ = f.SetColWidth(sheetName, "B", "C", 26) // parents
	_ = f.SetColWidth(sheetName, "D", "D", 16) // birth date
	_ = f.SetColWidth(sheetName, "E", "F", 18) // concelho, posto
	_ = f.SetColWidth(sheetName, "G", "G", 12) // roll type
	_ = f.SetColWidth(sheetName, "H", "H", 40) // file name

	buf, err := f.WriteToBuffer()
	if err != nil {
		return target, wrapOutput(target, err)
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return target, wrapOutput(target, err)
	}

	s.logger.Info("export.xlsx.ok",
		"path", target,
		"rows", len(recs),
		"mode", s.mode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return target, nil
}

// openWorkbook prepares the workbook and returns the first row to write to.
// Row 1 is always the header row.
func (s *Service) openWorkbook(target string) (*excelize.File, int, error) {
	if s.mode == config.XLSXAppend {
		if _, err := os.Stat(target); err == nil {
			return openForAppend(target)
		}
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if err := writeHeader(f); err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, 2, nil
}

func openForAppend(target string) (*excelize.File, int, error) {
	f, err := excelize.OpenFile(target)
	if err != nil {
		return nil, 0, err
	}

	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if idx == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			_ = f.Close()
			return nil, 0, err
		}
		if err := writeHeader(f); err != nil {
			_ = f.Close()
			return nil, 0, err
		}
		return f, 2, nil
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if len(rows) == 0 {
		if err := writeHeader(f); err != nil {
			_ = f.Close()
			return nil, 0, err
		}
		return f, 2, nil
	}
	return f, len(rows) + 1, nil
}

func writeHeader(f *excelize.File) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, row int, rec entity.Record) error {
	values := []string{
		rec.FullName,
		rec.Parent1,
		rec.Parent2,
		rec.BirthDate,
		rec.Concelho,
		rec.Posto,
		rec.RollType,
		rec.FileName,
	}
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func wrapOutput(target string, err error) error {
	return common.NewAppError("OUTPUT_WRITE_ERROR",
		fmt.Sprintf("write %s: %v", target, err),
		common.ErrOutputWrite)
}
