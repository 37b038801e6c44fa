package export

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cadernos-ingest/internal/common"
	"cadernos-ingest/internal/config"
	"cadernos-ingest/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func exportRecord(name string) entity.Record {
	return entity.Record{
		FullName:  name,
		Parent1:   "José Tavares",
		Parent2:   "Maria Semedo",
		BirthDate: "12-03-1985",
		Concelho:  "Praia",
		Posto:     "Palmarejo",
		RollType:  "nacionais",
		FileName:  "roll.pdf",
	}
}

func readRows(t *testing.T, target string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(target)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	return rows
}

func TestTargetPath(t *testing.T) {
	assert.Equal(t, "/data/roll.xlsx", TargetPath("/data/roll.pdf"))
	assert.Equal(t, "/data/ROLL.xlsx", TargetPath("/data/ROLL.PDF"))
}

func TestWriteRecordsOverwrite(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "roll.pdf")
	svc := NewService(config.XLSXOverwrite, discardLogger())
	ctx := context.Background()

	target, err := svc.WriteRecords(ctx, pdf, []entity.Record{
		exportRecord("João Semedo Tavares"),
		exportRecord("Ana Monteiro Lopes"),
	})
	require.NoError(t, err)
	assert.Equal(t, TargetPath(pdf), target)

	rows := readRows(t, target)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "João Semedo Tavares", rows[1][0])
	assert.Equal(t, "Ana Monteiro Lopes", rows[2][0])

	_, err = svc.WriteRecords(ctx, pdf, []entity.Record{exportRecord("Carla Fortes")})
	require.NoError(t, err)

	rows = readRows(t, target)
	require.Len(t, rows, 2, "overwrite mode replaces previous rows")
	assert.Equal(t, "Carla Fortes", rows[1][0])
}

func TestWriteRecordsAppend(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "roll.pdf")
	svc := NewService(config.XLSXAppend, discardLogger())
	ctx := context.Background()

	_, err := svc.WriteRecords(ctx, pdf, []entity.Record{exportRecord("João Semedo Tavares")})
	require.NoError(t, err)

	target, err := svc.WriteRecords(ctx, pdf, []entity.Record{exportRecord("Ana Monteiro Lopes")})
	require.NoError(t, err)

	rows := readRows(t, target)
	require.Len(t, rows, 3, "append mode keeps previous rows")
	assert.Equal(t, headers, rows[0], "the header is written once")
	assert.Equal(t, "João Semedo Tavares", rows[1][0])
	assert.Equal(t, "Ana Monteiro Lopes", rows[2][0])
}

func TestWriteRecordsRowContents(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "roll.pdf")
	svc := NewService(config.XLSXOverwrite, discardLogger())

	rec := exportRecord("João Semedo Tavares")
	target, err := svc.WriteRecords(context.Background(), pdf, []entity.Record{rec})
	require.NoError(t, err)

	rows := readRows(t, target)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		rec.FullName, rec.Parent1, rec.Parent2, rec.BirthDate,
		rec.Concelho, rec.Posto, rec.RollType, rec.FileName,
	}, rows[1])
}

func TestWriteRecordsUnwritableTarget(t *testing.T) {
	svc := NewService(config.XLSXOverwrite, discardLogger())

	pdf := filepath.Join(t.TempDir(), "missing", "roll.pdf")
	_, err := svc.WriteRecords(context.Background(), pdf, []entity.Record{exportRecord("João")})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOutputWrite)
}
