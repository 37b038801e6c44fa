package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"cadernos-ingest/internal/common"
	"cadernos-ingest/internal/config"
	"cadernos-ingest/internal/export"
	"cadernos-ingest/internal/extract"
	"cadernos-ingest/internal/ingest"
	"cadernos-ingest/internal/pdf"
	processor "cadernos-ingest/internal/pipeline"
	parse "cadernos-ingest/internal/pipeline/parsefields"
	"cadernos-ingest/internal/pipeline/textextract"
	"cadernos-ingest/internal/repository"
)

const (
	exitOK     = 0
	exitFatal  = 1
	exitConfig = 2

	lockFileName  = "cadernos-ingest.lock"
	watchDebounce = 2 * time.Second
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		printError("Error: %v\n\n", err)
		pflag.Usage()
		return exitConfig
	}

	runID := uuid.NewString()
	logger, closeLogs, err := common.NewRunLogger(cfg.LogLevel, cfg.LogDir, runID)
	if err != nil {
		printError("Error: cannot open run log: %v\n", err)
		return exitConfig
	}
	defer closeLogs()
	slog.SetDefault(logger)

	// One active run per log directory.
	lock := flock.New(filepath.Join(cfg.LogDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("run.lock.failed", "error", err)
		return exitFatal
	}
	if !locked {
		logger.Error("run.lock.held", "path", lock.Path())
		printError("Error: another ingestion run is already active\n")
		return exitFatal
	}
	defer func() { _ = lock.Unlock() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("run.start",
		"dir", cfg.Ingest.Directory,
		"recursive", cfg.Ingest.Recursive,
		"watch", cfg.Ingest.Watch,
		"driver", cfg.Database.Driver,
		"table", cfg.Database.Table,
		"xlsx", cfg.Export.Enabled,
		"xlsx_mode", cfg.Export.Mode)

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("run.db.unreachable", "error", err)
		printError("Error: cannot connect to database: %v\n", err)
		return exitFatal
	}
	defer db.Close(logger)

	if err := db.HealthCheck(ctx, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("run.db.unreachable", "error", err)
		printError("Error: database health check failed: %v\n", err)
		return exitFatal
	}

	records, err := repository.NewRecordRepository(db, cfg.Database.Table, logger)
	if err != nil {
		logger.Error("run.config.invalid", "error", err)
		return exitConfig
	}
	if err := records.EnsureTable(ctx); err != nil {
		logger.Error("run.db.unusable", "error", err)
		return exitFatal
	}

	rules := parse.DefaultRules()
	if cfg.RulesFile != "" {
		if rules, err = parse.LoadRules(cfg.RulesFile); err != nil {
			logger.Error("run.rules.invalid", "path", cfg.RulesFile, "error", err)
			return exitConfig
		}
	}
	ruleSet, err := rules.Compile()
	if err != nil {
		logger.Error("run.rules.invalid", "error", err)
		return exitConfig
	}

	var exporter *export.Service
	if cfg.Export.Enabled {
		exporter = export.NewService(cfg.Export.Mode, logger)
	}

	reader := pdf.NewReader(cfg.Ingest.MaxFileSize)
	proc := processor.NewProcessor(logger,
		textextract.NewPipeline(extract.NewPDFAdapter(reader, logger), logger),
		parse.NewPipeline(logger, ruleSet),
		records,
		exporter)

	start := time.Now()
	paths, dirStats, err := ingest.NewScanner(logger).ScanDirectory(ctx, cfg.Ingest.Directory, cfg.Ingest.Recursive)
	if err != nil {
		logger.Error("run.scan.failed", "error", err)
		return exitFatal
	}

	var stats processor.RunStats
	fatal := false

	for i, path := range paths {
		if ctx.Err() != nil {
			logger.Warn("run.interrupted", "remaining", len(paths)-i)
			break
		}
		logger.Info("run.file.start", "path", path, "index", i+1, "total", len(paths))

		rep, err := proc.ProcessFile(ctx, path)
		if err != nil && errors.Is(err, context.Canceled) {
			logger.Warn("run.interrupted", "path", path)
			break
		}
		stats.Add(rep)
		if err != nil && errors.Is(err, common.ErrConnectionLost) {
			logger.Error("run.aborted", "error", err)
			fatal = true
			break
		}
	}

	if cfg.Ingest.Watch && !fatal && ctx.Err() == nil {
		if err := watchLoop(ctx, cfg, proc, &stats, logger); err != nil {
			fatal = true
		}
	}

	elapsed := time.Since(start)
	logger.Info("run.summary",
		"scanned", dirStats.Scanned,
		"matched", dirStats.Matched,
		"ignored", dirStats.Ignored,
		"files_processed", stats.FilesProcessed,
		"files_duplicate", stats.FilesDuplicate,
		"files_failed", stats.FilesFailed,
		"records_extracted", stats.RecordsExtracted,
		"records_inserted", stats.RecordsInserted,
		"records_duplicate", stats.RecordsDuplicate,
		"records_failed", stats.RecordsFailed,
		"sheets_written", stats.SheetsWritten,
		"fatal", fatal,
		"elapsed_ms", elapsed.Milliseconds())

	if fatal {
		fmt.Printf("Ingestion aborted!\n")
	} else {
		fmt.Printf("Ingestion complete!\n")
	}
	fmt.Printf("- Files matched: %d (ignored: %d)\n", dirStats.Matched, dirStats.Ignored)
	fmt.Printf("- Files processed: %d\n", stats.FilesProcessed)
	fmt.Printf("- Files duplicate: %d\n", stats.FilesDuplicate)
	fmt.Printf("- Files failed: %d\n", stats.FilesFailed)
	fmt.Printf("- Records inserted: %d (duplicates: %d, failed: %d)\n",
		stats.RecordsInserted, stats.RecordsDuplicate, stats.RecordsFailed)
	if exporter != nil {
		fmt.Printf("- Sheets written: %d\n", stats.SheetsWritten)
	}

	if fatal {
		return exitFatal
	}
	return exitOK
}

// watchLoop processes rolls as they land in the directory until the context
// is canceled. It returns an error only when the database connection is
// lost.
func watchLoop(ctx context.Context, cfg *config.Config, proc *processor.Processor, stats *processor.RunStats, logger *slog.Logger) error {
	evCh, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:      cfg.Ingest.Directory,
		Recursive: cfg.Ingest.Recursive,
		Debounce:  watchDebounce,
	}, logger)
	if err != nil {
		logger.Error("watch.start.failed", "error", err)
		return err
	}
	logger.Info("watch.started", "root", cfg.Ingest.Directory)

	for {
		select {
		case <-ctx.Done():
			return nil

		case path, ok := <-evCh:
			if !ok {
				return nil
			}
			logger.Info("run.file.start", "path", path, "watch", true)
			rep, err := proc.ProcessFile(ctx, path)
			if err != nil && errors.Is(err, context.Canceled) {
				return nil
			}
			stats.Add(rep)
			if err != nil && errors.Is(err, common.ErrConnectionLost) {
				logger.Error("run.aborted", "error", err)
				return err
			}

		case werr, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			logger.Warn("watch.degraded", "error", werr)
		}
	}
}
