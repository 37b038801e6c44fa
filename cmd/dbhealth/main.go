package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"cadernos-ingest/internal/config"
	"cadernos-ingest/internal/repository"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg := config.DefaultConfig().Database
	cfg.Driver = envOr("DB_DRIVER", cfg.Driver)
	cfg.Host = os.Getenv("DB_HOST")
	cfg.User = os.Getenv("DB_USER")
	cfg.Password = os.Getenv("DB_PASSWORD")
	cfg.Name = os.Getenv("DB_NAME")
	cfg.Table = os.Getenv("DB_TABLE")
	cfg.SSLMode = envOr("DB_SSLMODE", cfg.SSLMode)
	cfg.Path = os.Getenv("DB_PATH")
	if p := os.Getenv("DB_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			log.Printf("ERROR: DB_PORT must be a number, got %q", p)
			os.Exit(2)
		}
		cfg.Port = port
	}

	incomplete := cfg.Table == ""
	if cfg.Driver == config.DriverSQLite {
		incomplete = incomplete || cfg.Path == ""
	} else {
		incomplete = incomplete || cfg.Host == "" || cfg.User == "" || cfg.Password == "" || cfg.Name == ""
	}
	if incomplete {
		log.Println("ERROR: database environment is incomplete")
		log.Println("  postgres/mysql: DB_HOST, DB_USER, DB_PASSWORD, DB_NAME, DB_TABLE")
		log.Println("  sqlite:         DB_DRIVER=sqlite, DB_PATH, DB_TABLE")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The probe reports through the log package; keep the repository quiet.
	quiet := slog.New(slog.NewJSONHandler(io.Discard, nil))

	db, err := repository.Open(ctx, cfg, quiet)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer db.Close(quiet)

	if err := db.HealthCheck(ctx, 3*time.Second, quiet); err != nil {
		log.Fatalf("DB health: FAIL (%v)", err)
	}
	log.Println("DB health: OK")

	records, err := repository.NewRecordRepository(db, cfg.Table, quiet)
	if err != nil {
		log.Fatalf("table name: %v", err)
	}
	n, err := records.Count(ctx)
	if err != nil {
		log.Fatalf("counting rows in %s: %v", cfg.Table, err)
	}
	log.Printf("rows in %s: %d", cfg.Table, n)
}
