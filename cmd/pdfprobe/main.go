package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"cadernos-ingest/internal/config"
	"cadernos-ingest/internal/extract"
	"cadernos-ingest/internal/pdf"
	parse "cadernos-ingest/internal/pipeline/parsefields"
	"cadernos-ingest/internal/pipeline/textextract"
)

// maxPrinted caps the per-record output; rolls run to thousands of entries.
const maxPrinted = 20

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <roll.pdf>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nExtracts and parses one roll PDF without touching the database.\n")
		fmt.Fprintf(os.Stderr, "Set RULES_FILE to probe with alternative extraction rules.\n")
		os.Exit(2)
	}
	path := os.Args[1]

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rules := parse.DefaultRules()
	if rf := os.Getenv("RULES_FILE"); rf != "" {
		var err error
		if rules, err = parse.LoadRules(rf); err != nil {
			fmt.Fprintf(os.Stderr, "Error: reading rules: %v\n", err)
			os.Exit(2)
		}
	}
	ruleSet, err := rules.Compile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: compiling rules: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reader := pdf.NewReader(config.DefaultMaxFileSize)
	text := textextract.NewPipeline(extract.NewPDFAdapter(reader, logger), logger)
	parser := parse.NewPipeline(logger, ruleSet)

	start := time.Now()
	doc, err := text.Run(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	res, err := parser.Run(ctx, path, doc.Pages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("File:      %s\n", path)
	fmt.Printf("Pages:     %d (method %s, %d warnings)\n", len(doc.Pages), doc.Method, len(doc.Warnings))
	fmt.Printf("Concelho:  %s\n", res.Concelho)
	fmt.Printf("Posto:     %s\n", res.Posto)
	fmt.Printf("Type:      %s\n", res.RollType)
	fmt.Printf("Records:   %d valid, %d invalid\n", len(res.Records), res.Invalid)
	fmt.Printf("Elapsed:   %s\n\n", time.Since(start).Round(time.Millisecond))

	for i, rec := range res.Records {
		if i == maxPrinted {
			fmt.Printf("... %d more\n", len(res.Records)-maxPrinted)
			break
		}
		fmt.Printf("%4d  %-40s  %-12s  %s / %s\n",
			i+1, rec.FullName, rec.BirthDate, rec.Parent1, rec.Parent2)
	}
}
