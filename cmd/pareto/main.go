package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"vendascli/internal/config"
	"vendascli/internal/exporter"
	"vendascli/internal/infrastructure"
	"vendascli/internal/pareto"
	"vendascli/internal/warehouse"
)

// Standalone ABC analysis: re-reads the markdown report written by the
// pipeline command and rebuilds every grouping's Pareto tables from it,
// without touching the sources or the sales table.
func main() {
	input := flag.String("in", "", "markdown report to analyze (overrides config)")
	dryRun := flag.Bool("dry-run", false, "analyze without uploading")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.Paths.MarkdownOutput = *input
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx := infrastructure.WithRunID(context.Background(), uuid.NewString())

	records, err := exporter.ReadMarkdown(cfg.Paths.MarkdownOutput, logger)
	if err != nil {
		logger.Error("Failed to load markdown report", "error", err)
		os.Exit(1)
	}

	aggregator := pareto.New(cfg.Warehouse.ParetoTablePrefix, logger)
	reports, err := aggregator.Analyze(records)
	if err != nil {
		logger.Error("Analysis failed", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		logger.InfoContext(ctx, "dry run, skipping uploads",
			slog.Int("groupings", len(reports)))
		return
	}

	store, err := warehouse.New(cfg.Warehouse, logger)
	if err != nil {
		logger.Error("Failed to connect to warehouse", "error", err)
		os.Exit(1)
	}
	for _, report := range reports {
		if err := store.EnsureParetoSchema(ctx, report.Table); err != nil {
			logger.Error("Failed to migrate table", "table", report.Table, "error", err)
			os.Exit(1)
		}
	}
	if err := store.UploadPareto(ctx, reports); err != nil {
		logger.Error("Upload failed", "error", err)
		os.Exit(1)
	}
	logger.InfoContext(ctx, "analysis uploaded", slog.Int("groupings", len(reports)))
}
