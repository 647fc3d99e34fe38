package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"vendascli/internal/config"
	"vendascli/internal/infrastructure"
	"vendascli/internal/loader"
	"vendascli/internal/pipeline"
	"vendascli/internal/warehouse"
)

func main() {
	reportsDir := flag.String("reports", "", "reports directory (overrides config)")
	markdownOut := flag.String("out", "", "markdown report path (overrides config)")
	dryRun := flag.Bool("dry-run", false, "run everything except the warehouse uploads")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *reportsDir != "" {
		cfg.Paths.ReportsDir = *reportsDir
	}
	if *markdownOut != "" {
		cfg.Paths.MarkdownOutput = *markdownOut
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	var store pipeline.WarehouseWriter
	if !*dryRun {
		if cfg.Warehouse.DSN == "" {
			logger.Error("warehouse DSN is not configured, use -dry-run to skip uploads")
			os.Exit(1)
		}
		s, err := warehouse.New(cfg.Warehouse, logger)
		if err != nil {
			logger.Error("Failed to connect to warehouse", "error", err)
			os.Exit(1)
		}
		store = s
	}

	orders := loader.NewOrdersClient(cfg.API, logger)
	p := pipeline.New(cfg, orders, store, logger)
	if err := p.Run(context.Background()); err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}
}
