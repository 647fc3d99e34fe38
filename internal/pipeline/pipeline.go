// Package pipeline orchestrates one reconciliation run end to end: load,
// normalize, enrich, export, upload. A fatal error anywhere aborts the run
// before the warehouse write, never after a partial commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vendascli/internal/bundle"
	"vendascli/internal/config"
	"vendascli/internal/exporter"
	"vendascli/internal/infrastructure"
	"vendascli/internal/loader"
	"vendascli/internal/master"
	"vendascli/internal/normalize"
	"vendascli/internal/pareto"
	"vendascli/pkg/contracts/domain"
)

// ErrNoRecords means no usable sales record came out of any source, which
// makes the run pointless and the warehouse write unsafe.
var ErrNoRecords = errors.New("no sales records loaded from any source")

var monthFileNames = map[time.Month]string{
	time.January:   "janeiro",
	time.February:  "fevereiro",
	time.March:     "marco",
	time.April:     "abril",
	time.May:       "maio",
	time.June:      "junho",
	time.July:      "julho",
	time.August:    "agosto",
	time.September: "setembro",
	time.October:   "outubro",
	time.November:  "novembro",
	time.December:  "dezembro",
}

// ordersFetcher pulls the current window of orders from the upstream API.
type ordersFetcher interface {
	FetchOrders(ctx context.Context, from, to time.Time) ([]domain.SourceRow, int, error)
}

// WarehouseWriter persists the run's output tables.
type WarehouseWriter interface {
	EnsureSalesSchema(ctx context.Context) error
	EnsureParetoSchema(ctx context.Context, table string) error
	UploadSales(ctx context.Context, records []domain.SalesRecord) error
	UploadPareto(ctx context.Context, reports []domain.ParetoReport) error
}

// Pipeline wires the run's stages together.
type Pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	sheets     *loader.Spreadsheet
	orders     ordersFetcher
	normalizer *normalize.Normalizer
	merger     *master.Merger
	bundles    *bundle.Processor
	aggregator *pareto.Aggregator
	warehouse  WarehouseWriter

	now func() time.Time
}

// New builds a pipeline from its stages. warehouse may be nil, in which
// case the upload stages are skipped (dry runs).
func New(cfg *config.Config, orders ordersFetcher, warehouse WarehouseWriter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		sheets:     loader.NewSpreadsheet(logger),
		orders:     orders,
		normalizer: normalize.New(logger),
		merger:     master.New(logger),
		bundles:    bundle.New(logger),
		aggregator: pareto.New(cfg.Warehouse.ParetoTablePrefix, logger),
		warehouse:  warehouse,
		now:        time.Now,
	}
}

// Run executes one full reconciliation.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	ctx = infrastructure.WithRunID(ctx, runID)
	p.logger.InfoContext(ctx, "run started", slog.String("run_id", runID))
	start := p.now()

	records, err := p.loadRecords(ctx)
	if err != nil {
		return err
	}

	entries, err := loader.LoadProductFeed(p.cfg.Paths.ProductFeedCSV, p.logger)
	if err != nil {
		return fmt.Errorf("product feed: %w", err)
	}
	p.merger.Merge(records, p.merger.Dedupe(entries))

	p.exportCurrentMonth(ctx, records)

	adjustments := p.bundles.Process(p.cfg.Paths.BundleArchives)
	p.bundles.Enrich(records, adjustments)

	if err := exporter.WriteMarkdown(p.cfg.Paths.MarkdownOutput, records, p.logger); err != nil {
		return err
	}

	reports, err := p.aggregator.Analyze(records)
	if err != nil {
		return fmt.Errorf("pareto analysis: %w", err)
	}

	if p.warehouse != nil {
		if err := p.warehouse.EnsureSalesSchema(ctx); err != nil {
			return err
		}
		if err := p.warehouse.UploadSales(ctx, records); err != nil {
			return err
		}
		for _, report := range reports {
			if err := p.warehouse.EnsureParetoSchema(ctx, report.Table); err != nil {
				return err
			}
		}
		if err := p.warehouse.UploadPareto(ctx, reports); err != nil {
			return err
		}
	} else {
		p.logger.InfoContext(ctx, "no warehouse configured, skipping uploads")
	}

	p.logger.InfoContext(ctx, "run finished",
		slog.Int("records", len(records)),
		slog.Int("groupings", len(reports)),
		slog.Duration("elapsed", p.now().Sub(start)))
	return nil
}

// loadRecords gathers every source for the run: previous-month workbooks
// in full, the current month's workbook truncated to the days the API will
// not re-cover, and the API window itself.
func (p *Pipeline) loadRecords(ctx context.Context) ([]domain.SalesRecord, error) {
	today := dateOnly(p.now())
	currentName := monthFileNames[today.Month()]

	prevPaths, currentPath := p.discoverWorkbooks(currentName)
	records := p.normalizer.NormalizeRows(p.sheets.LoadAll(prevPaths))
	p.logger.InfoContext(ctx, "previous months loaded",
		slog.Int("files", len(prevPaths)),
		slog.Int("records", len(records)))

	// Without a current-month workbook the API covers the whole month so
	// far; with one, only from yesterday on, and the workbook rows for
	// those days are dropped in its favor.
	apiFrom := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	if currentPath != "" {
		apiFrom = today.AddDate(0, 0, -1)
		rows, err := p.sheets.Load(currentPath)
		if err != nil {
			return nil, fmt.Errorf("current month workbook: %w", err)
		}
		kept := 0
		for _, rec := range p.normalizer.NormalizeRows(rows) {
			if rec.OrderDate != nil && rec.OrderDate.Before(apiFrom) {
				records = append(records, rec)
				kept++
			}
		}
		p.logger.InfoContext(ctx, "current month workbook loaded",
			slog.String("path", currentPath),
			slog.Int("kept", kept))
	}

	apiRows, requests, err := p.orders.FetchOrders(ctx, apiFrom, today)
	if err != nil {
		return nil, fmt.Errorf("orders api: %w", err)
	}
	records = append(records, p.normalizer.NormalizeRows(apiRows)...)
	p.logger.InfoContext(ctx, "orders api window loaded",
		slog.Time("from", apiFrom),
		slog.Time("to", today),
		slog.Int("requests", requests),
		slog.Int("rows", len(apiRows)))

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

// discoverWorkbooks splits the reports directory into previous-month files
// and the current month's file. Processed snapshots from earlier runs are
// never re-ingested.
func (p *Pipeline) discoverWorkbooks(currentName string) (prev []string, current string) {
	dir := p.cfg.Paths.ReportsDir
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.logger.Warn("reports directory unreadable",
			slog.String("dir", dir),
			slog.String("error", err.Error()))
		return nil, ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".xlsx" && ext != ".xls" {
			continue
		}
		base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if strings.HasSuffix(base, "_processado") {
			continue
		}
		if base == currentName {
			current = filepath.Join(dir, name)
			continue
		}
		prev = append(prev, filepath.Join(dir, name))
	}
	return prev, current
}

// exportCurrentMonth snapshots the current month's reconciled rows next to
// the source workbooks. Failure only costs the snapshot, not the run.
func (p *Pipeline) exportCurrentMonth(ctx context.Context, records []domain.SalesRecord) {
	today := p.now()
	var current []domain.SalesRecord
	for _, rec := range records {
		if rec.InMonth(today.Month(), today.Year()) {
			current = append(current, rec)
		}
	}
	if len(current) == 0 {
		p.logger.InfoContext(ctx, "no current month records to snapshot")
		return
	}
	path := filepath.Join(p.cfg.Paths.ReportsDir,
		fmt.Sprintf("%s_PROCESSADO.xlsx", monthFileNames[today.Month()]))
	if err := exporter.WriteWorkbook(path, current, p.logger); err != nil {
		p.logger.Warn("current month snapshot failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
}

// dateOnly pins the wall-clock calendar date to UTC midnight. Record dates
// parse to UTC midnight, so cutover comparisons must live in the same zone
// regardless of where the process runs.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
