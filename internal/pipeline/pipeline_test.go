package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vendascli/internal/config"
	"vendascli/pkg/contracts/domain"
)

// runDate is the fixed "today" for every test: 15 June 2025.
var runDate = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

var salesHeader = []interface{}{
	"Número pedido", "Data do pedido", "Loja", "SKU",
	"Valor total produto", "Valor unitário venda", "Quantidade", "Título", "Status",
}

func salesRow(order, date, store, sku, total, unit, qty string) []interface{} {
	return []interface{}{order, date, store, sku, total, unit, qty, "Produto " + sku, "Entregue"}
}

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &salesHeader))
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, ref, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func writeProductFeed(t *testing.T, path string) {
	t.Helper()
	csv := "Código;Produto;Quantidade;Valor unitario;Fornecedor;Categoria;Subcategoria;Tipo de Venda\n" +
		"SKU-1;Caneca Azul;12;8,25;Fornecedor X;Casa;Cozinha;Normal\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
}

type fakeOrders struct {
	rows     []domain.SourceRow
	err      error
	from, to time.Time
}

func (f *fakeOrders) FetchOrders(_ context.Context, from, to time.Time) ([]domain.SourceRow, int, error) {
	f.from, f.to = from, to
	return f.rows, 1, f.err
}

type fakeWarehouse struct {
	sales        []domain.SalesRecord
	reports      []domain.ParetoReport
	paretoTables []string
	salesErr     error
}

func (f *fakeWarehouse) EnsureSalesSchema(context.Context) error { return nil }
func (f *fakeWarehouse) EnsureParetoSchema(_ context.Context, table string) error {
	f.paretoTables = append(f.paretoTables, table)
	return nil
}
func (f *fakeWarehouse) UploadSales(_ context.Context, records []domain.SalesRecord) error {
	if f.salesErr != nil {
		return f.salesErr
	}
	f.sales = records
	return nil
}
func (f *fakeWarehouse) UploadPareto(_ context.Context, reports []domain.ParetoReport) error {
	f.reports = reports
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	reports := filepath.Join(dir, "Relatorio_vendas")
	require.NoError(t, os.MkdirAll(reports, 0o755))
	feed := filepath.Join(dir, "produtos.csv")
	writeProductFeed(t, feed)
	return &config.Config{
		Paths: config.PathsConfig{
			ReportsDir:     reports,
			ProductFeedCSV: feed,
			MarkdownOutput: filepath.Join(dir, "vendas.md"),
		},
		Warehouse: config.WarehouseConfig{ParetoTablePrefix: "pareto"},
	}
}

func newTestPipeline(cfg *config.Config, orders ordersFetcher, wh WarehouseWriter) *Pipeline {
	p := New(cfg, orders, wh, nil)
	p.now = func() time.Time { return runDate }
	return p
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)

	// One previous month workbook and one current month workbook whose
	// rows straddle the API cutover of 14 June.
	writeWorkbook(t, filepath.Join(cfg.Paths.ReportsDir, "maio.xlsx"), [][]interface{}{
		salesRow("100", "05/05/2025", "Shopee - Loja A", "SKU-1", "19.90", "19.90", "1"),
	})
	writeWorkbook(t, filepath.Join(cfg.Paths.ReportsDir, "junho.xlsx"), [][]interface{}{
		salesRow("200", "10/06/2025", "Amazon BR", "SKU-1", "39.80", "19.90", "2"),
		salesRow("201", "14/06/2025", "Amazon BR", "SKU-1", "19.90", "19.90", "1"),
	})
	// Stale snapshot from an earlier run must not be re-ingested.
	writeWorkbook(t, filepath.Join(cfg.Paths.ReportsDir, "junho_PROCESSADO.xlsx"), [][]interface{}{
		salesRow("999", "01/06/2025", "Amazon BR", "SKU-1", "19.90", "19.90", "1"),
	})

	orders := &fakeOrders{rows: []domain.SourceRow{{
		OrderNumber: "300",
		OrderDate:   "14/06/2025",
		Store:       "Mercado Livre - JULISHOP",
		SKU:         "SKU-1",
		UnitPrice:   "19.90",
		Quantity:    "1",
		Source:      domain.SourceAPI,
	}}}
	wh := &fakeWarehouse{}

	require.NoError(t, newTestPipeline(cfg, orders, wh).Run(context.Background()))

	// API window starts yesterday because the current month workbook exists,
	// and the workbook row for the 14th was dropped in the API's favor.
	assert.Equal(t, time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC), orders.from)
	assert.Equal(t, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC), orders.to)

	require.Len(t, wh.sales, 3)
	got := make(map[string]domain.SalesRecord)
	for _, rec := range wh.sales {
		got[rec.OrderNumber] = rec
	}
	assert.Contains(t, got, "100")
	assert.Contains(t, got, "200")
	assert.Contains(t, got, "300")
	assert.NotContains(t, got, "201")
	assert.NotContains(t, got, "999")

	// Product master merged in.
	assert.Equal(t, "8.250", got["100"].UnitCost.StringFixed(3))
	assert.Equal(t, 12, got["100"].Stock)
	// No bundle archives, so every total is unit price times quantity.
	assert.Equal(t, "39.800", got["200"].Total.StringFixed(3))

	assert.NotEmpty(t, wh.reports)
	assert.NotEmpty(t, wh.paretoTables)

	// Current month snapshot and markdown report on disk.
	assert.FileExists(t, filepath.Join(cfg.Paths.ReportsDir, "junho_PROCESSADO.xlsx"))
	assert.FileExists(t, cfg.Paths.MarkdownOutput)
}

func TestRunCutoverWestOfUTC(t *testing.T) {
	cfg := testConfig(t)

	// Rows for yesterday must come from the API alone even when the clock
	// runs west of UTC, where local midnight is hours past UTC midnight.
	writeWorkbook(t, filepath.Join(cfg.Paths.ReportsDir, "junho.xlsx"), [][]interface{}{
		salesRow("200", "10/06/2025", "Loja", "SKU-1", "19.90", "19.90", "1"),
		salesRow("201", "14/06/2025", "Loja", "SKU-1", "19.90", "19.90", "1"),
	})

	orders := &fakeOrders{rows: []domain.SourceRow{{
		OrderNumber: "300",
		OrderDate:   "14/06/2025",
		Store:       "Loja",
		SKU:         "SKU-1",
		UnitPrice:   "19.90",
		Quantity:    "1",
		Source:      domain.SourceAPI,
	}}}
	wh := &fakeWarehouse{}

	p := newTestPipeline(cfg, orders, wh)
	brt := time.FixedZone("BRT", -3*3600)
	p.now = func() time.Time { return runDate.In(brt) }

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC), orders.from)

	require.Len(t, wh.sales, 2)
	numbers := []string{wh.sales[0].OrderNumber, wh.sales[1].OrderNumber}
	assert.Contains(t, numbers, "200")
	assert.Contains(t, numbers, "300")
	assert.NotContains(t, numbers, "201")
}

func TestRunNoCurrentMonthWorkbook(t *testing.T) {
	cfg := testConfig(t)
	writeWorkbook(t, filepath.Join(cfg.Paths.ReportsDir, "maio.xlsx"), [][]interface{}{
		salesRow("100", "05/05/2025", "Loja", "SKU-1", "10.00", "10.00", "1"),
	})

	orders := &fakeOrders{}
	wh := &fakeWarehouse{}
	require.NoError(t, newTestPipeline(cfg, orders, wh).Run(context.Background()))

	// API covers the whole month so far.
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), orders.from)
}

func TestRunNoRecordsIsFatal(t *testing.T) {
	cfg := testConfig(t)
	err := newTestPipeline(cfg, &fakeOrders{}, &fakeWarehouse{}).Run(context.Background())
	require.ErrorIs(t, err, ErrNoRecords)
}

func TestRunAPIFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	writeWorkbook(t, filepath.Join(cfg.Paths.ReportsDir, "maio.xlsx"), [][]interface{}{
		salesRow("100", "05/05/2025", "Loja", "SKU-1", "10.00", "10.00", "1"),
	})

	orders := &fakeOrders{err: errors.New("upstream unavailable")}
	err := newTestPipeline(cfg, orders, &fakeWarehouse{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders api")
}

func TestRunUploadFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	writeWorkbook(t, filepath.Join(cfg.Paths.ReportsDir, "maio.xlsx"), [][]interface{}{
		salesRow("100", "05/05/2025", "Loja", "SKU-1", "10.00", "10.00", "1"),
	})

	wh := &fakeWarehouse{salesErr: fmt.Errorf("permission denied")}
	err := newTestPipeline(cfg, &fakeOrders{}, wh).Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, wh.reports)
}

func TestRunWithoutWarehouseSkipsUploads(t *testing.T) {
	cfg := testConfig(t)
	writeWorkbook(t, filepath.Join(cfg.Paths.ReportsDir, "maio.xlsx"), [][]interface{}{
		salesRow("100", "05/05/2025", "Loja", "SKU-1", "10.00", "10.00", "1"),
	})
	require.NoError(t, newTestPipeline(cfg, &fakeOrders{}, nil).Run(context.Background()))
	assert.FileExists(t, cfg.Paths.MarkdownOutput)
}
