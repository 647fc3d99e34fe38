// Package bundle parses the compressed marketplace report archives and
// overrides the generic commission, cashback and revenue fields for the
// orders they cover.
package bundle

import (
	"archive/zip"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

// Workbook column headers inside the archives.
const (
	colOrderID        = "ID do pedido"
	colCoinComp       = "Compensar Moedas Shopee"
	colCoupon         = "Cupom Shopee"
	colCommissionRate = "Taxa de comissão"
	colServiceRate    = "Taxa de serviço"
	colAgreedPrice    = "Preço acordado"
)

// Adjustment is the per-order aggregate extracted from the archives.
type Adjustment struct {
	OrderID         string
	Cashback        decimal.Decimal
	Commission      decimal.Decimal
	NegotiatedPrice decimal.Decimal
}

// Processor reads bundle archives and applies their adjustments to the
// canonical sales records.
type Processor struct {
	logger *slog.Logger
}

// New creates a bundle processor.
func New(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger}
}

// Process reads every archive in configured order and combines their
// per-order aggregates. An order id seen in more than one archive keeps the
// last aggregate; overlap is a data anomaly, logged but not fatal. A
// missing or corrupt archive is skipped; it never aborts the run.
func (p *Processor) Process(paths []string) map[string]Adjustment {
	combined := make(map[string]Adjustment)
	for _, path := range paths {
		adjustments, err := p.processArchive(path)
		if err != nil {
			p.logger.Warn("skipping bundle archive",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		for _, adj := range adjustments {
			if _, seen := combined[adj.OrderID]; seen {
				p.logger.Warn("order id present in more than one bundle archive, last aggregate wins",
					slog.String("order_id", adj.OrderID),
					slog.String("archive", path))
			}
			combined[adj.OrderID] = adj
		}
	}
	p.logger.Info("bundle archives processed",
		slog.Int("archives", len(paths)),
		slog.Int("orders", len(combined)))
	return combined
}

// processArchive reads all workbooks of one archive, in archive order.
func (p *Processor) processArchive(path string) ([]Adjustment, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	var all []Adjustment
	workbooks := 0
	for _, entry := range zr.File {
		if !strings.HasSuffix(entry.Name, ".xlsx") || strings.HasPrefix(entry.Name, "__MACOSX/") {
			continue
		}
		workbooks++
		adjustments, err := p.processWorkbook(entry)
		if err != nil {
			p.logger.Warn("skipping workbook inside archive",
				slog.String("archive", path),
				slog.String("workbook", entry.Name),
				slog.String("error", err.Error()))
			continue
		}
		all = append(all, adjustments...)
	}
	if workbooks == 0 {
		return nil, fmt.Errorf("no workbooks in archive")
	}
	return all, nil
}

// processWorkbook aggregates one workbook's item rows by order id:
// cashback and commission sum over the order's items, the negotiated price
// takes the first value because it is per-order, duplicated on every item
// row. Rows lacking the order id are skipped.
func (p *Processor) processWorkbook(entry *zip.File) ([]Adjustment, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("workbook is empty")
	}

	cols := make(map[string]int)
	for idx, name := range rows[0] {
		cols[strings.TrimSpace(name)] = idx
	}
	if _, ok := cols[colOrderID]; !ok {
		return nil, fmt.Errorf("workbook has no %q column", colOrderID)
	}

	byOrder := make(map[string]*Adjustment)
	var order []string
	skipped := 0

	for _, row := range rows[1:] {
		orderID := strings.TrimSpace(cell(row, cols, colOrderID))
		if orderID == "" {
			skipped++
			continue
		}

		// The coin compensation arrives in integer cent-like units.
		coinOffset := money.Parse(cell(row, cols, colCoinComp), money.Places3).
			Div(decimal.NewFromInt(100)).Round(money.Places3)
		cashbackItem := coinOffset.Add(money.Parse(cell(row, cols, colCoupon), money.Places3))
		commissionItem := money.Parse(cell(row, cols, colCommissionRate), money.Places3).
			Add(money.Parse(cell(row, cols, colServiceRate), money.Places3))

		adj, ok := byOrder[orderID]
		if !ok {
			adj = &Adjustment{
				OrderID:         orderID,
				Cashback:        money.Zero(money.Places3),
				Commission:      money.Zero(money.Places3),
				NegotiatedPrice: money.Parse(cell(row, cols, colAgreedPrice), money.Places3),
			}
			byOrder[orderID] = adj
			order = append(order, orderID)
		}
		adj.Cashback = adj.Cashback.Add(cashbackItem)
		adj.Commission = adj.Commission.Add(commissionItem)
	}

	if skipped > 0 {
		p.logger.Warn("workbook rows without order id skipped",
			slog.String("workbook", entry.Name),
			slog.Int("count", skipped))
	}

	out := make([]Adjustment, 0, len(order))
	for _, id := range order {
		adj := byOrder[id]
		adj.Cashback = money.Quantize(adj.Cashback, money.Places3)
		adj.Commission = money.Quantize(adj.Commission, money.Places3)
		adj.NegotiatedPrice = money.Quantize(adj.NegotiatedPrice, money.Places3)
		out = append(out, *adj)
	}
	return out, nil
}

// Enrich left-joins the adjustments onto the records by order number.
// Matched records take the bundle's cashback, commission and negotiated
// price; every unmatched record has its total recomputed as unit price
// times quantity so no record leaves this stage without a total.
func (p *Processor) Enrich(records []domain.SalesRecord, adjustments map[string]Adjustment) {
	matched := 0
	for i := range records {
		rec := &records[i]
		adj, ok := adjustments[rec.OrderNumber]
		if !ok {
			rec.Total = money.Mul(rec.UnitPrice, rec.Quantity, money.Places3)
			continue
		}
		matched++
		rec.Cashback = adj.Cashback
		rec.Commission = adj.Commission
		rec.Total = adj.NegotiatedPrice
		rec.BundleMatched = true
	}
	p.logger.Info("bundle adjustments applied",
		slog.Int("records", len(records)),
		slog.Int("matched", matched))
}

func cell(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
