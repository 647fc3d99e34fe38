package exporter

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"

	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

// WriteWorkbook exports the records as one xlsx sheet at path, same column
// layout as the markdown report. Used for the processed current-month
// snapshot that feeds the next run.
func WriteWorkbook(path string, records []domain.SalesRecord, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(markdownColumns))
	for i, name := range markdownColumns {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, rec := range records {
		cells := workbookCells(rec)
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, ref, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	logger.Info("workbook exported",
		slog.String("path", path),
		slog.Int("rows", len(records)))
	return nil
}

// workbookCells mirrors recordCells but writes the date in the day-first
// layout the spreadsheet loader reads back.
func workbookCells(rec domain.SalesRecord) []interface{} {
	date := ""
	if rec.OrderDate != nil {
		date = rec.OrderDate.Format("02/01/2006")
	}
	costTotal := money.Mul(rec.UnitCost, rec.Quantity, money.Places3)
	return []interface{}{
		rec.OrderNumber,
		rec.ERPOrderNumber,
		rec.CartNumber,
		date,
		rec.OrderTime,
		rec.Store,
		rec.SKU,
		rec.Total.StringFixed(3),
		rec.UnitPrice.StringFixed(3),
		strconv.Itoa(rec.Quantity),
		rec.Title,
		rec.ChannelID,
		rec.Tracking,
		rec.Status,
		rec.LogisticsType,
		rec.UnitCost.StringFixed(3),
		costTotal.StringFixed(3),
		rec.Cashback.StringFixed(3),
		rec.Commission.StringFixed(3),
		rec.Supplier,
		strconv.Itoa(rec.Stock),
		rec.Category,
		rec.Subcategory,
		rec.SaleType,
	}
}
