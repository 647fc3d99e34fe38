// Package loader produces canonical-shape source rows from the spreadsheet
// exports, the paginated sales-order API and the product-master feed.
// Loaders only do column mapping; all value parsing belongs to normalize.
package loader

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"vendascli/pkg/contracts/domain"
)

// spreadsheetColumns maps the export's header names onto source-row fields.
var spreadsheetColumns = map[string]func(*domain.SourceRow, string){
	"Número pedido":        func(r *domain.SourceRow, v string) { r.OrderNumber = v },
	"Número pedido ERP":    func(r *domain.SourceRow, v string) { r.ERPOrderNumber = v },
	"Número carrinho":      func(r *domain.SourceRow, v string) { r.CartNumber = v },
	"Data do pedido":       func(r *domain.SourceRow, v string) { r.OrderDate = v },
	"Loja":                 func(r *domain.SourceRow, v string) { r.Store = v },
	"SKU":                  func(r *domain.SourceRow, v string) { r.SKU = v },
	"Valor total produto":  func(r *domain.SourceRow, v string) { r.Total = v },
	"Valor unitário venda": func(r *domain.SourceRow, v string) { r.UnitPrice = v },
	"Quantidade":           func(r *domain.SourceRow, v string) { r.Quantity = v },
	"Título":               func(r *domain.SourceRow, v string) { r.Title = v },
	"Id Canal Marketplace": func(r *domain.SourceRow, v string) { r.ChannelID = v },
	"Rastreio":             func(r *domain.SourceRow, v string) { r.Tracking = v },
	"Status":               func(r *domain.SourceRow, v string) { r.Status = v },
	"Tipo logística":       func(r *domain.SourceRow, v string) { r.Logistics = v },
}

// Spreadsheet loads sales rows from tabular workbook exports.
type Spreadsheet struct {
	logger *slog.Logger
}

// NewSpreadsheet creates a spreadsheet loader.
func NewSpreadsheet(logger *slog.Logger) *Spreadsheet {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spreadsheet{logger: logger}
}

// LoadAll reads every workbook in the list and concatenates their rows.
// A file that is missing or unreadable is logged and skipped; the batch
// proceeds with whatever loaded.
func (s *Spreadsheet) LoadAll(paths []string) []domain.SourceRow {
	var rows []domain.SourceRow
	for _, path := range paths {
		fileRows, err := s.Load(path)
		if err != nil {
			s.logger.Warn("skipping unreadable spreadsheet",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		rows = append(rows, fileRows...)
	}
	s.logger.Info("spreadsheet files consolidated",
		slog.Int("files", len(paths)),
		slog.Int("rows", len(rows)))
	return rows
}

// Load reads one workbook. The first sheet carries the data with headers on
// the first row; a header that is absent leaves its field blank, which the
// normalizer later fills with the field's default.
func (s *Spreadsheet) Load(path string) ([]domain.SourceRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(cells) < 1 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	setters, missing := mapHeader(cells[0])
	if len(missing) > 0 {
		s.logger.Warn("spreadsheet is missing expected columns",
			slog.String("path", path),
			slog.Any("columns", missing))
	}
	if len(setters) == 0 {
		return nil, fmt.Errorf("no recognized columns in sheet %q", sheets[0])
	}

	rows := make([]domain.SourceRow, 0, len(cells)-1)
	for _, cellRow := range cells[1:] {
		if emptyRow(cellRow) {
			continue
		}
		row := domain.SourceRow{Source: domain.SourceSpreadsheet}
		for idx, set := range setters {
			if idx < len(cellRow) {
				set(&row, cellRow[idx])
			}
		}
		rows = append(rows, row)
	}

	s.logger.Info("spreadsheet loaded",
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return rows, nil
}

// mapHeader resolves each recognized header to its column index and reports
// which expected columns are absent.
func mapHeader(header []string) (map[int]func(*domain.SourceRow, string), []string) {
	setters := make(map[int]func(*domain.SourceRow, string))
	seen := make(map[string]bool, len(header))
	for idx, name := range header {
		name = strings.TrimSpace(name)
		if set, ok := spreadsheetColumns[name]; ok {
			setters[idx] = set
			seen[name] = true
		}
	}
	var missing []string
	for name := range spreadsheetColumns {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	return setters, missing
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
