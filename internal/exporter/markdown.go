// Package exporter writes the reconciled sales table to the flat reporting
// formats and reads the markdown report back for standalone analysis runs.
package exporter

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

// markdownColumns is the fixed column order of the report table.
var markdownColumns = []string{
	"numero_pedido",
	"numero_pedido_erp",
	"numero_carrinho",
	"data_do_pedido",
	"hora_do_pedido",
	"loja",
	"sku",
	"valor_total_produto",
	"valor_unitario_venda",
	"quantidade",
	"titulo",
	"id_canal_marketplace",
	"rastreio",
	"status",
	"tipo_logistica",
	"custo_unitario",
	"custo_total_produto",
	"cashback_cupom",
	"Comissão",
	"Fornecedores",
	"Estq",
	"Categoria",
	"Subcategoria",
	"tipo_de_venda",
}

// WriteMarkdown renders the records as one markdown table at path. Text
// cells are sanitized so they cannot break the table layout and monetary
// cells carry three decimal places.
func WriteMarkdown(path string, records []domain.SalesRecord, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create markdown report: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	writeRow(w, markdownColumns)
	sep := make([]string, len(markdownColumns))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(w, sep)

	for _, rec := range records {
		writeRow(w, recordCells(rec))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	logger.Info("markdown report written",
		slog.String("path", path),
		slog.Int("rows", len(records)))
	return nil
}

func writeRow(w *bufio.Writer, cells []string) {
	w.WriteString("|")
	for _, cell := range cells {
		w.WriteString(" ")
		w.WriteString(cell)
		w.WriteString(" |")
	}
	w.WriteString("\n")
}

func recordCells(rec domain.SalesRecord) []string {
	date := ""
	if rec.OrderDate != nil {
		date = rec.OrderDate.Format(dateLayout)
	}
	costTotal := money.Mul(rec.UnitCost, rec.Quantity, money.Places3)
	return []string{
		sanitizeCell(rec.OrderNumber),
		sanitizeCell(rec.ERPOrderNumber),
		sanitizeCell(rec.CartNumber),
		date,
		sanitizeCell(rec.OrderTime),
		sanitizeCell(rec.Store),
		sanitizeCell(rec.SKU),
		rec.Total.StringFixed(3),
		rec.UnitPrice.StringFixed(3),
		strconv.Itoa(rec.Quantity),
		sanitizeCell(rec.Title),
		sanitizeCell(rec.ChannelID),
		sanitizeCell(rec.Tracking),
		sanitizeCell(rec.Status),
		sanitizeCell(rec.LogisticsType),
		rec.UnitCost.StringFixed(3),
		costTotal.StringFixed(3),
		rec.Cashback.StringFixed(3),
		rec.Commission.StringFixed(3),
		sanitizeCell(rec.Supplier),
		strconv.Itoa(rec.Stock),
		sanitizeCell(rec.Category),
		sanitizeCell(rec.Subcategory),
		sanitizeCell(rec.SaleType),
	}
}

// sanitizeCell keeps a value from breaking the table: newlines become
// spaces and pipes become dashes.
func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "|", "-")
	return s
}

// ReadMarkdown loads a previously written markdown report back into sales
// records, resolving columns by header name so column order does not
// matter. Rows with an unparseable date keep a nil date.
func ReadMarkdown(path string, logger *slog.Logger) ([]domain.SalesRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open markdown report: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("markdown report is empty")
	}
	header := splitRow(scanner.Text())
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	if _, ok := cols["numero_pedido"]; !ok {
		return nil, fmt.Errorf("markdown report has no numero_pedido column")
	}

	var records []domain.SalesRecord
	line := 1
	for scanner.Scan() {
		line++
		if line == 2 {
			continue // separator row
		}
		cells := splitRow(scanner.Text())
		if len(cells) == 0 {
			continue
		}
		records = append(records, cellsToRecord(cells, cols))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read markdown report: %w", err)
	}
	logger.Info("markdown report loaded",
		slog.String("path", path),
		slog.Int("rows", len(records)))
	return records, nil
}

func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	if line == "" {
		return nil
	}
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func cellsToRecord(cells []string, cols map[string]int) domain.SalesRecord {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(cells) {
			return ""
		}
		return cells[idx]
	}
	intCell := func(name string) int {
		n, err := strconv.Atoi(get(name))
		if err != nil {
			return 0
		}
		return n
	}

	rec := domain.SalesRecord{
		OrderNumber:    get("numero_pedido"),
		ERPOrderNumber: get("numero_pedido_erp"),
		CartNumber:     get("numero_carrinho"),
		OrderTime:      get("hora_do_pedido"),
		Store:          get("loja"),
		SKU:            get("sku"),
		Title:          get("titulo"),
		ChannelID:      get("id_canal_marketplace"),
		Tracking:       get("rastreio"),
		Status:         get("status"),
		LogisticsType:  get("tipo_logistica"),
		Total:          money.Parse(get("valor_total_produto"), money.Places3),
		UnitPrice:      money.Parse(get("valor_unitario_venda"), money.Places3),
		Quantity:       intCell("quantidade"),
		UnitCost:       money.Parse(get("custo_unitario"), money.Places3),
		Cashback:       money.Parse(get("cashback_cupom"), money.Places3),
		Commission:     money.Parse(get("Comissão"), money.Places3),
		Supplier:       get("Fornecedores"),
		Stock:          intCell("Estq"),
		Category:       get("Categoria"),
		Subcategory:    get("Subcategoria"),
		SaleType:       get("tipo_de_venda"),
	}
	if t, err := time.Parse(dateLayout, get("data_do_pedido")); err == nil {
		rec.OrderDate = &t
	}
	return rec
}
