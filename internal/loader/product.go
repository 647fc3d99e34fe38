package loader

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

// productColumns maps the feed's header names onto product entry fields.
// The cost column may use a comma decimal separator.
var productColumns = map[string]func(*domain.ProductEntry, string){
	"Código":         func(e *domain.ProductEntry, v string) { e.SKU = strings.TrimSpace(v) },
	"Produto":        func(e *domain.ProductEntry, v string) { e.Title = strings.TrimSpace(v) },
	"Quantidade":     func(e *domain.ProductEntry, v string) { e.Stock = parseStock(v) },
	"Valor unitario": func(e *domain.ProductEntry, v string) { e.UnitCost = money.Parse(v, money.Places3) },
	"Fornecedor":     func(e *domain.ProductEntry, v string) { e.Supplier = strings.TrimSpace(v) },
	"Categoria":      func(e *domain.ProductEntry, v string) { e.Category = strings.TrimSpace(v) },
	"Subcategoria":   func(e *domain.ProductEntry, v string) { e.Subcategory = strings.TrimSpace(v) },
	"Tipo de Venda":  func(e *domain.ProductEntry, v string) { e.SaleType = strings.TrimSpace(v) },
}

// LoadProductFeed reads the product-master CSV (semicolon separated). Rows
// without a SKU are skipped. Duplicate SKUs are returned as-is; resolution
// is the master merger's concern.
func LoadProductFeed(path string, logger *slog.Logger) ([]domain.ProductEntry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open product feed: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read product feed: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("product feed is empty")
	}

	setters := make(map[int]func(*domain.ProductEntry, string))
	for idx, name := range rows[0] {
		if set, ok := productColumns[strings.TrimSpace(name)]; ok {
			setters[idx] = set
		}
	}
	if len(setters) == 0 {
		return nil, fmt.Errorf("no recognized columns in product feed")
	}

	entries := make([]domain.ProductEntry, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		entry := domain.ProductEntry{UnitCost: money.Zero(money.Places3)}
		for idx, set := range setters {
			if idx < len(row) {
				set(&entry, row[idx])
			}
		}
		if entry.SKU == "" {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}

	if skipped > 0 {
		logger.Warn("product feed rows without SKU skipped", slog.Int("count", skipped))
	}
	logger.Info("product feed loaded",
		slog.String("path", path),
		slog.Int("entries", len(entries)))
	return entries, nil
}

func parseStock(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.TrimSuffix(s, ".0")
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
