// Package master resolves duplicate product-master SKUs and left-joins the
// master attributes onto the canonical sales records.
package master

import (
	"log/slog"
	"sort"

	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

// Merger joins product-master attributes onto sales records.
type Merger struct {
	logger *slog.Logger
}

// New creates a product-master merger.
func New(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger}
}

// Dedupe collapses duplicate SKUs in the master set. Duplicates usually are
// re-exports of the same product at different times, so the unit cost takes
// the maximum (never under-cost), stock sums (never undercount), and text
// attributes take the first non-blank value in feed order.
func (m *Merger) Dedupe(entries []domain.ProductEntry) []domain.ProductEntry {
	bySKU := make(map[string]*domain.ProductEntry, len(entries))
	order := make([]string, 0, len(entries))

	for _, e := range entries {
		existing, ok := bySKU[e.SKU]
		if !ok {
			copied := e
			bySKU[e.SKU] = &copied
			order = append(order, e.SKU)
			continue
		}
		if e.UnitCost.GreaterThan(existing.UnitCost) {
			existing.UnitCost = e.UnitCost
		}
		existing.Stock += e.Stock
		existing.Title = firstNonBlank(existing.Title, e.Title)
		existing.Supplier = firstNonBlank(existing.Supplier, e.Supplier)
		existing.Category = firstNonBlank(existing.Category, e.Category)
		existing.Subcategory = firstNonBlank(existing.Subcategory, e.Subcategory)
		existing.SaleType = firstNonBlank(existing.SaleType, e.SaleType)
	}

	if dup := len(entries) - len(order); dup > 0 {
		m.logger.Warn("duplicate master SKUs aggregated", slog.Int("count", dup))
	}

	sort.Strings(order)
	out := make([]domain.ProductEntry, 0, len(order))
	for _, sku := range order {
		out = append(out, *bySKU[sku])
	}
	return out
}

// Merge left-joins master attributes onto the records by SKU. The master
// value wins when present, otherwise the record keeps whatever its source
// loader already carried; records with no master match keep their defaults
// (zero cost, zero stock, blank text attributes).
func (m *Merger) Merge(records []domain.SalesRecord, entries []domain.ProductEntry) {
	bySKU := make(map[string]domain.ProductEntry, len(entries))
	for _, e := range entries {
		bySKU[e.SKU] = e
	}

	matched := 0
	for i := range records {
		rec := &records[i]
		entry, ok := bySKU[rec.SKU]
		if !ok {
			rec.UnitCost = money.Quantize(rec.UnitCost, money.Places3)
			continue
		}
		matched++
		if !entry.UnitCost.IsZero() || rec.UnitCost.IsZero() {
			rec.UnitCost = entry.UnitCost
		}
		if entry.Stock != 0 || rec.Stock == 0 {
			rec.Stock = entry.Stock
		}
		rec.Title = firstNonBlank(rec.Title, entry.Title)
		rec.Supplier = firstNonBlank(entry.Supplier, rec.Supplier)
		rec.Category = firstNonBlank(entry.Category, rec.Category)
		rec.Subcategory = firstNonBlank(entry.Subcategory, rec.Subcategory)
		rec.SaleType = firstNonBlank(entry.SaleType, rec.SaleType)
	}

	m.logger.Info("product master merged",
		slog.Int("records", len(records)),
		slog.Int("matched", matched),
		slog.Int("master_skus", len(entries)))
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
