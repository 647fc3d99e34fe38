// Package normalize applies the business-rule chain that turns raw source
// rows into canonical sales records. Every step degrades to a documented
// default on malformed input; normalization never drops a row.
package normalize

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

// dateLayouts are tried in order when parsing order dates. All layouts are
// day-first, matching the spreadsheet exports.
var dateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
}

// Normalizer applies the record normalization rule chain.
type Normalizer struct {
	logger *slog.Logger
}

// New creates a record normalizer.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// NormalizeRows parses and normalizes a batch of source rows. The output
// always has the same length as the input.
func (n *Normalizer) NormalizeRows(rows []domain.SourceRow) []domain.SalesRecord {
	records := make([]domain.SalesRecord, 0, len(rows))
	unparseableDates := 0
	for _, row := range rows {
		rec := n.parse(row)
		if rec.OrderDate == nil && strings.TrimSpace(row.OrderDate) != "" {
			unparseableDates++
		}
		n.Apply(&rec)
		records = append(records, rec)
	}
	if unparseableDates > 0 {
		n.logger.Warn("order dates could not be parsed; records kept with null date",
			slog.Int("count", unparseableDates))
	}
	n.logger.Info("rows normalized", slog.Int("count", len(records)))
	return records
}

// parse converts one raw source row into a typed record. Identifier fields
// are coerced to text so large order numbers never lose precision; monetary
// fields go through the money package at 3 decimal places; an unparseable
// quantity becomes 0 and an unparseable date becomes nil.
func (n *Normalizer) parse(row domain.SourceRow) domain.SalesRecord {
	return domain.SalesRecord{
		OrderNumber:    idText(row.OrderNumber),
		ERPOrderNumber: idText(row.ERPOrderNumber),
		CartNumber:     idText(row.CartNumber),
		OrderDate:      parseDate(row.OrderDate),
		OrderTime:      strings.TrimSpace(row.OrderTime),
		Store:          strings.TrimSpace(row.Store),
		SKU:            strings.TrimSpace(row.SKU),
		Title:          strings.TrimSpace(row.Title),
		ChannelID:      strings.TrimSpace(row.ChannelID),
		Tracking:       strings.TrimSpace(row.Tracking),
		Status:         row.Status,
		LogisticsRaw:   strings.TrimSpace(row.Logistics),
		UnitPrice:      money.Parse(row.UnitPrice, money.Places3),
		Total:          money.Parse(row.Total, money.Places3),
		Quantity:       parseCount(row.Quantity),
		UnitCost:       money.Parse(row.UnitCost, money.Places3),
		Commission:     money.Zero(money.Places3),
		Cashback:       money.Zero(money.Places3),
		Stock:          parseCount(row.Stock),
		Supplier:       strings.TrimSpace(row.Supplier),
		Category:       strings.TrimSpace(row.Category),
		Subcategory:    strings.TrimSpace(row.Subcategory),
		SaleType:       strings.TrimSpace(row.SaleType),
		Source:         row.Source,
	}
}

// Apply runs the normalization rules that operate on a typed record: store
// canonicalization, status translation, logistics resolution, monetary
// quantization and the channel-specific revenue recomputation. Apply is a
// fixed point: running it on its own output changes nothing.
func (n *Normalizer) Apply(rec *domain.SalesRecord) {
	rec.Store = CanonicalStore(rec.Store)
	rec.Status = TranslateStatus(strings.TrimSpace(rec.Status))
	rec.LogisticsType = ResolveLogistics(rec.LogisticsRaw, rec.Store)

	rec.UnitPrice = money.Quantize(rec.UnitPrice, money.Places3)
	rec.Total = money.Quantize(rec.Total, money.Places3)
	rec.UnitCost = money.Quantize(rec.UnitCost, money.Places3)
	rec.Commission = money.Quantize(rec.Commission, money.Places3)
	rec.Cashback = money.Quantize(rec.Cashback, money.Places3)

	// The raw export total is unreliable for these channels; unit price
	// times quantity is authoritative. Bundle-matched records keep their
	// negotiated price.
	if !rec.BundleMatched && rec.Quantity > 0 && recomputeRevenue(rec.Store) {
		rec.Total = money.Mul(rec.UnitPrice, rec.Quantity, money.Places3)
	}
}

// recomputeRevenue reports whether the canonical store's raw totals are
// overridden by unit price x quantity.
func recomputeRevenue(store string) bool {
	return strings.HasPrefix(store, "Mercado Livre") || strings.HasPrefix(store, "Amazon")
}

// idText coerces an identifier to trimmed text, stripping the ".0" suffix a
// numeric spreadsheet cell leaves behind.
func idText(raw string) string {
	s := strings.TrimSpace(raw)
	if cut, ok := strings.CutSuffix(s, ".0"); ok && cut != "" && isDigits(cut) {
		return cut
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// parseDate parses a day-first calendar date, returning nil when no layout
// matches. The record is retained either way.
func parseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// parseCount parses a non-negative integer count. Unparseable input and
// negative values become 0. A trailing ".0" from numeric cells is accepted.
func parseCount(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.TrimSuffix(s, ".0")
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
