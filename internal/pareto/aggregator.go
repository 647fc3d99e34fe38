// Package pareto computes the per-store, per-month ABC classification of
// SKUs by sold quantity and by revenue.
package pareto

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

// ErrNoDatedRecords means no record carried a parseable order date, so no
// month partition can be formed.
var ErrNoDatedRecords = errors.New("no records with an order date")

// GroupingAll covers every store regardless of name.
const GroupingAll = "PARETO_GERAL_MEGAJU"

// consolidations are the marketplace-wide groupings, matched by store name
// prefix. GroupingAll matches everything.
var consolidations = []string{"Shopee", "Amazon", "Mercado Livre", GroupingAll}

// Curve boundaries on cumulative share, inclusive.
var (
	curveALimit = decimal.RequireFromString("80.000")
	curveBLimit = decimal.RequireFromString("95.000")
)

var monthNames = map[time.Month]string{
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

// Aggregator partitions sales records by store grouping and month and
// ranks each partition's SKUs into ABC curves.
type Aggregator struct {
	tablePrefix string
	logger      *slog.Logger
}

// New creates an aggregator. tablePrefix names the warehouse table family,
// for example "pareto" yields tables like "pareto_shopee".
func New(tablePrefix string, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{tablePrefix: tablePrefix, logger: logger}
}

// Analyze builds one report per store grouping. Groupings are every
// distinct canonical store name plus the fixed consolidations; a grouping
// with no records is skipped. Records without an order date are excluded,
// and if none remain the run cannot proceed.
func (a *Aggregator) Analyze(records []domain.SalesRecord) ([]domain.ParetoReport, error) {
	dated := make([]domain.SalesRecord, 0, len(records))
	for _, rec := range records {
		if rec.OrderDate != nil {
			dated = append(dated, rec)
		}
	}
	if len(dated) == 0 {
		return nil, ErrNoDatedRecords
	}
	if skipped := len(records) - len(dated); skipped > 0 {
		a.logger.Warn("records without order date excluded from analysis",
			slog.Int("count", skipped))
	}

	var reports []domain.ParetoReport
	for _, grouping := range a.groupings(dated) {
		subset := filterGrouping(dated, grouping)
		if len(subset) == 0 {
			a.logger.Warn("no records for grouping", slog.String("grouping", grouping))
			continue
		}
		report := domain.ParetoReport{
			Grouping: grouping,
			Table:    TableName(a.tablePrefix, grouping),
			Rows:     a.analyzeGrouping(subset),
		}
		reports = append(reports, report)
		a.logger.Info("grouping analyzed",
			slog.String("grouping", grouping),
			slog.String("table", report.Table),
			slog.Int("rows", len(report.Rows)))
	}
	return reports, nil
}

// groupings returns the distinct store names in ascending order followed by
// the fixed consolidations. A store named exactly like a consolidation is
// treated as the consolidation.
func (a *Aggregator) groupings(records []domain.SalesRecord) []string {
	seen := make(map[string]bool)
	var stores []string
	for _, rec := range records {
		if !seen[rec.Store] {
			seen[rec.Store] = true
			stores = append(stores, rec.Store)
		}
	}
	sort.Strings(stores)

	out := make([]string, 0, len(stores)+len(consolidations))
	added := make(map[string]bool)
	for _, s := range stores {
		if isConsolidation(s) {
			continue
		}
		out = append(out, s)
		added[s] = true
	}
	for _, c := range consolidations {
		if !added[c] {
			out = append(out, c)
		}
	}
	return out
}

func isConsolidation(name string) bool {
	for _, c := range consolidations {
		if name == c {
			return true
		}
	}
	return false
}

func filterGrouping(records []domain.SalesRecord, grouping string) []domain.SalesRecord {
	var out []domain.SalesRecord
	for _, rec := range records {
		switch {
		case grouping == GroupingAll:
			out = append(out, rec)
		case isConsolidation(grouping):
			if strings.HasPrefix(rec.Store, grouping) {
				out = append(out, rec)
			}
		default:
			if rec.Store == grouping {
				out = append(out, rec)
			}
		}
	}
	return out
}

type monthKey struct {
	year  int
	month time.Month
}

// analyzeGrouping splits one grouping's records into month partitions,
// chronologically ordered, and ranks each partition.
func (a *Aggregator) analyzeGrouping(records []domain.SalesRecord) []domain.ParetoRow {
	byMonth := make(map[monthKey][]domain.SalesRecord)
	var keys []monthKey
	for _, rec := range records {
		k := monthKey{year: rec.OrderDate.Year(), month: rec.OrderDate.Month()}
		if _, ok := byMonth[k]; !ok {
			keys = append(keys, k)
		}
		byMonth[k] = append(byMonth[k], rec)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	var rows []domain.ParetoRow
	for _, k := range keys {
		ref := MonthRef(time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC))
		rows = append(rows, analyzeMonth(ref, byMonth[k])...)
	}
	return rows
}

type skuAggregate struct {
	sku      string
	title    string
	quantity decimal.Decimal
	revenue  decimal.Decimal

	shareQty decimal.Decimal
	cumQty   decimal.Decimal
	curveQty string
	shareRev decimal.Decimal
	cumRev   decimal.Decimal
	curveRev string
}

// analyzeMonth groups one month partition by (SKU, title), ranks the
// aggregates by quantity and by revenue, and emits the final rows ordered
// by revenue descending.
func analyzeMonth(monthRef string, records []domain.SalesRecord) []domain.ParetoRow {
	type groupKey struct{ sku, title string }
	byKey := make(map[groupKey]*skuAggregate)
	for _, rec := range records {
		title := rec.Title
		if strings.TrimSpace(title) == "" {
			title = "Sem Título"
		}
		k := groupKey{sku: rec.SKU, title: title}
		agg, ok := byKey[k]
		if !ok {
			agg = &skuAggregate{
				sku:      rec.SKU,
				title:    title,
				quantity: decimal.Zero,
				revenue:  money.Zero(money.Places3),
			}
			byKey[k] = agg
		}
		agg.quantity = agg.quantity.Add(decimal.NewFromInt(int64(rec.Quantity)))
		agg.revenue = agg.revenue.Add(rec.Total)
	}

	items := make([]*skuAggregate, 0, len(byKey))
	for _, agg := range byKey {
		agg.quantity = money.Quantize(agg.quantity, money.Places3)
		agg.revenue = money.Quantize(agg.revenue, money.Places3)
		items = append(items, agg)
	}

	rank(items,
		func(it *skuAggregate) decimal.Decimal { return it.quantity },
		func(it *skuAggregate, share, cum decimal.Decimal, curve string) {
			it.shareQty, it.cumQty, it.curveQty = share, cum, curve
		})
	rank(items,
		func(it *skuAggregate) decimal.Decimal { return it.revenue },
		func(it *skuAggregate, share, cum decimal.Decimal, curve string) {
			it.shareRev, it.cumRev, it.curveRev = share, cum, curve
		})

	// Final output order mirrors the revenue ranking.
	sort.Slice(items, func(i, j int) bool {
		cmp := items[i].revenue.Cmp(items[j].revenue)
		if cmp != 0 {
			return cmp > 0
		}
		return items[i].sku < items[j].sku
	})

	rows := make([]domain.ParetoRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, domain.ParetoRow{
			MonthRef:        monthRef,
			SKU:             FoldASCII(it.sku),
			Title:           FoldASCII(it.title),
			Quantity:        it.quantity,
			ShareQuantity:   it.shareQty,
			CumShareQty:     it.cumQty,
			CurveQuantity:   it.curveQty,
			Revenue:         it.revenue,
			ShareRevenue:    it.shareRev,
			CumShareRevenue: it.cumRev,
			CurveRevenue:    it.curveRev,
		})
	}
	return rows
}

// rank sorts items by one metric descending with SKU ascending as the
// tie-break, then assigns share, cumulative share and curve. Shares are
// quantized before accumulation so the cumulative column is exactly the
// running sum of the published shares. A zero partition total yields all
// zero shares, which classifies every row as curve A.
func rank(items []*skuAggregate, metric func(*skuAggregate) decimal.Decimal,
	assign func(it *skuAggregate, share, cum decimal.Decimal, curve string)) {

	sorted := make([]*skuAggregate, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		cmp := metric(sorted[i]).Cmp(metric(sorted[j]))
		if cmp != 0 {
			return cmp > 0
		}
		return sorted[i].sku < sorted[j].sku
	})

	total := decimal.Zero
	for _, it := range sorted {
		total = total.Add(metric(it))
	}

	hundred := decimal.NewFromInt(100)
	cum := decimal.Zero
	for _, it := range sorted {
		share := money.Zero(money.Places3)
		if !total.IsZero() {
			share = metric(it).Div(total).Mul(hundred).Round(money.Places3)
		}
		cum = money.Quantize(cum.Add(share), money.Places3)
		assign(it, share, cum, classify(cum))
	}
}

func classify(cumShare decimal.Decimal) string {
	switch {
	case cumShare.LessThanOrEqual(curveALimit):
		return domain.CurveA
	case cumShare.LessThanOrEqual(curveBLimit):
		return domain.CurveB
	default:
		return domain.CurveC
	}
}

// MonthRef formats an order date as "MM/month/YYYY" with the month name in
// lowercase Portuguese.
func MonthRef(t time.Time) string {
	return fmt.Sprintf("%02d/%s/%d", int(t.Month()), monthNames[t.Month()], t.Year())
}

// TableName derives the warehouse table for a grouping: lowercase, spaces
// and dashes become underscores, dots are dropped and underscore runs are
// collapsed and trimmed.
func TableName(prefix, grouping string) string {
	name := strings.ToLower(grouping)
	name = strings.NewReplacer(" ", "_", "-", "_", ".", "", "/", "_").Replace(name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	name = strings.Trim(name, "_")
	return prefix + "_" + name
}

var asciiFolder = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// FoldASCII strips diacritics and any remaining non-ASCII runes, then trims
// surrounding whitespace.
func FoldASCII(s string) string {
	folded, _, err := transform.String(asciiFolder, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
