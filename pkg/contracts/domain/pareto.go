package domain

import "github.com/shopspring/decimal"

// ABC curve classes.
const (
	CurveA = "A"
	CurveB = "B"
	CurveC = "C"
)

// ParetoRow is one (month, SKU) aggregate within a store grouping, carrying
// both the quantity and the revenue ranking. Rows are immutable once emitted.
type ParetoRow struct {
	MonthRef        string          `json:"month_ref"`
	SKU             string          `json:"sku"`
	Title           string          `json:"title"`
	Quantity        decimal.Decimal `json:"quantity"`
	ShareQuantity   decimal.Decimal `json:"share_quantity"`
	CumShareQty     decimal.Decimal `json:"cum_share_quantity"`
	CurveQuantity   string          `json:"curve_quantity"`
	Revenue         decimal.Decimal `json:"revenue"`
	ShareRevenue    decimal.Decimal `json:"share_revenue"`
	CumShareRevenue decimal.Decimal `json:"cum_share_revenue"`
	CurveRevenue    string          `json:"curve_revenue"`
}

// ParetoReport is the full ABC output for one store grouping.
type ParetoReport struct {
	Grouping string      `json:"grouping"` // canonical store name or consolidation key
	Table    string      `json:"table"`    // warehouse table name for this grouping
	Rows     []ParetoRow `json:"rows"`
}
